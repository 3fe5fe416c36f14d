package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/humanproof/humanproof/internal/domain"
	"github.com/humanproof/humanproof/internal/storage/memory"
)

func TestUpsertUser(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	created, err := store.UpsertUser(ctx, &domain.User{GitHubID: 42, Login: "octocat"})
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated ID")
	}

	// Same GitHub ID updates the profile, keeps the ID
	updated, err := store.UpsertUser(ctx, &domain.User{GitHubID: 42, Login: "octocat", Name: "The Octocat"})
	if err != nil {
		t.Fatalf("UpsertUser update: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("ID changed on upsert: %q != %q", updated.ID, created.ID)
	}
	if updated.Name != "The Octocat" {
		t.Errorf("Name = %q, want updated profile", updated.Name)
	}

	got, err := store.GetUser(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Name != "The Octocat" {
		t.Errorf("GetUser Name = %q", got.Name)
	}

	if _, err := store.GetUser(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetUser(nope) = %v, want ErrNotFound", err)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	key := &domain.APIKey{
		ID:          "k1",
		UserID:      "u1",
		Name:        "prod",
		KeyHash:     "hash1",
		KeyPrefix:   "hp_live_abcd",
		Environment: domain.EnvironmentLive,
		Active:      true,
		CreatedAt:   time.Now(),
	}
	if err := store.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if err := store.CreateAPIKey(ctx, key); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate CreateAPIKey = %v, want ErrAlreadyExists", err)
	}

	got, err := store.GetAPIKeyByHash(ctx, "hash1")
	if err != nil {
		t.Fatalf("GetAPIKeyByHash: %v", err)
	}
	if got.ID != "k1" {
		t.Errorf("ID = %q, want k1", got.ID)
	}

	if err := store.TouchAPIKey(ctx, "k1"); err != nil {
		t.Fatalf("TouchAPIKey: %v", err)
	}
	if err := store.TouchAPIKey(ctx, "k1"); err != nil {
		t.Fatalf("TouchAPIKey: %v", err)
	}
	got, _ = store.GetAPIKeyByHash(ctx, "hash1")
	if got.UsageCount != 2 {
		t.Errorf("UsageCount = %d, want 2", got.UsageCount)
	}
	if got.LastUsedAt == nil {
		t.Error("LastUsedAt not set")
	}

	keys, err := store.ListAPIKeysByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListAPIKeysByUser: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("got %d keys, want 1", len(keys))
	}

	count, err := store.CountAPIKeys(ctx)
	if err != nil {
		t.Fatalf("CountAPIKeys: %v", err)
	}
	if count != 1 {
		t.Errorf("CountAPIKeys = %d, want 1", count)
	}

	// Wrong owner cannot delete
	if err := store.DeleteAPIKey(ctx, "other", "k1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteAPIKey wrong owner = %v, want ErrNotFound", err)
	}
	if err := store.DeleteAPIKey(ctx, "u1", "k1"); err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}
	if _, err := store.GetAPIKeyByHash(ctx, "hash1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("hash lookup after delete = %v, want ErrNotFound", err)
	}
}

func TestWebsites(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	site := &domain.Website{ID: "w1", UserID: "u1", Domain: "example.com", CreatedAt: time.Now()}
	if err := store.CreateWebsite(ctx, site); err != nil {
		t.Fatalf("CreateWebsite: %v", err)
	}

	dup := &domain.Website{ID: "w2", UserID: "u1", Domain: "example.com"}
	if err := store.CreateWebsite(ctx, dup); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate domain = %v, want ErrAlreadyExists", err)
	}

	// Same domain for a different user is fine
	other := &domain.Website{ID: "w3", UserID: "u2", Domain: "example.com"}
	if err := store.CreateWebsite(ctx, other); err != nil {
		t.Errorf("CreateWebsite other user: %v", err)
	}

	sites, err := store.ListWebsitesByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListWebsitesByUser: %v", err)
	}
	if len(sites) != 1 {
		t.Fatalf("got %d sites, want 1", len(sites))
	}

	if err := store.DeleteWebsite(ctx, "u2", "w1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteWebsite wrong owner = %v, want ErrNotFound", err)
	}
	if err := store.DeleteWebsite(ctx, "u1", "w1"); err != nil {
		t.Fatalf("DeleteWebsite: %v", err)
	}
}

func TestOutcomeLog(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now()

	for i, age := range []time.Duration{time.Hour, 48 * time.Hour, 31 * 24 * time.Hour} {
		err := store.AppendOutcome(ctx, &domain.VerificationOutcome{
			ID:        string(rune('a' + i)),
			APIKeyID:  "k1",
			Result:    domain.ResultSuccess,
			CreatedAt: now.Add(-age),
		})
		if err != nil {
			t.Fatalf("AppendOutcome: %v", err)
		}
	}
	// Different key, must not leak into k1's view
	_ = store.AppendOutcome(ctx, &domain.VerificationOutcome{ID: "x", APIKeyID: "k2", CreatedAt: now})

	out, err := store.ListOutcomesSince(ctx, "k1", now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("ListOutcomesSince: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("got %d outcomes, want 2", len(out))
	}
	for _, o := range out {
		if o.APIKeyID != "k1" {
			t.Errorf("leaked outcome for key %q", o.APIKeyID)
		}
	}
}

func TestSecurityEvents(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := store.AppendSecurityEvent(ctx, &domain.SecurityEvent{
			ID:        string(rune('a' + i)),
			APIKeyID:  "k1",
			Kind:      domain.EventBlockedRequest,
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("AppendSecurityEvent: %v", err)
		}
	}

	events, err := store.ListRecentSecurityEvents(ctx, "k1", 3)
	if err != nil {
		t.Fatalf("ListRecentSecurityEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	// Most recent first
	if events[0].ID != "e" {
		t.Errorf("first event = %q, want most recent", events[0].ID)
	}
}
