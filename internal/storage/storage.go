package storage

import (
	"context"
	"time"

	"github.com/humanproof/humanproof/internal/domain"
)

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Users
	UpsertUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// API Keys
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListAPIKeysByUser(ctx context.Context, userID string) ([]*domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, userID, id string) error
	CountAPIKeys(ctx context.Context) (int, error)
	// TouchAPIKey atomically increments the key's usage counter and stamps
	// last_used_at. Concurrent touches must not lose updates.
	TouchAPIKey(ctx context.Context, id string) error

	// Websites
	CreateWebsite(ctx context.Context, site *domain.Website) error
	ListWebsitesByUser(ctx context.Context, userID string) ([]*domain.Website, error)
	DeleteWebsite(ctx context.Context, userID, id string) error

	// Outcome log (append-only)
	AppendOutcome(ctx context.Context, outcome *domain.VerificationOutcome) error
	ListOutcomesSince(ctx context.Context, apiKeyID string, since time.Time) ([]*domain.VerificationOutcome, error)

	// Security events (append-only)
	AppendSecurityEvent(ctx context.Context, event *domain.SecurityEvent) error
	ListRecentSecurityEvents(ctx context.Context, apiKeyID string, limit int) ([]*domain.SecurityEvent, error)
}
