package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/humanproof/humanproof/internal/domain"
)

// Store is an in-memory implementation of the storage interface. It backs
// deployments without a configured database and all tests.
type Store struct {
	mu sync.RWMutex

	users          map[string]*domain.User   // key: id
	usersByGitHub  map[int64]string          // github id -> user id
	apiKeys        map[string]*domain.APIKey // key: id
	apiKeysByHash  map[string]string         // key hash -> id
	websites       map[string]*domain.Website
	outcomes       []*domain.VerificationOutcome
	securityEvents []*domain.SecurityEvent
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		users:         make(map[string]*domain.User),
		usersByGitHub: make(map[int64]string),
		apiKeys:       make(map[string]*domain.APIKey),
		apiKeysByHash: make(map[string]string),
		websites:      make(map[string]*domain.Website),
	}
}

func (s *Store) Close() error { return nil }

// ============================================
// Users
// ============================================

func (s *Store) UpsertUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.usersByGitHub[user.GitHubID]; ok {
		existing := s.users[id]
		existing.Login = user.Login
		existing.Name = user.Name
		existing.Email = user.Email
		existing.AvatarURL = user.AvatarURL
		copied := *existing
		return &copied, nil
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	copied := *user
	s.users[user.ID] = &copied
	s.usersByGitHub[user.GitHubID] = user.ID

	result := copied
	return &result, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apiKeysByHash[key.KeyHash]; ok {
		return domain.ErrAlreadyExists
	}
	copied := *key
	s.apiKeys[key.ID] = &copied
	s.apiKeysByHash[key.KeyHash] = key.ID
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.apiKeysByHash[keyHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *s.apiKeys[id]
	return &copied, nil
}

func (s *Store) ListAPIKeysByUser(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []*domain.APIKey
	for _, key := range s.apiKeys {
		if key.UserID == userID {
			copied := *key
			keys = append(keys, &copied)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.Before(keys[j].CreatedAt)
	})
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.apiKeys[id]
	if !ok || key.UserID != userID {
		return domain.ErrNotFound
	}
	delete(s.apiKeysByHash, key.KeyHash)
	delete(s.apiKeys, id)
	return nil
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apiKeys), nil
}

func (s *Store) TouchAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.apiKeys[id]
	if !ok {
		return domain.ErrNotFound
	}
	key.UsageCount++
	now := time.Now()
	key.LastUsedAt = &now
	return nil
}

// ============================================
// Websites
// ============================================

func (s *Store) CreateWebsite(ctx context.Context, site *domain.Website) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.websites {
		if existing.UserID == site.UserID && existing.Domain == site.Domain {
			return domain.ErrAlreadyExists
		}
	}
	copied := *site
	s.websites[site.ID] = &copied
	return nil
}

func (s *Store) ListWebsitesByUser(ctx context.Context, userID string) ([]*domain.Website, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sites []*domain.Website
	for _, site := range s.websites {
		if site.UserID == userID {
			copied := *site
			sites = append(sites, &copied)
		}
	}
	sort.Slice(sites, func(i, j int) bool {
		return sites[i].CreatedAt.Before(sites[j].CreatedAt)
	})
	return sites, nil
}

func (s *Store) DeleteWebsite(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	site, ok := s.websites[id]
	if !ok || site.UserID != userID {
		return domain.ErrNotFound
	}
	delete(s.websites, id)
	return nil
}

// ============================================
// Outcome log
// ============================================

func (s *Store) AppendOutcome(ctx context.Context, outcome *domain.VerificationOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *outcome
	s.outcomes = append(s.outcomes, &copied)
	return nil
}

func (s *Store) ListOutcomesSince(ctx context.Context, apiKeyID string, since time.Time) ([]*domain.VerificationOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.VerificationOutcome
	for _, o := range s.outcomes {
		if o.APIKeyID == apiKeyID && !o.CreatedAt.Before(since) {
			copied := *o
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ============================================
// Security events
// ============================================

func (s *Store) AppendSecurityEvent(ctx context.Context, event *domain.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *event
	s.securityEvents = append(s.securityEvents, &copied)
	return nil
}

func (s *Store) ListRecentSecurityEvents(ctx context.Context, apiKeyID string, limit int) ([]*domain.SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.SecurityEvent
	for i := len(s.securityEvents) - 1; i >= 0 && len(out) < limit; i-- {
		if s.securityEvents[i].APIKeyID == apiKeyID {
			copied := *s.securityEvents[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}
