package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/humanproof/humanproof/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New creates a new SQL store and applies pending migrations.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ============================================
// Users
// ============================================

func (s *Store) UpsertUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, github_id, login, name, email, avatar_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (github_id) DO UPDATE SET
		   login = EXCLUDED.login,
		   name = EXCLUDED.name,
		   email = EXCLUDED.email,
		   avatar_url = EXCLUDED.avatar_url`,
		user.ID, user.GitHubID, user.Login, user.Name, user.Email, user.AvatarURL, user.CreatedAt)
	if err != nil {
		return nil, err
	}

	var stored domain.User
	err = s.db.GetContext(ctx, &stored,
		`SELECT id, github_id, login, name, email, avatar_url, created_at
		 FROM users WHERE github_id = $1`, user.GitHubID)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user,
		`SELECT id, github_id, login, name, email, avatar_url, created_at
		 FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, environment, active, usage_count, created_at, last_used_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.Environment,
		key.Active, key.UsageCount, key.CreatedAt, key.LastUsedAt)
	return wrapUniqueError(err)
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := s.db.GetContext(ctx, &key,
		`SELECT id, user_id, name, key_hash, key_prefix, environment, active, usage_count, created_at, last_used_at
		 FROM api_keys WHERE key_hash = $1`, keyHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (s *Store) ListAPIKeysByUser(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	var keys []*domain.APIKey
	err := s.db.SelectContext(ctx, &keys,
		`SELECT id, user_id, name, key_hash, key_prefix, environment, active, usage_count, created_at, last_used_at
		 FROM api_keys WHERE user_id = $1 ORDER BY created_at`, userID)
	return keys, err
}

func (s *Store) DeleteAPIKey(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM api_keys`)
	return count, err
}

// TouchAPIKey increments the usage counter in a single UPDATE so concurrent
// touches cannot lose updates.
func (s *Store) TouchAPIKey(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET usage_count = usage_count + 1, last_used_at = $1 WHERE id = $2`,
		time.Now(), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ============================================
// Websites
// ============================================

func (s *Store) CreateWebsite(ctx context.Context, site *domain.Website) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO websites (id, user_id, domain, created_at) VALUES ($1, $2, $3, $4)`,
		site.ID, site.UserID, site.Domain, site.CreatedAt)
	return wrapUniqueError(err)
}

func (s *Store) ListWebsitesByUser(ctx context.Context, userID string) ([]*domain.Website, error) {
	var sites []*domain.Website
	err := s.db.SelectContext(ctx, &sites,
		`SELECT id, user_id, domain, created_at FROM websites WHERE user_id = $1 ORDER BY created_at`, userID)
	return sites, err
}

func (s *Store) DeleteWebsite(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM websites WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ============================================
// Outcome log
// ============================================

func (s *Store) AppendOutcome(ctx context.Context, o *domain.VerificationOutcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verification_logs (id, api_key_id, challenge_id, client_ip, user_agent, result, confidence, bot_score, country, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.APIKeyID, o.ChallengeID, o.ClientIP, o.UserAgent, o.Result,
		o.Confidence, o.BotScore, o.Country, o.DurationMs, o.CreatedAt)
	return err
}

func (s *Store) ListOutcomesSince(ctx context.Context, apiKeyID string, since time.Time) ([]*domain.VerificationOutcome, error) {
	var outcomes []*domain.VerificationOutcome
	err := s.db.SelectContext(ctx, &outcomes,
		`SELECT id, api_key_id, challenge_id, client_ip, user_agent, result, confidence, bot_score, country, duration_ms, created_at
		 FROM verification_logs WHERE api_key_id = $1 AND created_at >= $2 ORDER BY created_at`,
		apiKeyID, since)
	return outcomes, err
}

// ============================================
// Security events
// ============================================

func (s *Store) AppendSecurityEvent(ctx context.Context, e *domain.SecurityEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO security_events (id, api_key_id, kind, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.APIKeyID, e.Kind, e.Detail, e.CreatedAt)
	return err
}

func (s *Store) ListRecentSecurityEvents(ctx context.Context, apiKeyID string, limit int) ([]*domain.SecurityEvent, error) {
	var events []*domain.SecurityEvent
	err := s.db.SelectContext(ctx, &events,
		`SELECT id, api_key_id, kind, detail, created_at
		 FROM security_events WHERE api_key_id = $1 ORDER BY created_at DESC LIMIT $2`,
		apiKeyID, limit)
	return events, err
}
