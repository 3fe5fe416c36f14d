package domain

import "time"

// Key environments. Test keys are accepted by the API but flagged in
// analytics; live keys are what integrators ship.
const (
	EnvironmentLive = "live"
	EnvironmentTest = "test"
)

// APIKey identifies a tenant of the verification API.
// The actual key value is only returned once on creation.
type APIKey struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Name        string     `json:"name" db:"name"`
	KeyHash     string     `json:"-" db:"key_hash"` // Never expose hash
	KeyPrefix   string     `json:"key_prefix" db:"key_prefix"` // First chars for identification
	Environment string     `json:"environment" db:"environment"`
	Active      bool       `json:"active" db:"active"`
	UsageCount  int64      `json:"usage_count" db:"usage_count"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// CreateAPIKeyRequest is the request body for creating an API key.
type CreateAPIKeyRequest struct {
	Name        string `json:"name"`
	Environment string `json:"environment"`
}

// CreateAPIKeyResponse is returned when creating an API key.
// The key is only shown once.
type CreateAPIKeyResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Key         string    `json:"key"` // Only returned on creation
	KeyPrefix   string    `json:"key_prefix"`
	Environment string    `json:"environment"`
	CreatedAt   time.Time `json:"created_at"`
}
