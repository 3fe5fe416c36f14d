package domain

import "time"

// Security event kinds.
const (
	EventBlockedRequest = "blocked_request"
	EventInvalidKey     = "invalid_key"
)

// SecurityEvent records a notable auth or verification event for a tenant.
// Recording is best-effort; failures never affect the parent request.
type SecurityEvent struct {
	ID        string    `json:"id" db:"id"`
	APIKeyID  string    `json:"api_key_id" db:"api_key_id"`
	Kind      string    `json:"kind" db:"kind"`
	Detail    string    `json:"detail" db:"detail"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
