package domain

import "time"

// Verification results recorded in the outcome log.
const (
	ResultSuccess    = "success"
	ResultFailed     = "failed"
	ResultBlocked    = "blocked"
	ResultSuspicious = "suspicious"
)

// Actions returned to the caller of the verify endpoint.
const (
	ActionAllow     = "allow"
	ActionChallenge = "challenge"
	ActionBlock     = "block"
)

// VerificationOutcome is one row of the append-only outcome log.
// Rows are never mutated after insert.
type VerificationOutcome struct {
	ID          string    `json:"id" db:"id"`
	APIKeyID    string    `json:"api_key_id" db:"api_key_id"`
	ChallengeID string    `json:"challenge_id" db:"challenge_id"`
	ClientIP    string    `json:"client_ip" db:"client_ip"`
	UserAgent   string    `json:"user_agent" db:"user_agent"`
	Result      string    `json:"result" db:"result"`
	Confidence  float64   `json:"confidence" db:"confidence"`
	BotScore    float64   `json:"bot_score" db:"bot_score"`
	Country     string    `json:"country" db:"country"`
	DurationMs  int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
