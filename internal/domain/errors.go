package domain

import "errors"

// Common errors used throughout the application.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrKeyRequired   = errors.New("API key required")
	ErrInvalidKey    = errors.New("invalid API key")
	ErrKeyInactive   = errors.New("API key is inactive")
	ErrTokenExpired  = errors.New("challenge token expired")
	ErrTokenInvalid  = errors.New("challenge token malformed")
)

// Error codes returned in API error bodies.
const (
	ErrCodeMissingKey     = "missing_key"
	ErrCodeInvalidKey     = "invalid_key"
	ErrCodeKeyInactive    = "key_inactive"
	ErrCodeMissingToken   = "missing_token"
	ErrCodeTokenMalformed = "token_malformed"
	ErrCodeTokenExpired   = "token_expired"
	ErrCodeInvalidInput   = "invalid_input"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeInternal       = "internal_error"
)

// APIError is the JSON error body returned by the verification API.
type APIError struct {
	Success bool   `json:"success"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}
