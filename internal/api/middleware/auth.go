package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/humanproof/humanproof/internal/domain"
	"github.com/humanproof/humanproof/internal/storage"
)

type contextKey string

const APIKeyContextKey contextKey = "api_key"

// APIKeyHeader is the header the verification API reads the key from.
const APIKeyHeader = "X-API-Key"

// Auth creates authentication middleware for the verification API.
// Missing and invalid keys are rejected with distinct error codes.
func Auth(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				writeAuthError(w, domain.ErrCodeMissingKey, "API key required")
				return
			}

			ctx := r.Context()

			// Hash the provided key and look it up
			keyHash := hashAPIKey(apiKey)
			storedKey, err := store.GetAPIKeyByHash(ctx, keyHash)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					recordInvalidKey(ctx, store, apiKey)
					writeAuthError(w, domain.ErrCodeInvalidKey, "invalid API key")
					return
				}
				http.Error(w, `{"success":false,"error":"internal_error","message":"internal server error"}`, http.StatusInternalServerError)
				return
			}

			if !storedKey.Active {
				writeAuthError(w, domain.ErrCodeKeyInactive, "API key is inactive")
				return
			}

			// Bump usage counter and last used timestamp (fire and forget)
			go func() {
				_ = store.TouchAPIKey(context.Background(), storedKey.ID)
			}()

			// Store the API key in context
			ctx = context.WithValue(ctx, APIKeyContextKey, storedKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// recordInvalidKey appends a security event for a rejected key. Only the
// prefix of the presented key goes into the detail; the event has no key
// row to attach to. Best-effort, failures are logged and swallowed.
func recordInvalidKey(ctx context.Context, store storage.Storage, apiKey string) {
	prefix := apiKey
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}
	event := &domain.SecurityEvent{
		ID:        uuid.New().String(),
		Kind:      domain.EventInvalidKey,
		Detail:    "rejected API key with prefix " + prefix,
		CreatedAt: time.Now(),
	}
	if err := store.AppendSecurityEvent(ctx, event); err != nil {
		slog.Warn("failed to record invalid key event", "error", err)
	}
}

func writeAuthError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(&domain.APIError{
		Success: false,
		Code:    code,
		Message: message,
	})
}

// hashAPIKey creates a SHA-256 hash of the API key.
// We use SHA-256 for fast lookups since API keys are already high-entropy random strings.
func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// GetAPIKeyFromContext retrieves the API key from the request context.
func GetAPIKeyFromContext(ctx context.Context) *domain.APIKey {
	key, _ := ctx.Value(APIKeyContextKey).(*domain.APIKey)
	return key
}
