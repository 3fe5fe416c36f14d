package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// SessionCookieName is the name of the dashboard session cookie.
	SessionCookieName = "hp_session"
)

// SessionManager handles encrypted session cookies.
type SessionManager struct {
	aead     cipher.AEAD
	duration time.Duration
	secure   bool // Use Secure flag on cookies (for HTTPS)
}

// Session represents the session data stored in the encrypted cookie.
type Session struct {
	UserID    string    `json:"user_id"`
	Login     string    `json:"login"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSessionManager creates a new session manager with the given encryption key.
// The key must be exactly 32 bytes for AES-256.
func NewSessionManager(key []byte, duration time.Duration, secure bool) (*SessionManager, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("session key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &SessionManager{
		aead:     aead,
		duration: duration,
		secure:   secure,
	}, nil
}

// Create creates an encrypted session cookie.
func (sm *SessionManager) Create(w http.ResponseWriter, session *Session) error {
	session.CreatedAt = time.Now()
	session.ExpiresAt = time.Now().Add(sm.duration)

	// Serialize session to JSON
	plaintext, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Encrypt with AES-256-GCM
	nonce := make([]byte, sm.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := sm.aead.Seal(nonce, nonce, plaintext, nil)
	encoded := base64.RawURLEncoding.EncodeToString(ciphertext)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(sm.duration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   sm.secure,
	})

	return nil
}

// Get retrieves and validates the session from the cookie.
func (sm *SessionManager) Get(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, fmt.Errorf("session cookie not found: %w", err)
	}

	// Decode from base64
	ciphertext, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	// Decrypt
	if len(ciphertext) < sm.aead.NonceSize() {
		return nil, fmt.Errorf("invalid session data")
	}

	nonce := ciphertext[:sm.aead.NonceSize()]
	ciphertext = ciphertext[sm.aead.NonceSize():]

	plaintext, err := sm.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session: %w", err)
	}

	// Deserialize
	var session Session
	if err := json.Unmarshal(plaintext, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	// Check expiration
	if time.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("session expired")
	}

	return &session, nil
}

// Clear clears the session cookie.
func (sm *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   sm.secure,
	})
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
