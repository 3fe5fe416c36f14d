// Package challenge mints and parses the short-lived tokens handed to the
// widget before verification. Tokens are HS256 JWTs carrying the challenge
// metadata; they are opaque to clients and expire after five minutes.
package challenge

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/humanproof/humanproof/internal/domain"
)

// claims is the JWT payload for a challenge token.
type claims struct {
	Difficulty string `json:"dif"`
	Type       string `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer mints and parses challenge tokens.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock overrides the issuer's clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer creates an issuer signing with the given secret. An empty secret
// generates an ephemeral one, which is fine for single-instance deployments
// since tokens only need to outlive their five minute window.
func NewIssuer(secret []byte, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generating challenge secret: %w", err)
		}
	}

	i := &Issuer{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue mints a token for the given difficulty and type. Unknown labels
// default silently rather than erroring.
func (i *Issuer) Issue(difficulty, challengeType string) (string, *domain.Challenge, error) {
	now := i.now()
	ch := &domain.Challenge{
		ID:         uuid.New().String(),
		IssuedAt:   now,
		Difficulty: domain.NormalizeDifficulty(difficulty),
		Type:       domain.NormalizeChallengeType(challengeType),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Difficulty: ch.Difficulty,
		Type:       ch.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ch.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(domain.ChallengeTTL)),
		},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing challenge token: %w", err)
	}
	return signed, ch, nil
}

// Parse validates a token and returns the challenge it was issued for.
// Expired tokens return domain.ErrTokenExpired; anything else that fails
// validation returns domain.ErrTokenInvalid. Both are terminal.
func (i *Issuer) Parse(token string) (*domain.Challenge, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	if !parsed.Valid || c.ID == "" {
		return nil, domain.ErrTokenInvalid
	}

	return &domain.Challenge{
		ID:         c.ID,
		IssuedAt:   c.IssuedAt.Time,
		Difficulty: c.Difficulty,
		Type:       c.Type,
	}, nil
}
