package web

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/humanproof/humanproof/internal/domain"
)

// generateID generates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// generateAPIKeyPair generates a new API key with its hash and prefix.
// The environment is part of the key so integrators can tell live and
// test keys apart at a glance.
func generateAPIKeyPair(environment string) (key string, hash string, prefix string, err error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", "", err
	}

	key = fmt.Sprintf("hp_%s_%s", environment, hex.EncodeToString(bytes))
	h := sha256.Sum256([]byte(key))
	hash = hex.EncodeToString(h[:])
	prefix = key[:12]

	return key, hash, prefix, nil
}

// normalizeEnvironment maps unknown environment labels to live.
func normalizeEnvironment(env string) string {
	if env == domain.EnvironmentTest {
		return domain.EnvironmentTest
	}
	return domain.EnvironmentLive
}
