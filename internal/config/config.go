package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	GitHub    GitHubConfig
	Challenge ChallengeConfig
	GeoIP     GeoIPConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// DatabaseConfig holds database configuration.
// An empty DSN selects the in-memory store.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"postgres"`
	DSN    string `env:"DB_DSN"`
}

// GitHubConfig holds GitHub OAuth configuration for the dashboard login.
type GitHubConfig struct {
	Enabled         bool          `env:"GITHUB_OAUTH_ENABLED" envDefault:"false"`
	ClientID        string        `env:"GITHUB_CLIENT_ID"`
	ClientSecret    string        `env:"GITHUB_CLIENT_SECRET"`
	RedirectURL     string        `env:"GITHUB_REDIRECT_URL"`
	SessionSecret   string        `env:"SESSION_SECRET"`
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"24h"`
	SecureCookies   bool          `env:"SECURE_COOKIES" envDefault:"false"`
}

// ChallengeConfig holds challenge token configuration.
type ChallengeConfig struct {
	Secret string `env:"CHALLENGE_SECRET"`
}

// GeoIPConfig holds IP geolocation configuration.
// When Endpoint is empty the static shim is used instead of a real lookup.
type GeoIPConfig struct {
	Endpoint string        `env:"GEOIP_ENDPOINT"`
	ShimFile string        `env:"GEOIP_SHIM_FILE"` // JSON map of IP to country, for testing
	Timeout  time.Duration `env:"GEOIP_TIMEOUT" envDefault:"2s"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	Window      time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	MaxRequests int           `env:"RATE_LIMIT_MAX" envDefault:"120"`
}

// Load loads configuration from the environment. A .env file is honored
// when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.GitHub); err != nil {
		return nil, fmt.Errorf("parsing github config: %w", err)
	}
	if err := env.Parse(&cfg.Challenge); err != nil {
		return nil, fmt.Errorf("parsing challenge config: %w", err)
	}
	if err := env.Parse(&cfg.GeoIP); err != nil {
		return nil, fmt.Errorf("parsing geoip config: %w", err)
	}
	if err := env.Parse(&cfg.RateLimit); err != nil {
		return nil, fmt.Errorf("parsing rate limit config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UseSQL reports whether a SQL store should be used instead of the
// in-memory fallback.
func (c *Config) UseSQL() bool {
	return c.Database.DSN != ""
}

// GetSessionSecretBytes returns the session secret as bytes.
func (c *GitHubConfig) GetSessionSecretBytes() ([]byte, error) {
	if c.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	// Try to decode as hex first (64 hex chars = 32 bytes)
	if len(c.SessionSecret) == 64 {
		decoded, err := hex.DecodeString(c.SessionSecret)
		if err == nil {
			return decoded, nil
		}
	}
	// Otherwise use as raw bytes (must be exactly 32 bytes)
	if len(c.SessionSecret) != 32 {
		return nil, fmt.Errorf("SESSION_SECRET must be 32 bytes (or 64 hex characters)")
	}
	return []byte(c.SessionSecret), nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.UseSQL() {
		if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite3" {
			return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite3)", c.Database.Driver)
		}
	}

	if c.GitHub.Enabled {
		if c.GitHub.ClientID == "" {
			return fmt.Errorf("GITHUB_CLIENT_ID is required when GitHub OAuth is enabled")
		}
		if c.GitHub.ClientSecret == "" {
			return fmt.Errorf("GITHUB_CLIENT_SECRET is required when GitHub OAuth is enabled")
		}
		if c.GitHub.RedirectURL == "" {
			return fmt.Errorf("GITHUB_REDIRECT_URL is required when GitHub OAuth is enabled")
		}
		if _, err := c.GitHub.GetSessionSecretBytes(); err != nil {
			return err
		}
	}

	return nil
}
