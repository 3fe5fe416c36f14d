package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/humanproof/humanproof/internal/api"
	"github.com/humanproof/humanproof/internal/api/middleware"
	"github.com/humanproof/humanproof/internal/auth"
	"github.com/humanproof/humanproof/internal/challenge"
	"github.com/humanproof/humanproof/internal/config"
	"github.com/humanproof/humanproof/internal/geoip"
	"github.com/humanproof/humanproof/internal/scoring"
	"github.com/humanproof/humanproof/internal/storage"
	"github.com/humanproof/humanproof/internal/storage/memory"
	"github.com/humanproof/humanproof/internal/storage/sql"
	"github.com/humanproof/humanproof/internal/web"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create data directory if needed (for SQLite)
	if cfg.UseSQL() && cfg.Database.Driver == "sqlite3" {
		if err := os.MkdirAll("data", 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	// Initialize storage
	var store storage.Storage
	if cfg.UseSQL() {
		sqlStore, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
		store = sqlStore
	} else {
		slog.Warn("no DB_DSN configured, using in-memory storage")
		store = memory.New()
	}
	defer store.Close()

	if n, err := store.CountAPIKeys(context.Background()); err == nil {
		slog.Info("storage ready", "api_keys", n)
	}

	// Initialize GeoIP resolver (or static shim for testing)
	var geo geoip.Resolver
	switch {
	case cfg.GeoIP.ShimFile != "":
		slog.Info("using static GeoIP shim", "file", cfg.GeoIP.ShimFile)
		geo, err = geoip.LoadStatic(cfg.GeoIP.ShimFile)
		if err != nil {
			log.Fatalf("Failed to load GeoIP shim: %v", err)
		}
	case cfg.GeoIP.Endpoint != "":
		geo = geoip.New(cfg.GeoIP.Endpoint, cfg.GeoIP.Timeout)
	default:
		geo = geoip.NewStatic(nil)
	}

	// Initialize challenge token issuer
	issuer, err := challenge.NewIssuer([]byte(cfg.Challenge.Secret))
	if err != nil {
		log.Fatalf("Failed to initialize challenge issuer: %v", err)
	}

	scorer := scoring.NewHeuristic()
	limiter := middleware.NewRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)

	// Initialize GitHub OAuth dashboard components when enabled
	var (
		github   *auth.GitHubProvider
		sessions *auth.SessionManager
		states   *auth.StateStore
	)
	if cfg.GitHub.Enabled {
		secret, err := cfg.GitHub.GetSessionSecretBytes()
		if err != nil {
			log.Fatalf("Invalid session secret: %v", err)
		}
		github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.RedirectURL)
		sessions, err = auth.NewSessionManager(secret, cfg.GitHub.SessionDuration, cfg.GitHub.SecureCookies)
		if err != nil {
			log.Fatalf("Failed to initialize session manager: %v", err)
		}
		states, err = auth.NewStateStore(secret, cfg.GitHub.SecureCookies)
		if err != nil {
			log.Fatalf("Failed to initialize OAuth state store: %v", err)
		}
	} else {
		slog.Warn("GitHub OAuth disabled, dashboard login unavailable")
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "humanproof"
	}

	webRouter := web.NewRouter(store, github, sessions, states)
	router := api.NewRouter(store, issuer, scorer, geo, hostname, limiter, webRouter)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("starting humanproof", "addr", cfg.Server.Addr())

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	slog.Info("server stopped")
}
