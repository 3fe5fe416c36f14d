package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/humanproof/humanproof/internal/api/handler"
	"github.com/humanproof/humanproof/internal/api/middleware"
	"github.com/humanproof/humanproof/internal/challenge"
	"github.com/humanproof/humanproof/internal/geoip"
	"github.com/humanproof/humanproof/internal/scoring"
	"github.com/humanproof/humanproof/internal/storage"
)

// NewRouter creates the HTTP router with all routes configured. The web
// UI is mounted at the root when webRouter is non-nil.
func NewRouter(
	store storage.Storage,
	issuer *challenge.Issuer,
	scorer scoring.Strategy,
	geo geoip.Resolver,
	hostname string,
	limiter *middleware.RateLimiter,
	webRouter http.Handler,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)

	// API routes (JSON Content-Type)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)

		// Informational endpoints (no auth required)
		r.Get("/health", handler.Health)
		r.Get("/docs", handler.Docs)

		// Verification endpoints (rate limited, API key required)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter))
			r.Use(middleware.Auth(store))

			challengeHandler := handler.NewChallengeHandler(issuer)
			r.Post("/challenge", challengeHandler.Create)

			verifyHandler := handler.NewVerifyHandler(store, issuer, scorer, geo, hostname)
			r.Post("/verify", verifyHandler.Verify)

			statsHandler := handler.NewStatsHandler(store)
			r.Get("/stats", statsHandler.Get)
		})
	})

	// Mount web UI (no Content-Type middleware - serves HTML)
	if webRouter != nil {
		r.Mount("/", webRouter)
	}

	return r
}
