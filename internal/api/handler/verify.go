package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/humanproof/humanproof/internal/api/middleware"
	"github.com/humanproof/humanproof/internal/challenge"
	"github.com/humanproof/humanproof/internal/domain"
	"github.com/humanproof/humanproof/internal/geoip"
	"github.com/humanproof/humanproof/internal/scoring"
	"github.com/humanproof/humanproof/internal/storage"
)

// VerifyHandler handles challenge verification.
type VerifyHandler struct {
	store    storage.Storage
	issuer   *challenge.Issuer
	scorer   scoring.Strategy
	geo      geoip.Resolver
	hostname string
	now      func() time.Time
}

// NewVerifyHandler creates a new VerifyHandler.
func NewVerifyHandler(store storage.Storage, issuer *challenge.Issuer, scorer scoring.Strategy, geo geoip.Resolver, hostname string) *VerifyHandler {
	return &VerifyHandler{
		store:    store,
		issuer:   issuer,
		scorer:   scorer,
		geo:      geo,
		hostname: hostname,
		now:      time.Now,
	}
}

// VerifyRequest is the request body for verifying a challenge.
type VerifyRequest struct {
	Token     string `json:"token"`
	Response  string `json:"response"`
	UserAgent string `json:"userAgent"`
	IPAddress string `json:"ipAddress"`
}

// VerifyResponse is the result returned to the caller.
type VerifyResponse struct {
	Success          bool    `json:"success"`
	Score            float64 `json:"score"`
	Action           string  `json:"action"`
	ChallengeTS      int64   `json:"challenge_ts"`
	Hostname         string  `json:"hostname"`
	VerificationTime int64   `json:"verification_time"`
}

// Verify scores a completed challenge and records the outcome. The geo
// lookup and outcome append are best-effort: their failures are logged and
// never fail the request.
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	start := h.now()

	var req VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	if req.Token == "" {
		respondError(w, http.StatusBadRequest, domain.ErrCodeMissingToken, "challenge token is required")
		return
	}

	ch, err := h.issuer.Parse(req.Token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenExpired):
			respondError(w, http.StatusBadRequest, domain.ErrCodeTokenExpired, "challenge token expired")
		default:
			respondError(w, http.StatusBadRequest, domain.ErrCodeTokenMalformed, "challenge token malformed")
		}
		return
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = r.UserAgent()
	}
	clientIP := req.IPAddress
	if clientIP == "" {
		clientIP = middleware.ClientIP(r)
	}

	country, err := h.geo.Country(r.Context(), clientIP)
	if err != nil {
		slog.Warn("geoip lookup failed", "ip", clientIP, "error", err)
		country = ""
	}

	decision := h.scorer.Score(scoring.Input{
		Challenge: ch,
		UserAgent: userAgent,
		ClientIP:  clientIP,
		Country:   country,
	})

	elapsed := h.now().Sub(start).Milliseconds()

	key := middleware.GetAPIKeyFromContext(r.Context())
	h.record(key, ch, clientIP, userAgent, country, decision, elapsed)

	respondJSON(w, http.StatusOK, &VerifyResponse{
		Success:          decision.Success,
		Score:            decision.Confidence,
		Action:           decision.Action,
		ChallengeTS:      ch.IssuedAt.Unix(),
		Hostname:         h.hostname,
		VerificationTime: elapsed,
	})
}

// record appends the outcome row and, for blocked requests, a security
// event. Persistence failures are logged and swallowed.
func (h *VerifyHandler) record(key *domain.APIKey, ch *domain.Challenge, clientIP, userAgent, country string, decision scoring.Decision, elapsed int64) {
	if key == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcome := &domain.VerificationOutcome{
		ID:          uuid.New().String(),
		APIKeyID:    key.ID,
		ChallengeID: ch.ID,
		ClientIP:    clientIP,
		UserAgent:   userAgent,
		Result:      decision.Result,
		Confidence:  decision.Confidence,
		BotScore:    decision.BotScore,
		Country:     country,
		DurationMs:  elapsed,
		CreatedAt:   h.now(),
	}
	if err := h.store.AppendOutcome(ctx, outcome); err != nil {
		slog.Warn("failed to record verification outcome", "api_key", key.ID, "error", err)
	}

	if decision.Result == domain.ResultBlocked {
		event := &domain.SecurityEvent{
			ID:        uuid.New().String(),
			APIKeyID:  key.ID,
			Kind:      domain.EventBlockedRequest,
			Detail:    "request blocked by verification scorer",
			CreatedAt: h.now(),
		}
		if err := h.store.AppendSecurityEvent(ctx, event); err != nil {
			slog.Warn("failed to record security event", "api_key", key.ID, "error", err)
		}
	}
}
