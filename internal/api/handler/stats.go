package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/humanproof/humanproof/internal/api/middleware"
	"github.com/humanproof/humanproof/internal/stats"
	"github.com/humanproof/humanproof/internal/storage"
)

// StatsHandler serves aggregated verification statistics.
type StatsHandler struct {
	store storage.Storage
	now   func() time.Time
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(store storage.Storage) *StatsHandler {
	return &StatsHandler{store: store, now: time.Now}
}

// Get aggregates the calling key's outcome log over the requested period.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := middleware.GetAPIKeyFromContext(r.Context())

	days := stats.ParsePeriod(r.URL.Query().Get("period"))
	now := h.now()

	outcomes, err := h.store.ListOutcomesSince(r.Context(), key.ID, now.AddDate(0, 0, -days))
	if err != nil {
		slog.Error("failed to load outcome log", "api_key", key.ID, "error", err)
		respondInternal(w)
		return
	}

	respondJSON(w, http.StatusOK, stats.Aggregate(outcomes, days, now))
}
