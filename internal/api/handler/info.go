package handler

import (
	"net/http"

	"github.com/humanproof/humanproof/internal/domain"
)

// Health reports service liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// endpointDoc describes one API endpoint for the docs response.
type endpointDoc struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Docs returns a static description of the verification API.
func Docs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"name":    "humanproof verification API",
		"version": "v1",
		"auth":    "send your API key in the X-API-Key header",
		"endpoints": []endpointDoc{
			{Method: "POST", Path: "/api/v1/challenge", Description: "issue a challenge token (expires in 300s)"},
			{Method: "POST", Path: "/api/v1/verify", Description: "verify a completed challenge token"},
			{Method: "GET", Path: "/api/v1/stats", Description: "aggregated verification statistics, ?period=30d"},
			{Method: "GET", Path: "/api/v1/health", Description: "service health"},
		},
		"notes": []string{
			"challenge tokens are not single-use; replay within the validity window is not rejected",
			"verification is a heuristic scorer and provides no real bot resistance",
		},
		"results": []string{
			domain.ResultSuccess, domain.ResultFailed, domain.ResultBlocked, domain.ResultSuspicious,
		},
	})
}
