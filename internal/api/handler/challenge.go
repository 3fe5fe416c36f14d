package handler

import (
	"net/http"

	"github.com/humanproof/humanproof/internal/challenge"
	"github.com/humanproof/humanproof/internal/domain"
)

// ChallengeHandler handles challenge issuance.
type ChallengeHandler struct {
	issuer *challenge.Issuer
}

// NewChallengeHandler creates a new ChallengeHandler.
func NewChallengeHandler(issuer *challenge.Issuer) *ChallengeHandler {
	return &ChallengeHandler{issuer: issuer}
}

// ChallengeRequest is the request body for issuing a challenge.
type ChallengeRequest struct {
	Type       string `json:"type"`
	Difficulty string `json:"difficulty"`
}

// ChallengeResponse wraps the issued challenge token.
type ChallengeResponse struct {
	Challenge IssuedChallenge `json:"challenge"`
}

// IssuedChallenge is the client-facing view of a freshly minted challenge.
type IssuedChallenge struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	ExpiresIn int    `json:"expires_in"`
}

// Create issues a new challenge token. Malformed bodies and unknown labels
// fall through to defaults rather than erroring.
func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ChallengeRequest
	_ = decodeJSON(r, &req)

	token, ch, err := h.issuer.Issue(req.Difficulty, req.Type)
	if err != nil {
		respondInternal(w)
		return
	}

	respondJSON(w, http.StatusOK, &ChallengeResponse{
		Challenge: IssuedChallenge{
			Token:     token,
			Type:      ch.Type,
			ExpiresIn: int(domain.ChallengeTTL.Seconds()),
		},
	})
}
