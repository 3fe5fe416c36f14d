package web

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/humanproof/humanproof/internal/auth"
	"github.com/humanproof/humanproof/internal/domain"
)

// handleGitHubLogin initiates the GitHub OAuth flow.
func (s *Server) handleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if !s.oauthEnabled() {
		http.Error(w, "GitHub authentication is not enabled", http.StatusNotFound)
		return
	}

	// Generate state
	stateData, err := s.states.Generate(w)
	if err != nil {
		slog.Error("failed to generate OAuth state", "error", err)
		http.Redirect(w, r, "/login?error="+url.QueryEscape("Failed to initiate login"), http.StatusSeeOther)
		return
	}

	// Redirect to GitHub
	http.Redirect(w, r, s.github.AuthCodeURL(stateData.State), http.StatusSeeOther)
}

// handleGitHubCallback handles the OAuth callback after authentication.
func (s *Server) handleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if !s.oauthEnabled() {
		http.Error(w, "GitHub authentication is not enabled", http.StatusNotFound)
		return
	}

	ctx := r.Context()

	// Check for error from provider
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		errDesc := r.URL.Query().Get("error_description")
		if errDesc == "" {
			errDesc = errParam
		}
		slog.Warn("GitHub returned error", "error", errParam, "description", errDesc)
		http.Redirect(w, r, "/login?error="+url.QueryEscape(errDesc), http.StatusSeeOther)
		return
	}

	// Get authorization code
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/login?error="+url.QueryEscape("No authorization code received"), http.StatusSeeOther)
		return
	}

	// Validate state
	state := r.URL.Query().Get("state")
	if _, err := s.states.Validate(r, state); err != nil {
		slog.Warn("OAuth state validation failed", "error", err)
		http.Redirect(w, r, "/login?error="+url.QueryEscape("Invalid state parameter"), http.StatusSeeOther)
		return
	}

	// Clear state cookie
	s.states.Clear(w)

	// Exchange code for a token and fetch the profile
	profile, err := s.github.Exchange(ctx, code)
	if err != nil {
		slog.Error("GitHub token exchange failed", "error", err)
		http.Redirect(w, r, "/login?error="+url.QueryEscape("Failed to complete authentication"), http.StatusSeeOther)
		return
	}

	// Create or refresh the account
	user, err := s.store.UpsertUser(ctx, &domain.User{
		ID:        generateID(),
		GitHubID:  profile.ID,
		Login:     profile.Login,
		Name:      profile.Name,
		Email:     profile.Email,
		AvatarURL: profile.AvatarURL,
		CreatedAt: time.Now(),
	})
	if err != nil {
		slog.Error("failed to upsert user", "github_login", profile.Login, "error", err)
		http.Redirect(w, r, "/login?error="+url.QueryEscape("Failed to create account"), http.StatusSeeOther)
		return
	}

	// Create session
	if err := s.sessions.Create(w, &auth.Session{UserID: user.ID, Login: user.Login}); err != nil {
		slog.Error("failed to create session", "user", user.ID, "error", err)
		http.Redirect(w, r, "/login?error="+url.QueryEscape("Failed to create session"), http.StatusSeeOther)
		return
	}

	// Redirect to dashboard
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
