package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/humanproof/humanproof/internal/domain"
	"github.com/humanproof/humanproof/internal/stats"
	"github.com/humanproof/humanproof/internal/validation"
)

// handleIndex renders the marketing page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index", PageData{
		Title:  "Human verification for your site",
		Active: "home",
	})
}

// handleLoginPage renders the login page.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := PageData{
		Title:   "Sign in",
		Content: s.oauthEnabled(),
	}

	// Check for flash message in query params
	if msg := r.URL.Query().Get("error"); msg != "" {
		data.Flash = &FlashMessage{Type: "error", Message: msg}
	}

	s.render(w, "login", data)
}

// handleLogout clears the session and redirects to login.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.sessions != nil {
		s.sessions.Clear(w)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// DashboardData holds data for the dashboard page.
type DashboardData struct {
	User     *domain.User
	Keys     []*domain.APIKey
	Websites []*domain.Website
	Summary  *stats.Summary
	Events   []*domain.SecurityEvent
	// NewKey is the freshly created key value, shown exactly once.
	NewKey string
}

// maxDashboardEvents caps the security event feed on the dashboard.
const maxDashboardEvents = 10

// handleDashboard renders the dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := getSession(ctx)

	keys, err := s.store.ListAPIKeysByUser(ctx, session.User.ID)
	if err != nil {
		slog.Error("failed to list API keys", "user", session.User.ID, "error", err)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}

	websites, err := s.store.ListWebsitesByUser(ctx, session.User.ID)
	if err != nil {
		slog.Error("failed to list websites", "user", session.User.ID, "error", err)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}

	// 30 day summary and recent security events across all of the user's keys
	now := time.Now()
	var outcomes []*domain.VerificationOutcome
	var events []*domain.SecurityEvent
	for _, key := range keys {
		rows, err := s.store.ListOutcomesSince(ctx, key.ID, now.AddDate(0, 0, -stats.DefaultPeriodDays))
		if err != nil {
			slog.Warn("failed to load outcomes", "api_key", key.ID, "error", err)
			continue
		}
		outcomes = append(outcomes, rows...)

		recent, err := s.store.ListRecentSecurityEvents(ctx, key.ID, maxDashboardEvents)
		if err != nil {
			slog.Warn("failed to load security events", "api_key", key.ID, "error", err)
			continue
		}
		events = append(events, recent...)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	if len(events) > maxDashboardEvents {
		events = events[:maxDashboardEvents]
	}

	data := PageData{
		Title:  "Dashboard",
		Active: "dashboard",
		Login:  session.User.Login,
		Content: DashboardData{
			User:     session.User,
			Keys:     keys,
			Websites: websites,
			Summary:  stats.Aggregate(outcomes, stats.DefaultPeriodDays, now),
			Events:   events,
			NewKey:   r.URL.Query().Get("new_key"),
		},
	}

	if msg := r.URL.Query().Get("error"); msg != "" {
		data.Flash = &FlashMessage{Type: "error", Message: msg}
	}

	s.render(w, "dashboard", data)
}

// handleAPIKeyCreate creates an API key from the dashboard form.
func (s *Server) handleAPIKeyCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := getSession(ctx)

	if err := r.ParseForm(); err != nil {
		redirectDashboardError(w, r, "Invalid form data")
		return
	}

	name := r.FormValue("name")
	if err := validation.ValidateKeyName(name); err != nil {
		redirectDashboardError(w, r, err.Error())
		return
	}

	environment := normalizeEnvironment(r.FormValue("environment"))

	key, hash, prefix, err := generateAPIKeyPair(environment)
	if err != nil {
		slog.Error("failed to generate API key", "error", err)
		redirectDashboardError(w, r, "Failed to generate key")
		return
	}

	apiKey := &domain.APIKey{
		ID:          generateID(),
		UserID:      session.User.ID,
		Name:        name,
		KeyHash:     hash,
		KeyPrefix:   prefix,
		Environment: environment,
		Active:      true,
		CreatedAt:   time.Now(),
	}

	if err := s.store.CreateAPIKey(ctx, apiKey); err != nil {
		slog.Error("failed to store API key", "user", session.User.ID, "error", err)
		redirectDashboardError(w, r, "Failed to create key")
		return
	}

	// Show the key value once via the redirect
	http.Redirect(w, r, "/dashboard?new_key="+url.QueryEscape(key), http.StatusSeeOther)
}

// handleAPIKeyDelete deletes an API key.
func (s *Server) handleAPIKeyDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := getSession(ctx)

	id := chi.URLParam(r, "id")
	if err := s.store.DeleteAPIKey(ctx, session.User.ID, id); err != nil {
		redirectDashboardError(w, r, "Key not found")
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleWebsiteCreate registers a website from the dashboard form.
func (s *Server) handleWebsiteCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := getSession(ctx)

	if err := r.ParseForm(); err != nil {
		redirectDashboardError(w, r, "Invalid form data")
		return
	}

	domainName := r.FormValue("domain")
	if err := validation.ValidateDomain(domainName); err != nil {
		redirectDashboardError(w, r, err.Error())
		return
	}

	site := &domain.Website{
		ID:        generateID(),
		UserID:    session.User.ID,
		Domain:    validation.NormalizeDomain(domainName),
		CreatedAt: time.Now(),
	}

	if err := s.store.CreateWebsite(ctx, site); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			redirectDashboardError(w, r, "Website already registered")
			return
		}
		slog.Error("failed to store website", "user", session.User.ID, "error", err)
		redirectDashboardError(w, r, "Failed to add website")
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleWebsiteDelete removes a registered website.
func (s *Server) handleWebsiteDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := getSession(ctx)

	id := chi.URLParam(r, "id")
	if err := s.store.DeleteWebsite(ctx, session.User.ID, id); err != nil {
		redirectDashboardError(w, r, "Website not found")
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleWidgetScript serves the embeddable widget loader.
func (s *Server) handleWidgetScript(w http.ResponseWriter, r *http.Request) {
	script, err := content.ReadFile("static/widget.js")
	if err != nil {
		http.Error(w, "widget unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(script)
}

// handleWidgetFrame renders the standalone widget demo page.
func (s *Server) handleWidgetFrame(w http.ResponseWriter, r *http.Request) {
	s.render(w, "frame", PageData{Title: "Widget demo"})
}

func redirectDashboardError(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, "/dashboard?error="+url.QueryEscape(message), http.StatusSeeOther)
}
