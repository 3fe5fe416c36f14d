package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/humanproof/humanproof/internal/auth"
	"github.com/humanproof/humanproof/internal/storage"
)

//go:embed templates/* static/*
var content embed.FS

// Server holds dependencies for web handlers.
type Server struct {
	store     storage.Storage
	github    *auth.GitHubProvider
	sessions  *auth.SessionManager
	states    *auth.StateStore
	templates map[string]*template.Template
}

// NewRouter creates the web router: marketing pages, the GitHub login flow,
// the dashboard and the embeddable widget assets. github, sessions and
// states may be nil when OAuth is disabled; the dashboard is then
// unreachable but the public pages still render.
func NewRouter(store storage.Storage, github *auth.GitHubProvider, sessions *auth.SessionManager, states *auth.StateStore) http.Handler {
	s := &Server{
		store:    store,
		github:   github,
		sessions: sessions,
		states:   states,
	}

	// Parse all templates
	s.templates = s.parseTemplates()

	r := chi.NewRouter()

	// Static files
	staticFS, _ := fs.Sub(content, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Public routes
	r.Get("/", s.handleIndex)
	r.Get("/login", s.handleLoginPage)
	r.Get("/logout", s.handleLogout)
	r.Get("/auth/github", s.handleGitHubLogin)
	r.Get("/auth/github/callback", s.handleGitHubCallback)

	// Widget
	r.Get("/widget.js", s.handleWidgetScript)
	r.Get("/widget/frame", s.handleWidgetFrame)

	// Protected routes (require session)
	r.Group(func(r chi.Router) {
		r.Use(s.sessionAuth)

		r.Get("/dashboard", s.handleDashboard)
		r.Post("/dashboard/keys", s.handleAPIKeyCreate)
		r.Post("/dashboard/keys/{id}/delete", s.handleAPIKeyDelete)
		r.Post("/dashboard/websites", s.handleWebsiteCreate)
		r.Post("/dashboard/websites/{id}/delete", s.handleWebsiteDelete)
	})

	return r
}

// oauthEnabled reports whether the GitHub login flow is configured.
func (s *Server) oauthEnabled() bool {
	return s.github != nil && s.sessions != nil && s.states != nil
}

// parseTemplates parses all page templates against the base layout.
func (s *Server) parseTemplates() map[string]*template.Template {
	funcMap := template.FuncMap{
		"lower":   strings.ToLower,
		"percent": func(rate float64) string { return fmt.Sprintf("%.1f%%", rate*100) },
	}

	templates := make(map[string]*template.Template)

	baseContent, _ := content.ReadFile("templates/base.html")

	pageFiles, _ := fs.Glob(content, "templates/pages/*.html")
	for _, pagePath := range pageFiles {
		pageName := strings.TrimSuffix(filepath.Base(pagePath), ".html")
		pageContent, _ := content.ReadFile(pagePath)

		tmpl := template.New(pageName).Funcs(funcMap)
		tmpl, err := tmpl.Parse(string(baseContent) + string(pageContent))
		if err != nil {
			panic("failed to parse template " + pageName + ": " + err.Error())
		}

		templates[pageName] = tmpl
	}

	return templates
}

// render executes a page template with the base layout.
func (s *Server) render(w http.ResponseWriter, page string, data PageData) {
	tmpl, ok := s.templates[page]
	if !ok {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		slog.Error("failed to render template", "page", page, "error", err)
	}
}

// PageData holds common data passed to all page templates.
type PageData struct {
	Title   string
	Active  string // Current nav item
	Login   string // Logged-in user, empty when anonymous
	Flash   *FlashMessage
	Content any
}

// FlashMessage represents a flash message.
type FlashMessage struct {
	Type    string // "success", "error", "info"
	Message string
}
