package web

import (
	"context"
	"net/http"

	"github.com/humanproof/humanproof/internal/auth"
	"github.com/humanproof/humanproof/internal/domain"
)

type contextKey string

const sessionContextKey contextKey = "session"

// sessionAuth is middleware that validates the encrypted session cookie
// and loads the account behind it.
func (s *Server) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.oauthEnabled() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		session, err := s.sessions.Get(r)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		user, err := s.store.GetUser(r.Context(), session.UserID)
		if err != nil {
			// Account gone; drop the stale session
			s.sessions.Clear(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, &sessionInfo{Session: session, User: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionInfo bundles the cookie session with the loaded account.
type sessionInfo struct {
	Session *auth.Session
	User    *domain.User
}

// getSession retrieves the session info from context.
func getSession(ctx context.Context) *sessionInfo {
	info, _ := ctx.Value(sessionContextKey).(*sessionInfo)
	return info
}
