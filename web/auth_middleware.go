package web

import (
	"net/http"
	"strings"
)

// authMiddleware answers API calls with 401 and sends browsers to the login page.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	if !s.useAuth {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if isAuthenticated(r, s.secretKey) {
			next(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/metrics" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
