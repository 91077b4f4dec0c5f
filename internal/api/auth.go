package api

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// userHeader carries the caller's user id, set by the fronting proxy.
const userHeader = "X-User-Id"

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userHeader))
}

// isAdmin reports whether r carries the admin bearer token.
func (s *Server) isAdmin(r *http.Request) bool {
	if s.adminHash == nil {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.adminHash, []byte(token)) == nil
}

// requireAdmin rejects requests without the admin token. With no token
// configured every request is forbidden.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminHash == nil {
			s.writeError(w, http.StatusForbidden, "admin endpoints are disabled")
			return
		}
		if !s.isAdmin(r) {
			s.writeError(w, http.StatusUnauthorized, "admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
