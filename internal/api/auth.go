package api

import (
	"net/http"
	"strings"
)

// requireToken rejects requests without a configured bearer token. Failures
// are surfaced uniformly before any handler runs, with the same payload shape
// the rest of the API uses.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !s.tokens[token] {
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Errors: []string{"Unauthorized"}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleAuthenticate is the credential probe endpoint. It is deliberately
// outside the token check so clients can reach it while setting up.
func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Authentication successful",
	})
}
