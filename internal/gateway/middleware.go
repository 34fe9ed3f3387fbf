package gateway

import (
	"net/http"
	"strings"

	"github.com/taskrelay-io/taskrelay/internal/auth"
)

// authenticate resolves the bearer token into an Actor and stores it on the
// request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
			return
		}

		actor, err := s.resolver.Resolve(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token"})
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), actor)))
	})
}

// rateLimit applies the sliding-window limiter per actor.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, _ := auth.ActorFromContext(r.Context())
		if !s.limiter.Allow(actor.ID) {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, slow down"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
