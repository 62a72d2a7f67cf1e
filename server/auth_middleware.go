package server

import (
	"context"
	"net/http"
	"strings"

	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	"github.com/andygonzalez6/Bandaid/users"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUser stores the authenticated *users.User
const ContextKeyUser ContextKey = "user"

const credentialsErrorMessage = "could not validate credentials"

// UserFromContext returns the user set by RequireAuth.
func UserFromContext(ctx context.Context) (*users.User, bool) {
	u, ok := ctx.Value(ContextKeyUser).(*users.User)
	return u, ok && u != nil
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth is middleware that validates a Bearer session token and
// injects the resolved user into the request context.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, err := s.services.Auth.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				if apperr.KindOf(err) == apperr.KindInternal {
					writeError(w, err)
					return
				}
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("bearer authentication failed")
				s.services.Metrics.AuthFailed("bearer")
				writeUnauthorized(w, credentialsErrorMessage)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next(w, r.WithContext(ctx))
		}
	}
}
