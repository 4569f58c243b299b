package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/api/apierr"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/identity"
)

type contextKey string

const tokenContextKey contextKey = "token"

// AdminTokenHeader carries the operator token for admin routes
const AdminTokenHeader = "X-Admin-Token"

// TokenValidator checks bearer tokens
type TokenValidator interface {
	Validate(accessToken string) (*identity.AccessToken, error)
}

// Auth creates authentication middleware
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := ExtractToken(r)
			if raw == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			token, err := validator.Validate(raw)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), tokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Admin rejects requests that do not present the configured admin token.
// An empty configured token disables admin routes entirely.
func Admin(adminToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := r.Header.Get(AdminTokenHeader)
			if adminToken == "" || subtle.ConstantTimeCompare([]byte(given), []byte(adminToken)) != 1 {
				apierr.WriteError(w, apierr.NewForbiddenError("Admin token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ExtractToken extracts the access token from the request. Browsers cannot set
// headers on EventSource or WebSocket requests, so the token query parameter is
// accepted as a fallback.
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return r.URL.Query().Get("token")
}

// GetToken returns the validated access token from the request context
func GetToken(ctx context.Context) *identity.AccessToken {
	token, _ := ctx.Value(tokenContextKey).(*identity.AccessToken)
	return token
}

// MustGetPlayerID returns the authenticated player's id or panics
func MustGetPlayerID(ctx context.Context) model.PlayerID {
	token := GetToken(ctx)
	if token == nil {
		panic("no token in context - auth middleware not applied?")
	}
	return token.PlayerID
}
