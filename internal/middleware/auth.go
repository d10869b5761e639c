package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"scorer-backend/internal/models"
	"scorer-backend/internal/services"

	"github.com/rs/zerolog/log"
)

type contextKey string

const userKey contextKey = "user"

var (
	errMissingAuthHeader = models.NewUnauthenticatedError("Authorization header required")
	errMalformedHeader   = models.NewUnauthenticatedError("Invalid authorization header format")
)

// Authenticate verifies the bearer token and stores the caller in the
// request context. Shadow users pass; use RequireRegistered after it for
// routes that need a completed profile.
func Authenticate(userService *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				respondError(w, r, err)
				return
			}

			user, err := userService.Authenticate(r.Context(), token)
			if err != nil {
				respondError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRegistered rejects callers that have not completed registration
func RequireRegistered(userService *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := userService.RequireRegistered(UserFromContext(r.Context())); err != nil {
				respondError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the authenticated user, or nil outside of
// Authenticate
func UserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(userKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errMissingAuthHeader
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errMalformedHeader
	}
	return parts[1], nil
}

// respondError sends an error response
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := models.ResponseFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
