// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey string

const userKey ctxKey = "user"

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
}

// BearerAuth rejects requests without a valid "Authorization: Bearer <token>"
// header. The resolved user id is stored in the request context. isUnauthorized
// classifies Authenticator errors; other errors are answered with 500.
func BearerAuth(auth Authenticator, isUnauthorized func(error) bool, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "no token")
				return
			}

			id, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if isUnauthorized(err) {
					writeError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				log.Error("authenticate failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

// GetUserIDFromContext extracts the authenticated user id from ctx.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userKey).(uuid.UUID)
	return id, ok
}

// WithUserID returns a copy of ctx carrying id, as BearerAuth does.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey, id)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
