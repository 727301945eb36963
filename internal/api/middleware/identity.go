package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// UserIDKey is the context key for the authenticated user's id.
const UserIDKey contextKey = "user_id"

// DefaultUser is the single-tenant fallback when no identity is supplied
// (local development). Per-record ownership checks still apply.
const DefaultUser = "default"

// Identity extracts the calling user from the request. Upstream auth
// (the product's session layer) sets X-User-Id; the userId query
// parameter is accepted as a fallback for tooling.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if user == "" {
			user = strings.TrimSpace(r.URL.Query().Get("userId"))
		}
		if user == "" {
			user = DefaultUser
		}

		ctx := context.WithValue(r.Context(), UserIDKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID retrieves the user id from the request context.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return DefaultUser
}
