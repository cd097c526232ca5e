package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const requesterKey contextKey = "requesterID"

// TokenValidator resolves a bearer token to the user id it belongs to.
type TokenValidator func(token string) (string, error)

// BearerAuth rejects requests without a valid access token and stores the
// requester id in the request context.
func BearerAuth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(auth, "Bearer ")

			userID, err := validate(token)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), requesterKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves the requester when a token is present but lets
// anonymous requests through.
func OptionalAuth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				if userID, err := validate(strings.TrimPrefix(auth, "Bearer ")); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), requesterKey, userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequesterID returns the authenticated user id, empty when anonymous.
func RequesterID(ctx context.Context) string {
	id, _ := ctx.Value(requesterKey).(string)
	return id
}
