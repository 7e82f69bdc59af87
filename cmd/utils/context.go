package utils

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/clinicdesk/clinic-server/service/token"
)

type contextKey string

const callerKey contextKey = "caller"

// CallerFromContext returns the verified claims the auth middleware stored
// for this request.
func CallerFromContext(r *http.Request) (*token.Claims, error) {
	claims, ok := r.Context().Value(callerKey).(*token.Claims)
	if !ok {
		return nil, errors.New("caller claims not found in context")
	}
	return claims, nil
}

// RequireRole gates a route on a valid bearer token of exactly one role.
// The verified claims are placed in the request context for the handler.
func RequireRole(authority *token.Authority, role token.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			claims, err := authority.Verify(r.Context(), raw, role)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), callerKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth gates a route on a valid bearer token of any role.
func RequireAuth(authority *token.Authority) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			claims, err := authority.VerifyAny(r.Context(), raw)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), callerKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("missing authorization header")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if raw == "" {
		return "", errors.New("empty bearer token")
	}
	return raw, nil
}
