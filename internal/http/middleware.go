package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/fjod/go_foodcart/internal/auth"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	roleKey
)

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// AuthMiddleware puts the caller identity from the bearer token into the request context.
func AuthMiddleware(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
				return
			}

			claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), claims.UserID, claims.Role)))
		})
	}
}

// RequireRole lets the request through only for the listed roles. Admin always passes.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := getRoleFromContext(r.Context())
			if role == auth.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, http.StatusForbidden, "permission_denied", "role not allowed")
		})
	}
}

func withIdentity(ctx context.Context, userID string, role auth.Role) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

func getUserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}

func getRoleFromContext(ctx context.Context) auth.Role {
	if role, ok := ctx.Value(roleKey).(auth.Role); ok {
		return role
	}
	return ""
}
