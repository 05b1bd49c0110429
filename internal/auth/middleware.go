package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/BradenHooton/vaultgate/internal/models"
	pkghttp "github.com/BradenHooton/vaultgate/pkg/http"
)

type contextKey string

// UserContextKey holds the validated *models.TokenClaims
const UserContextKey contextKey = "user"

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", "invalid authorization header format"
	}
	return token, ""
}

// AuthMiddleware admits requests carrying a valid access token and stores its
// claims in the request context.
func AuthMiddleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r)
			if problem != "" {
				pkghttp.WriteUnauthorized(w, problem)
				return
			}

			claims, err := tm.ValidateToken(token)
			switch {
			case err != nil:
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			case claims.Type != TokenTypeAccess:
				pkghttp.WriteUnauthorized(w, "only access tokens can be used for API access")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
		})
	}
}

// WithUser stores claims in ctx
func WithUser(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// GetUserFromContext returns the claims stored by AuthMiddleware, or nil
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, _ := r.Context().Value(UserContextKey).(*models.TokenClaims)
	return claims
}

// GetUserID returns the authenticated user id, or "" when there is none
func GetUserID(r *http.Request) string {
	if claims := GetUserFromContext(r); claims != nil {
		return claims.UserID
	}
	return ""
}
