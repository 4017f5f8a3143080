package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/careroster/careroster/internal/api/models"
	"github.com/careroster/careroster/internal/auth"
)

// staffIDKey is the context key for the authenticated staff id.
type staffIDKey struct{}

// staffRoleKey is the context key for the authenticated staff role.
type staffRoleKey struct{}

// Auth creates authentication middleware that validates JWT bearer tokens.
func Auth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract bearer token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, r, "missing authorization header")
				return
			}

			// Check for Bearer prefix (case-insensitive)
			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "invalid authorization header format")
				return
			}

			tokenString := authHeader[len(bearerPrefix):]
			if tokenString == "" {
				writeUnauthorized(w, r, "missing bearer token")
				return
			}

			// Validate the token
			claims, err := jwtService.ValidateAccessToken(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrAccessTokenExpired):
					writeUnauthorized(w, r, "access token has expired")
				case errors.Is(err, auth.ErrInvalidAccessToken):
					writeUnauthorized(w, r, "invalid access token")
				default:
					writeUnauthorized(w, r, "authentication failed")
				}
				return
			}

			// Add staff identity to context
			ctx := context.WithValue(r.Context(), staffIDKey{}, claims.StaffID)
			ctx = context.WithValue(ctx, staffRoleKey{}, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole creates middleware that rejects authenticated requests whose
// token carries a different role. It must run after Auth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetStaffRole(r.Context()) != role {
				traceID := GetRequestID(r.Context())
				problem := models.NewForbidden(traceID, "this operation requires the "+role+" role")
				problem.Instance = r.URL.Path
				problem.Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeUnauthorized writes a 401 Unauthorized response.
// This is implemented directly here to avoid import cycle with response package.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	traceID := GetRequestID(r.Context())
	problem := models.NewUnauthorized(traceID, detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// GetStaffID retrieves the authenticated staff id from the context.
// Returns an empty string if not authenticated.
func GetStaffID(ctx context.Context) string {
	if id, ok := ctx.Value(staffIDKey{}).(string); ok {
		return id
	}
	return ""
}

// GetStaffRole retrieves the authenticated staff role from the context.
// Returns an empty string if not authenticated.
func GetStaffRole(ctx context.Context) string {
	if role, ok := ctx.Value(staffRoleKey{}).(string); ok {
		return role
	}
	return ""
}
