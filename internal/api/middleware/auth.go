package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sendroom/sendroom/internal/api/models"
	"github.com/sendroom/sendroom/internal/auth"
)

// sessionKey is the context key for the validated viewer session claims.
type sessionKey struct{}

// Auth creates authentication middleware that validates viewer session
// bearer tokens. The claims go on the context; binding the session to the
// dataroom and link in the route is the handler's job.
func Auth(sessions *auth.SessionService) func(http.Handler) http.Handler {
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
			claims, err := sessions.Validate(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrSessionExpired):
					writeUnauthorized(w, r, "session has expired")
				case errors.Is(err, auth.ErrInvalidSessionToken):
					writeUnauthorized(w, r, "invalid session token")
				default:
					writeUnauthorized(w, r, "authentication failed")
				}
				return
			}

			// Add session claims to context
			ctx := context.WithValue(r.Context(), sessionKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
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

// GetSession retrieves the validated viewer session from the context.
// Returns nil if the request is unauthenticated.
func GetSession(ctx context.Context) *auth.SessionClaims {
	if claims, ok := ctx.Value(sessionKey{}).(*auth.SessionClaims); ok {
		return claims
	}
	return nil
}
