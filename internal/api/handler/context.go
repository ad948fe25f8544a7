package handler

import (
	"context"
	"net/http"

	"github.com/sendroom/sendroom/internal/api/middleware"
	"github.com/sendroom/sendroom/internal/auth"
)

// GetSession retrieves the validated viewer session from the context.
// This is a convenience wrapper around middleware.GetSession.
func GetSession(ctx context.Context) *auth.SessionClaims {
	return middleware.GetSession(ctx)
}

// middlewareRequestID returns the request id for problem responses.
func middlewareRequestID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}
