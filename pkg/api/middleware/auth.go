// Package middleware provides HTTP middleware for the labelhub API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/internal/telemetry"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
)

type contextKey string

const tokenContextKey contextKey = "token"

// Authenticator checks a worker token.
type Authenticator interface {
	Authenticate(ctx context.Context, tok string) error
}

// ErrorWriter renders err as the response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// TokenFromContext returns the token stored by TokenAuth, or "".
//
// Only meaningful in handlers mounted behind TokenAuth.
func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(tokenContextKey).(string)
	return tok
}

// WithToken stores tok in ctx the way TokenAuth does.
func WithToken(ctx context.Context, tok string) context.Context {
	return context.WithValue(ctx, tokenContextKey, tok)
}

// extractBearerToken extracts the token from a Bearer Authorization header.
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

// TokenAuth requires "Authorization: Bearer <token>" with a token accepted
// by auth. A missing header and a rejected token are both written by
// onError: an AuthError for the former, whatever auth returned for the
// latter.
func TokenAuth(auth Authenticator, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := extractBearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="labelhub"`)
				onError(w, r, &lherrors.Error{Code: lherrors.ErrAuth, Message: "authorization header required"})
				return
			}

			if err := auth.Authenticate(r.Context(), tok); err != nil {
				onError(w, r, err)
				return
			}

			ctx := WithToken(r.Context(), tok)
			ctx = logger.ContextWithToken(ctx, tok)
			telemetry.SetAttributes(ctx, telemetry.Token(tok))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
