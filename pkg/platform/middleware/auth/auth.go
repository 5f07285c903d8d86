// Package auth authenticates requests with bearer JWTs and exposes the
// verified claims to downstream handlers.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "certgate/pkg/domain-errors"
	"certgate/pkg/platform/httputil"
	"certgate/pkg/requestcontext"

	"certgate/internal/token"
)

type contextKeyClaims struct{}

// ContextKeyClaims is exported for use in tests.
var ContextKeyClaims = contextKeyClaims{}

// GetClaims retrieves the verified token claims from the context.
func GetClaims(ctx context.Context) (token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(token.Claims)
	return claims, ok
}

// WithClaims injects verified claims into a context. Test helper.
func WithClaims(ctx context.Context, claims token.Claims) context.Context {
	return context.WithValue(ctx, ContextKeyClaims, claims)
}

// RequireAuth rejects requests without a valid bearer token. Verified claims
// and the resolved subject id land in the request context.
func RequireAuth(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access, missing bearer token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			claims, err := token.ParseJWT(raw, signingKey)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access, invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = WithClaims(ctx, claims)
			if uid, ok := token.SubjectID(claims); ok {
				ctx = requestcontext.WithSubjectID(ctx, uid)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
