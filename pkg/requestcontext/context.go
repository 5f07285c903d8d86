// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	uid := requestcontext.SubjectID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithSubjectID(ctx, uid)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithPrincipal(ctx, user)
package requestcontext

import (
	"context"
	"time"

	"certgate/internal/directory/models"
)

// Context key types (unexported for encapsulation).
type (
	subjectIDKey   struct{}
	principalKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeySubjectID   = subjectIDKey{}
	ContextKeyPrincipal   = principalKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// SubjectID retrieves the authenticated subject identifier from the context.
// Returns the empty string if not set.
func SubjectID(ctx context.Context) string {
	if uid, ok := ctx.Value(ContextKeySubjectID).(string); ok {
		return uid
	}
	return ""
}

// WithSubjectID injects an authenticated subject identifier into the context.
func WithSubjectID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ContextKeySubjectID, uid)
}

// Principal retrieves the resolved directory user from the context.
// Returns nil if no principal has been resolved for this request.
func Principal(ctx context.Context) *models.User {
	if user, ok := ctx.Value(ContextKeyPrincipal).(*models.User); ok {
		return user
	}
	return nil
}

// WithPrincipal injects a resolved directory user into the context.
func WithPrincipal(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, user)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// Now retrieves the request-scoped time from the context, falling back to
// time.Now when no middleware has pinned one. Pinning keeps audit records and
// domain timestamps consistent within a single request.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
