// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them without importing
// net/http. Tests inject them directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithCaller(ctx, ownerID.String(), "candidate")
package requestcontext

import (
	"context"
	"time"
)

type (
	callerIDKey    struct{}
	callerRoleKey  struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Roles carried in access tokens. The engine only distinguishes certificate
// owners from recruiter-role callers; everything else is anonymous.
const (
	RoleCandidate = "candidate"
	RoleRecruiter = "recruiter"
)

// CallerID retrieves the authenticated caller ID from the context. Empty when
// the request is anonymous.
func CallerID(ctx context.Context) string {
	if v, ok := ctx.Value(callerIDKey{}).(string); ok {
		return v
	}
	return ""
}

// CallerRole retrieves the authenticated caller's role from the context.
func CallerRole(ctx context.Context) string {
	if v, ok := ctx.Value(callerRoleKey{}).(string); ok {
		return v
	}
	return ""
}

// WithCaller injects the caller identity into the context.
func WithCaller(ctx context.Context, callerID, role string) context.Context {
	ctx = context.WithValue(ctx, callerIDKey{}, callerID)
	return context.WithValue(ctx, callerRoleKey{}, role)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context, falling back to
// time.Now for non-HTTP contexts (workers, CLI, tests without middleware).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
