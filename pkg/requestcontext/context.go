// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the values; services read them without importing net/http.
//
//	donorID := requestcontext.UserID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	userIDKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	clientIPKey    struct{}
	agentKey       struct{}
)

var (
	ContextKeyUserID      = userIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyAgent       = agentKey{}
)

// Agent is the parsed User-Agent of the caller.
type Agent struct {
	Browser string
	OS      string
	Mobile  bool
	Bot     bool
}

// String renders "Firefox 120.0 on Linux x86_64", or "" for an unknown agent.
func (a Agent) String() string {
	switch {
	case a.Browser == "":
		return a.OS
	case a.OS == "":
		return a.Browser
	default:
		return a.Browser + " on " + a.OS
	}
}

// UserID retrieves the authenticated donor ID from the context.
// Returns "" if not set.
func UserID(ctx context.Context) string {
	if userID, ok := ctx.Value(ContextKeyUserID).(string); ok {
		return userID
	}
	return ""
}

// WithUserID injects an authenticated donor ID into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects the client IP address into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextKeyClientIP, ip)
}

// ClientAgent returns the caller's parsed User-Agent, zero if unknown.
func ClientAgent(ctx context.Context) Agent {
	if a, ok := ctx.Value(ContextKeyAgent).(Agent); ok {
		return a
	}
	return Agent{}
}

// WithClientAgent injects a parsed User-Agent into the context.
func WithClientAgent(ctx context.Context, a Agent) context.Context {
	return context.WithValue(ctx, ContextKeyAgent, a)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
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
