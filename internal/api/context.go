package api

import (
	"context"
	"strings"
)

// eventContextKey is the context key for the request's api_event.
type eventContextKey struct{}

// Event collects request context for the single api_event record emitted
// when a request finishes. Handlers fill the fields they know.
type Event struct {
	StartupID      string
	LimiterSource  string
	Degraded       bool
	ErrorCode      string
	Cache          string
	UpstreamStatus int
}

// WithEvent returns a new context carrying ev.
func WithEvent(ctx context.Context, ev *Event) context.Context {
	return context.WithValue(ctx, eventContextKey{}, ev)
}

// EventFromContext returns the request's event, or nil outside
// LoggingMiddleware.
func EventFromContext(ctx context.Context) *Event {
	ev, _ := ctx.Value(eventContextKey{}).(*Event)
	return ev
}

// annotate applies fn to the request's event when there is one.
func annotate(ctx context.Context, fn func(*Event)) {
	if ev := EventFromContext(ctx); ev != nil {
		fn(ev)
	}
}

// clientKey identifies the caller for rate limiting: the first
// X-Forwarded-For entry, else X-Real-IP, else "unknown".
func clientKey(forwardedFor, realIP string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
		return "unknown"
	}
	if realIP != "" {
		return realIP
	}
	return "unknown"
}
