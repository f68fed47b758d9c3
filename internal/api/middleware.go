package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// constantTimeEqual compares two strings using constant-time comparison
// to prevent timing attacks.
func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// SyncTokenMiddleware requires X-Sync-Token to match token. An empty token
// rejects every request.
// MUST NOT include the expected token in logs or responses.
func SyncTokenMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			incoming := r.Header.Get("X-Sync-Token")
			if token == "" || !constantTimeEqual(incoming, token) {
				slog.Warn("sync auth failure",
					"component", "api",
					"path", r.URL.Path,
					"remote_ip", r.RemoteAddr,
				)
				WriteProblemCode(w, r, http.StatusUnauthorized, "sync_unauthorized", "Missing or invalid sync token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware emits one api_event record per request, carrying the
// fields handlers recorded on the request's Event.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ev := &Event{}

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r.WithContext(WithEvent(r.Context(), ev)))

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}

		attrs := []any{
			"endpoint", endpoint,
			"method", r.Method,
			"status", wrapped.statusCode,
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		}
		if ev.StartupID != "" {
			attrs = append(attrs, "startup_id", ev.StartupID)
		}
		if ev.LimiterSource != "" {
			attrs = append(attrs, "limiter_source", ev.LimiterSource, "degraded", ev.Degraded)
		}
		if ev.Cache != "" {
			attrs = append(attrs, "cache", ev.Cache)
		}
		if ev.UpstreamStatus != 0 {
			attrs = append(attrs, "upstream_status", ev.UpstreamStatus)
		}
		if ev.ErrorCode != "" {
			attrs = append(attrs, "error_code", ev.ErrorCode)
		}

		slog.Info("api_event", attrs...)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// RecoveryMiddleware catches panics and returns 500 Problem Details.
// Panic details are logged but never exposed to the client.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				slog.Error("panic recovered",
					"error", recovered,
					"stack", string(debug.Stack()),
					"path", r.URL.Path,
					"method", r.Method,
				)
				WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
