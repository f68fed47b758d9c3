// Package ratelimit admits or rejects requests per client key within a fixed window.
//
// Two strategies exist: RedisLimiter counts in a shared Redis instance and
// MemoryLimiter counts in process. New picks one at startup.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Source identifies which strategy produced a Result.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// FailureMode decides admission when the primary store cannot be reached.
type FailureMode string

const (
	FailClosed FailureMode = "fail_closed"
	FailOpen   FailureMode = "fail_open"
)

// ErrorCodeUnavailable marks results produced while the primary store was unreachable.
const ErrorCodeUnavailable = "unavailable"

// Defaults applied when Config fields are zero.
const (
	DefaultWindow      = 15 * time.Minute
	DefaultMaxRequests = 10
)

// ErrNoPrimary is returned by Ping on a limiter without a shared store.
var ErrNoPrimary = errors.New("no primary rate limit store configured")

// Result is the admission decision for one request.
type Result struct {
	Allowed   bool
	Source    Source
	Degraded  bool
	ErrorCode string
}

// Limiter checks and records one request for a client key.
type Limiter interface {
	Check(ctx context.Context, key string) Result
	Ping(ctx context.Context) error
}

// Config holds the window, threshold and failure policy.
type Config struct {
	Window      time.Duration
	MaxRequests int64
	FailureMode FailureMode
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MaxRequests <= 0 {
		c.MaxRequests = DefaultMaxRequests
	}
	if c.FailureMode == "" {
		c.FailureMode = FailClosed
	}
	return c
}

// ParseFailureMode parses a failure mode case-insensitively. The empty
// string selects FailClosed.
func ParseFailureMode(s string) (FailureMode, error) {
	switch FailureMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailClosed:
		return FailClosed, nil
	case FailOpen:
		return FailOpen, nil
	}
	return "", fmt.Errorf("unknown rate limit failure mode %q", s)
}

// New returns a RedisLimiter when counter is non-nil, otherwise a MemoryLimiter.
func New(cfg Config, counter Counter) Limiter {
	if counter == nil {
		return NewMemoryLimiter(cfg)
	}
	return NewRedisLimiter(counter, cfg)
}
