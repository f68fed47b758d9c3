package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces offer admission counters.
const KeyPrefix = "rate_limit:offers:"

// Counter is the subset of a shared counter store used by RedisLimiter.
type Counter interface {
	// IncrWithExpiry increments key and returns the new value. The key's
	// expiry is set to ttl in the same transaction unless it already has one.
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

// RedisCounter adapts a go-redis client to Counter.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter wraps client.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// IncrWithExpiry runs INCR and PEXPIRE NX in one MULTI/EXEC, so a counter
// can never be left without an expiry. PEXPIRE NX needs Redis 7.0 or later.
func (c *RedisCounter) IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Do(ctx, "pexpire", key, ttl.Milliseconds(), "nx")
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Ping checks connectivity.
func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (c *RedisCounter) Close() error {
	return c.client.Close()
}

// DialRedis creates a client from a redis:// URL. Every network operation is
// bounded by timeout and failed commands are not retried.
func DialRedis(url string, timeout time.Duration) (*RedisCounter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if timeout > 0 {
		opts.DialTimeout = timeout
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
	}
	opts.MaxRetries = -1
	return NewRedisCounter(redis.NewClient(opts)), nil
}

// RedisLimiter counts requests in a shared store with INCR and PEXPIRE NX.
type RedisLimiter struct {
	counter Counter
	cfg     Config
}

// NewRedisLimiter creates a limiter backed by counter.
func NewRedisLimiter(counter Counter, cfg Config) *RedisLimiter {
	return &RedisLimiter{counter: counter, cfg: cfg.withDefaults()}
}

// Check increments the key's counter. The first hit of a window starts its
// expiry and later hits leave it alone. Store errors resolve through the
// configured failure mode.
func (l *RedisLimiter) Check(ctx context.Context, key string) Result {
	count, err := l.counter.IncrWithExpiry(ctx, KeyPrefix+key, l.cfg.Window)
	if err != nil {
		slog.Warn("rate limit store unavailable",
			"component", "ratelimit",
			"failure_mode", string(l.cfg.FailureMode),
			"error", err,
		)
		return Result{
			Allowed:   l.cfg.FailureMode == FailOpen,
			Source:    SourcePrimary,
			Degraded:  true,
			ErrorCode: ErrorCodeUnavailable,
		}
	}

	return Result{Allowed: count <= l.cfg.MaxRequests, Source: SourcePrimary}
}

// Ping checks the shared store.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.counter.Ping(ctx)
}
