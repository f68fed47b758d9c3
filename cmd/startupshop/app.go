package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/hyperengineering/startupshop/internal/api"
	"github.com/hyperengineering/startupshop/internal/catalog"
	"github.com/hyperengineering/startupshop/internal/config"
	"github.com/hyperengineering/startupshop/internal/metrics"
	"github.com/hyperengineering/startupshop/internal/ratelimit"
	"github.com/hyperengineering/startupshop/internal/registry"
	"github.com/hyperengineering/startupshop/internal/store"
	"github.com/hyperengineering/startupshop/internal/validation"
)

// app holds the wired services behind the HTTP surface.
type app struct {
	cfg     *config.Config
	catalog *catalog.Service
	store   store.Store
	limiter ratelimit.Limiter
	metrics *metrics.Service
	router  http.Handler

	closers []io.Closer
}

// newRegistry opens the catalog directory.
func newRegistry(root string) *registry.Registry {
	return registry.New(os.DirFS(root), validation.NewSchemaValidator())
}

// newCatalogOnly wires the read path without touching the database.
func newCatalogOnly(root string) *catalog.Service {
	return catalog.NewService(newRegistry(root))
}

// newApp opens the store and the limiter backend and builds the router.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	a.catalog = newCatalogOnly(cfg.Catalog.Root)

	// Store (migrations, WAL mode for sqlite)
	target := cfg.Database.Path
	if cfg.Database.Driver == string(store.DialectPostgres) {
		target = cfg.Database.URL
	}
	db, err := store.Open(ctx, cfg.Database.Driver, target)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = db
	a.closers = append(a.closers, db)
	slog.Info("store initialized", "driver", cfg.Database.Driver)

	// Rate limiter: Redis when configured, in-process otherwise
	mode, err := ratelimit.ParseFailureMode(cfg.RateLimit.FailureMode)
	if err != nil {
		a.Close()
		return nil, err
	}
	var counter ratelimit.Counter
	if cfg.RateLimit.RedisURL != "" {
		rc, err := ratelimit.DialRedis(cfg.RateLimit.RedisURL, cfg.RateLimit.RedisTimeout.Std())
		if err != nil {
			a.Close()
			return nil, err
		}
		counter = rc
		a.closers = append(a.closers, rc)
	}
	a.limiter = ratelimit.New(ratelimit.Config{
		Window:      cfg.RateLimit.Window.Std(),
		MaxRequests: cfg.RateLimit.MaxRequests,
		FailureMode: mode,
	}, counter)
	slog.Info("rate limiter initialized",
		"strategy", limiterStrategy(counter),
		"failure_mode", string(mode),
		"window", cfg.RateLimit.Window.Std().String(),
		"max_requests", cfg.RateLimit.MaxRequests,
	)

	a.metrics = metrics.NewService(a.catalog, db,
		metrics.NewHTTPFetcher(cfg.Metrics.FetchTimeout.Std()),
		metrics.Config{
			CacheTTL:     cfg.Metrics.CacheTTL.Std(),
			StaleAfter:   cfg.Metrics.StaleAfter.Std(),
			FetchTimeout: cfg.Metrics.FetchTimeout.Std(),
		})

	handler := api.NewHandler(api.Deps{
		Catalog:   a.catalog,
		Metrics:   a.metrics,
		Store:     db,
		Limiter:   a.limiter,
		Gate:      api.NewTokenGate(cfg.Admin.SessionToken),
		SyncToken: cfg.Sync.Token,
		Version:   Version,
	})
	a.router = api.NewRouter(handler)
	slog.Info("router initialized")

	return a, nil
}

func limiterStrategy(c ratelimit.Counter) string {
	if c == nil {
		return "memory"
	}
	return "redis"
}

// Close releases the store and the Redis client, newest first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newLogger builds the process logger from the log settings.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
