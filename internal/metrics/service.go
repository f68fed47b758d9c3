// Package metrics acquires startup metrics from their declared endpoints,
// caches live results briefly, and records every attempt as a snapshot.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hyperengineering/startupshop/internal/catalog"
	"github.com/hyperengineering/startupshop/internal/store"
	"github.com/hyperengineering/startupshop/internal/types"
)

const (
	DefaultCacheTTL   = 5 * time.Minute
	DefaultStaleAfter = 30 * time.Minute
)

// Source says where a result came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceSnapshot Source = "snapshot"
)

// Listings resolves startups and enumerates the catalog.
type Listings interface {
	GetByID(ctx context.Context, id string) (*catalog.ListingWithScore, error)
	Query(ctx context.Context, f catalog.Filters) ([]catalog.ListingWithScore, error)
}

// SnapshotStore persists and reads metrics snapshots.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, snap *types.MetricsSnapshot) error
	LatestSuccessfulSnapshot(ctx context.Context, startupID string) (*types.MetricsSnapshot, error)
}

// Result is the current metrics view of one startup.
type Result struct {
	StartupID    string          `json:"startup_id"`
	FetchedAt    time.Time       `json:"fetched_at"`
	Payload      json.RawMessage `json:"payload"`
	Source       Source          `json:"source"`
	Cached       bool            `json:"cached"`
	Stale        bool            `json:"stale"`
	Fallback     bool            `json:"fallback,omitempty"`
	SourceStatus int             `json:"source_status,omitempty"`
}

// Options controls a Get call.
type Options struct {
	// Refresh skips the snapshot read and goes to the live endpoint,
	// falling back to the latest snapshot if the fetch fails.
	Refresh bool
	// Via is recorded on snapshots. Defaults to types.FetchViaAPI.
	Via types.FetchVia
}

// Config tunes the service. Zero values use the defaults.
type Config struct {
	CacheTTL     time.Duration
	StaleAfter   time.Duration
	// FetchTimeout bounds a shared live fetch, which outlives the caller
	// that started it.
	FetchTimeout time.Duration
}

// SyncItem is the outcome of one listing in a SyncAll run.
type SyncItem struct {
	StartupID      string     `json:"startup_id"`
	Success        bool       `json:"success"`
	FetchedAt      *time.Time `json:"fetched_at,omitempty"`
	UpstreamStatus int        `json:"upstream_status,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// SyncSummary aggregates a SyncAll run.
type SyncSummary struct {
	Total      int        `json:"total"`
	Successful int        `json:"successful"`
	Failed     int        `json:"failed"`
	Results    []SyncItem `json:"results"`
}

// Service implements metrics acquisition. It is safe for concurrent use.
type Service struct {
	listings   Listings
	store      SnapshotStore
	fetcher    Fetcher
	cache        *resultCache
	group        singleflight.Group
	staleAfter   time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
}

// NewService creates a metrics service.
func NewService(listings Listings, snapshots SnapshotStore, fetcher Fetcher, cfg Config) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	s := &Service{
		listings:     listings,
		store:        snapshots,
		fetcher:      fetcher,
		staleAfter:   cfg.StaleAfter,
		fetchTimeout: cfg.FetchTimeout,
		now:          time.Now,
	}
	s.cache = newResultCache(cfg.CacheTTL, func() time.Time { return s.now() })
	return s
}

// Get returns the current metrics for startupID.
func (s *Service) Get(ctx context.Context, startupID string, opts Options) (*Result, error) {
	if opts.Via == "" {
		opts.Via = types.FetchViaAPI
	}

	metricsURL, err := s.metricsURL(ctx, startupID)
	if err != nil {
		return nil, err
	}

	if !opts.Refresh {
		snap, err := s.store.LatestSuccessfulSnapshot(ctx, startupID)
		if err == nil {
			r := s.fromSnapshot(snap)
			return &r, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("load latest snapshot: %w", err)
		}
	}

	if cached, ok := s.cache.get(startupID); ok {
		return &cached, nil
	}

	// The fetch is shared by every caller waiting on startupID, so it runs
	// detached from any one caller's cancellation. Each caller still stops
	// waiting when its own context ends.
	ch := s.group.DoChan(startupID, func() (any, error) {
		if cached, ok := s.cache.get(startupID); ok {
			return cached, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		r, err := s.fetchLive(fetchCtx, startupID, metricsURL, opts.Via)
		if err != nil {
			return nil, err
		}
		s.cache.set(startupID, r)
		return r, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	err = res.Err
	if err == nil {
		r := res.Val.(Result)
		return &r, nil
	}

	var fetchErr *FetchError
	if opts.Refresh && errors.As(err, &fetchErr) {
		snap, snapErr := s.store.LatestSuccessfulSnapshot(ctx, startupID)
		if snapErr == nil {
			r := s.fromSnapshot(snap)
			r.Fallback = true
			return &r, nil
		}
		if !errors.Is(snapErr, store.ErrNotFound) {
			slog.Error("snapshot fallback failed",
				"component", "metrics",
				"startup_id", startupID,
				"error", snapErr,
			)
		}
	}
	return nil, err
}

// SyncAll force-fetches every listing that declares a metrics endpoint,
// bypassing the cache read. Listings are processed sequentially and one
// failure does not stop the run.
func (s *Service) SyncAll(ctx context.Context) (*SyncSummary, error) {
	all, err := s.listings.Query(ctx, catalog.Filters{})
	if err != nil {
		return nil, fmt.Errorf("list startups: %w", err)
	}

	summary := &SyncSummary{Results: []SyncItem{}}
	for _, l := range all {
		if l.MetricsURL == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Total++
		item := SyncItem{StartupID: l.StartupID}

		r, err := s.fetchLive(ctx, l.StartupID, l.MetricsURL, types.FetchViaSyncJob)
		if err != nil {
			summary.Failed++
			item.Error = err.Error()
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) {
				item.UpstreamStatus = fetchErr.UpstreamStatus
			}
		} else {
			s.cache.set(l.StartupID, r)
			summary.Successful++
			item.Success = true
			fetchedAt := r.FetchedAt
			item.FetchedAt = &fetchedAt
			item.UpstreamStatus = r.SourceStatus
		}
		summary.Results = append(summary.Results, item)
	}

	slog.Info("metrics sync completed",
		"component", "metrics",
		"action", "sync_all",
		"total", summary.Total,
		"successful", summary.Successful,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (s *Service) metricsURL(ctx context.Context, startupID string) (string, error) {
	listing, err := s.listings.GetByID(ctx, startupID)
	if errors.Is(err, catalog.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup startup: %w", err)
	}
	if listing.MetricsURL == "" {
		return "", ErrNotConfigured
	}
	return listing.MetricsURL, nil
}

// fetchLive performs one outbound fetch and records its snapshot whatever
// the outcome. A failed snapshot write is logged; it does not fail the fetch.
func (s *Service) fetchLive(ctx context.Context, startupID, url string, via types.FetchVia) (Result, error) {
	resp, err := s.fetcher.Fetch(ctx, url)
	snap := &types.MetricsSnapshot{
		StartupID:  startupID,
		FetchedAt:  s.now().UTC(),
		FetchedVia: via,
	}

	var fetchErr *FetchError
	if err != nil {
		if !errors.As(err, &fetchErr) {
			fetchErr = &FetchError{Err: err}
		}
		snap.SourceStatus = fetchErr.UpstreamStatus
		snap.ErrorMessage = fetchErr.Error()
	} else {
		snap.Success = true
		snap.Payload = resp.Payload
		snap.SourceStatus = resp.Status
	}

	if insertErr := s.store.InsertSnapshot(ctx, snap); insertErr != nil {
		slog.Error("record metrics snapshot failed",
			"component", "metrics",
			"startup_id", startupID,
			"error", insertErr,
		)
	}

	if fetchErr != nil {
		slog.Warn("metrics fetch failed",
			"component", "metrics",
			"startup_id", startupID,
			"fetched_via", string(via),
			"upstream_status", fetchErr.UpstreamStatus,
			"error", fetchErr.Err,
		)
		return Result{}, fetchErr
	}

	return Result{
		StartupID:    startupID,
		FetchedAt:    snap.FetchedAt,
		Payload:      resp.Payload,
		Source:       SourceLive,
		SourceStatus: resp.Status,
	}, nil
}

func (s *Service) fromSnapshot(snap *types.MetricsSnapshot) Result {
	return Result{
		StartupID:    snap.StartupID,
		FetchedAt:    snap.FetchedAt,
		Payload:      snap.Payload,
		Source:       SourceSnapshot,
		Stale:        s.now().Sub(snap.FetchedAt) > s.staleAfter,
		SourceStatus: snap.SourceStatus,
	}
}
