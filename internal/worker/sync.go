package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// DefaultSyncTimeout bounds a single sync run.
const DefaultSyncTimeout = 5 * time.Minute

// SyncCounts summarizes one sync run.
type SyncCounts struct {
	Total      int
	Successful int
	Failed     int
}

// Syncer runs one metrics sync across the catalog.
type Syncer interface {
	Sync(ctx context.Context) (SyncCounts, error)
}

// SyncerFunc adapts a function to Syncer.
type SyncerFunc func(ctx context.Context) (SyncCounts, error)

// Sync calls f.
func (f SyncerFunc) Sync(ctx context.Context) (SyncCounts, error) {
	return f(ctx)
}

// MetricsSyncWorker triggers a Syncer on a cron schedule. A run still in
// progress when the next one fires causes that tick to be skipped.
type MetricsSyncWorker struct {
	syncer   Syncer
	spec     string
	schedule rcron.Schedule
	timeout  time.Duration
}

// NewMetricsSyncWorker parses spec as a standard five-field cron expression
// or descriptor ("@hourly", "@every 15m").
func NewMetricsSyncWorker(syncer Syncer, spec string, timeout time.Duration) (*MetricsSyncWorker, error) {
	schedule, err := rcron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sync schedule %q: %w", spec, err)
	}
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}
	return &MetricsSyncWorker{
		syncer:   syncer,
		spec:     spec,
		schedule: schedule,
		timeout:  timeout,
	}, nil
}

// Run starts the schedule. Blocks until ctx is cancelled, then waits for a
// running sync to finish.
// Does NOT run immediately on start.
func (w *MetricsSyncWorker) Run(ctx context.Context) {
	logger := slogCronLogger{}
	c := rcron.New(rcron.WithLogger(logger), rcron.WithChain(
		rcron.Recover(logger),
		rcron.SkipIfStillRunning(logger),
	))
	c.Schedule(w.schedule, rcron.FuncJob(func() {
		w.RunOnce(ctx)
	}))

	slog.Info("metrics sync scheduled",
		"component", "worker",
		"schedule", w.spec,
	)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()

	slog.Info("metrics sync schedule stopped",
		"component", "worker",
		"reason", "context_cancelled",
	)
}

// RunOnce executes a single sync and logs its outcome.
func (w *MetricsSyncWorker) RunOnce(ctx context.Context) (SyncCounts, error) {
	if ctx.Err() != nil {
		return SyncCounts{}, ctx.Err()
	}
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	counts, err := w.syncer.Sync(runCtx)
	if err != nil {
		// Check for graceful shutdown
		if ctx.Err() != nil {
			return counts, err
		}
		slog.Error("metrics sync failed",
			"component", "worker",
			"action", "sync_failed",
			"error", err,
		)
		return counts, err
	}

	slog.Info("metrics sync cycle completed",
		"component", "worker",
		"action", "sync_complete",
		"total", counts.Total,
		"successful", counts.Successful,
		"failed", counts.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return counts, nil
}

// slogCronLogger routes cron's internal logging to slog.
type slogCronLogger struct{}

func (slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug(msg, append([]any{"component", "cron"}, keysAndValues...)...)
}

func (slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error(msg, append([]any{"component", "cron", "error", err}, keysAndValues...)...)
}
