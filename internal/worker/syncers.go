package worker

import (
	"context"

	"github.com/hyperengineering/startupshop/internal/metrics"
	"github.com/hyperengineering/startupshop/pkg/shopclient"
)

// MetricsSyncAll is the in-process sync entry point.
type MetricsSyncAll interface {
	SyncAll(ctx context.Context) (*metrics.SyncSummary, error)
}

// LocalSyncer runs SyncAll against the local metrics service.
func LocalSyncer(svc MetricsSyncAll) Syncer {
	return SyncerFunc(func(ctx context.Context) (SyncCounts, error) {
		summary, err := svc.SyncAll(ctx)
		if summary == nil {
			return SyncCounts{}, err
		}
		return SyncCounts{
			Total:      summary.Total,
			Successful: summary.Successful,
			Failed:     summary.Failed,
		}, err
	})
}

// RemoteSyncer triggers the sync endpoint of a running server.
func RemoteSyncer(client *shopclient.Client) Syncer {
	return SyncerFunc(func(ctx context.Context) (SyncCounts, error) {
		summary, err := client.SyncMetrics(ctx)
		if err != nil {
			return SyncCounts{}, err
		}
		return SyncCounts{
			Total:      summary.Total,
			Successful: summary.Successful,
			Failed:     summary.Failed,
		}, nil
	})
}
