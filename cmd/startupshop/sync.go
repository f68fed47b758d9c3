package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/startupshop/internal/config"
	"github.com/hyperengineering/startupshop/internal/worker"
	"github.com/hyperengineering/startupshop/pkg/shopclient"
)

var (
	syncRemote     bool
	syncServerURL  string
	syncToken      string
	syncSchedule   string
	syncJSONOutput bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch live metrics for every listing",
	Long: `Run a metrics sync over every valid listing and record a snapshot per startup.

By default the sync runs in-process against the configured database. With
--remote (or --server) it triggers POST /api/internal/metrics/sync on a running server.
With --schedule it repeats on a cron schedule until interrupted.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncRemote, "remote", false,
		"Trigger the sync endpoint of a running server")
	syncCmd.Flags().StringVar(&syncServerURL, "server", "",
		"Server base URL for remote sync (implies --remote)")
	syncCmd.Flags().StringVar(&syncToken, "token", "",
		"Sync token for remote sync (overrides SYNC_TOKEN)")
	syncCmd.Flags().StringVar(&syncSchedule, "schedule", "",
		"Cron schedule, e.g. \"*/15 * * * *\" or \"@hourly\"")
	syncCmd.Flags().BoolVar(&syncJSONOutput, "json", false,
		"Output in JSON format")
}

// buildSyncer picks the remote client or the in-process metrics service.
// The returned cleanup releases whatever was opened.
func buildSyncer(ctx context.Context, cfg *config.Config) (worker.Syncer, func(), error) {
	if syncRemote || syncServerURL != "" {
		base := syncServerURL
		if base == "" {
			base = cfg.Sync.ServerURL
		}
		token := syncToken
		if token == "" {
			token = cfg.Sync.Token
		}
		client, err := shopclient.New(shopclient.Config{
			BaseURL:   base,
			SyncToken: token,
			Timeout:   worker.DefaultSyncTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("remote sync configured", "server", base)
		return worker.RemoteSyncer(client), func() {}, nil
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return worker.LocalSyncer(a.metrics), func() {
		if err := a.Close(); err != nil {
			slog.Error("store close error", "error", err)
		}
	}, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(newLogger(os.Stderr, cfg.Log))

	syncer, cleanup, err := buildSyncer(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	spec := syncSchedule
	if spec == "" {
		spec = "@hourly"
	}
	w, err := worker.NewMetricsSyncWorker(syncer, spec, 0)
	if err != nil {
		return fmt.Errorf("sync schedule: %w", err)
	}

	if syncSchedule != "" {
		w.Run(ctx)
		return nil
	}

	counts, err := w.RunOnce(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if syncJSONOutput {
		return printJSON(out, map[string]int{
			"total":      counts.Total,
			"successful": counts.Successful,
			"failed":     counts.Failed,
		})
	}
	fmt.Fprintf(out, "Synced %d startups: %d successful, %d failed\n",
		counts.Total, counts.Successful, counts.Failed)
	return nil
}
