package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/listingclean/internal/core"
	"github.com/JonMunkholm/listingclean/internal/metrics"
	"github.com/JonMunkholm/listingclean/internal/web"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP trigger server",
		Long: `Serve accepts storage events on POST /api/events and sweep requests on
POST /api/sweep, and exposes /health and /metrics. When SWEEP_SCHEDULE is
set, sweeps of RAW_BUCKET also run on that cron schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	slog.Info("configuration loaded", "config", cfg.String())

	collector := metrics.NewCollector()
	svc, closeFn, err := objectService(ctx, cfg, collector)
	if err != nil {
		return err
	}
	defer closeFn()

	// Background jobs stop with the signal context
	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()

	var schedulerDone <-chan struct{}
	if cfg.Sweep.Schedule != "" {
		schedulerDone, err = svc.StartSweepScheduler(jobCtx, core.SweepSchedule{
			Spec:   cfg.Sweep.Schedule,
			Bucket: cfg.Sweep.Bucket,
			Prefix: cfg.Sweep.Prefix,
		})
		if err != nil {
			return err
		}
	}

	server := web.NewServer(svc, collector, cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	cancelJobs()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("runs did not complete in time", "error", err)
	}
	if schedulerDone != nil {
		select {
		case <-schedulerDone:
		case <-shutdownCtx.Done():
			slog.Warn("scheduled sweep did not finish before shutdown")
		}
	}

	slog.Info("server stopped")
	return nil
}
