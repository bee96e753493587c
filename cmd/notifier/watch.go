package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/outage-alert-etl/internal/adapter/http"
	"github.com/couchcryptid/outage-alert-etl/internal/config"
	"github.com/couchcryptid/outage-alert-etl/internal/observability"
)

func (c *cli) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run every configured utility on SCHEDULE and serve health and metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.watch(cmd.Context())
		},
	}
}

func (c *cli) watch(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	thresholds, err := c.thresholds(cfg)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, cfg.Utilities, logger, c.metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close sinks", "error", err)
		}
	}()

	srv := httpadapter.NewServer(cfg.HTTPAddr, a.runner, a.runner, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	runAll := func() {
		start := time.Now()
		results, err := a.runner.RunAll(ctx, thresholds)
		if err != nil {
			logger.Error("scheduled run failed", "error", err)
		}
		logger.Info("scheduled run complete", "utilities", len(results), "duration", time.Since(start))
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	sched := cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.SkipIfStillRunning(cronLogger)))
	if _, err := sched.AddFunc(cfg.Schedule, runAll); err != nil {
		return err
	}

	c.metrics.PipelineRunning.Set(1)
	defer c.metrics.PipelineRunning.Set(0)

	logger.Info("watching", "utilities", cfg.Utilities, "schedule", cfg.Schedule, "snapshot_dir", cfg.SnapshotDir)
	runAll()
	sched.Start()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduled run still in progress at shutdown")
	}

	logger.Info("shutdown complete")
	return nil
}
