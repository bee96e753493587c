package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/outage-alert-etl/internal/config"
	"github.com/couchcryptid/outage-alert-etl/internal/domain"
	"github.com/couchcryptid/outage-alert-etl/internal/observability"
	"github.com/couchcryptid/outage-alert-etl/internal/pipeline"
)

func (c *cli) newRunCmd() *cobra.Command {
	var utilityName, dir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile one utility's snapshots once and deliver alerts",
		Long: "Reads every snapshot for the utility, compares consecutive polls and delivers the resulting alerts.\n" +
			"Exits 0 on success (with or without alerts), 3 when fewer than two snapshots exist, 1 otherwise.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context(), cmd.OutOrStdout(), utilityName, dir)
		},
	}
	cmd.Flags().StringVarP(&utilityName, "utility", "u", "", "utility to check: pse, scl, snopud or pge")
	cmd.Flags().StringVarP(&dir, "directory", "d", "", "snapshot directory (default SNAPSHOT_DIR)")
	_ = cmd.MarkFlagRequired("utility")
	return cmd
}

func (c *cli) run(ctx context.Context, out io.Writer, utilityName, dir string) error {
	u, err := domain.ParseUtility(utilityName)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dir != "" {
		cfg.SnapshotDir = dir
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	thresholds, err := c.thresholds(cfg)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, []domain.Utility{u}, logger, c.metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close sinks", "error", err)
		}
	}()

	res, err := a.runner.Run(ctx, u, thresholds.For(u))
	if errors.Is(err, domain.ErrInsufficientHistory) {
		return &exitError{code: exitInsufficientHistory, err: err}
	}
	if err != nil {
		return err
	}

	printSummary(out, res)
	return nil
}

func printSummary(out io.Writer, res pipeline.Result) {
	counts := res.Counts()
	fmt.Fprintf(out, "%s: %d snapshots, %d new, %d escalated, %d resolved",
		res.Utility, res.Snapshots,
		counts[domain.EventNew], counts[domain.EventEscalated], counts[domain.EventResolved])
	if res.Filtered > 0 {
		fmt.Fprintf(out, ", %d records outside area", res.Filtered)
	}
	if res.DeliveryFailures > 0 {
		fmt.Fprintf(out, ", %d delivery failures", res.DeliveryFailures)
	}
	fmt.Fprintln(out)
}
