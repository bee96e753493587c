package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/couchcryptid/outage-alert-etl/internal/config"
	"github.com/couchcryptid/outage-alert-etl/internal/observability"
)

// cli holds state shared by the subcommands.
type cli struct {
	metrics *observability.Metrics
	v       *viper.Viper
}

// newRootCmd builds the command tree. Threshold flags are persistent so both
// run and watch accept them, and each can be set through an OUTAGE_* variable
// (OUTAGE_CUSTOMERS, OUTAGE_REMAINING_HOURS, ...). Flags win over the
// environment.
func newRootCmd(metrics *observability.Metrics) *cobra.Command {
	c := &cli{metrics: metrics, v: viper.New()}

	root := &cobra.Command{
		Use:           "notifier",
		Short:         "Utility outage alerting",
		Long:          "Reconciles polled utility outage-map snapshots and alerts on new, escalated and resolved outages.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.Float64P("remaining-hours", "r", config.DefaultMinRemainingHours, "minimum hours until estimated restoration")
	f.IntP("customers", "c", config.DefaultMinCustomers, "minimum customers impacted")
	f.Float64P("elapsed-hours", "e", config.DefaultMinElapsedHours, "minimum hours since the outage started")
	f.IntP("large-customers", "l", config.DefaultLargeOutageCustomers, "customers impacted for a large outage")
	_ = c.v.BindPFlags(f)

	c.v.SetEnvPrefix("OUTAGE")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(c.newRunCmd(), c.newWatchCmd())
	return root
}

// thresholds resolves the base thresholds from flags or environment and the
// per-utility overrides from THRESHOLDS_FILE.
func (c *cli) thresholds(cfg *config.Config) (config.ThresholdSet, error) {
	base, err := config.Thresholds(
		c.v.GetFloat64("remaining-hours"),
		c.v.GetInt("customers"),
		c.v.GetFloat64("elapsed-hours"),
		c.v.GetInt("large-customers"),
	)
	if err != nil {
		return config.ThresholdSet{}, err
	}
	overrides, err := config.LoadThresholdOverrides(cfg.ThresholdsFile, base)
	if err != nil {
		return config.ThresholdSet{}, err
	}
	return config.ThresholdSet{Base: base, Overrides: overrides}, nil
}
