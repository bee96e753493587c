package main

import (
	"errors"
	"io"
	"log/slog"

	"github.com/couchcryptid/outage-alert-etl/internal/adapter/geocode"
	kafkaadapter "github.com/couchcryptid/outage-alert-etl/internal/adapter/kafka"
	"github.com/couchcryptid/outage-alert-etl/internal/adapter/notifyfile"
	"github.com/couchcryptid/outage-alert-etl/internal/adapter/snapshotfs"
	"github.com/couchcryptid/outage-alert-etl/internal/adapter/telegram"
	"github.com/couchcryptid/outage-alert-etl/internal/adapter/zipcode"
	"github.com/couchcryptid/outage-alert-etl/internal/config"
	"github.com/couchcryptid/outage-alert-etl/internal/domain"
	"github.com/couchcryptid/outage-alert-etl/internal/observability"
	"github.com/couchcryptid/outage-alert-etl/internal/pipeline"
	"github.com/couchcryptid/outage-alert-etl/internal/utility"
)

// app is the wired pipeline plus anything that needs closing.
type app struct {
	runner  *pipeline.Runner
	closers []io.Closer
}

func newApp(cfg *config.Config, utilities []domain.Utility, logger *slog.Logger, metrics *observability.Metrics) (*app, error) {
	sources := make(map[domain.Utility]pipeline.SnapshotSource, len(utilities))
	for _, u := range utilities {
		n, err := utility.For(u, logger)
		if err != nil {
			return nil, err
		}
		sources[u] = snapshotfs.NewSource(cfg.SnapshotDir, n, metrics, logger)
	}

	a := &app{}
	var sinks []pipeline.Sink

	if cfg.TelegramEnabled() {
		n, err := telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID, cfg.TelegramThreadID, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, n)
	}
	if cfg.NotificationOutputDir != "" {
		w, err := notifyfile.NewWriter(cfg.NotificationOutputDir, nil, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, w)
	}
	if cfg.KafkaEnabled {
		p := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaEventsTopic, logger)
		sinks = append(sinks, p)
		a.closers = append(a.closers, p)
	}
	if len(sinks) == 0 {
		logger.Warn("no sinks configured, alerts will only be logged and counted")
	}

	var opts []pipeline.Option
	if cfg.ZipBoundariesFile != "" {
		dir, err := zipcode.Load(cfg.ZipBoundariesFile, cfg.ZipWhitelistFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithFilter(dir))
		logger.Info("zip code filter enabled", "boundaries", cfg.ZipBoundariesFile, "whitelist", cfg.ZipWhitelistFile)
	}
	if cfg.GeocodeEnabled() {
		client := geocode.NewClient(cfg.GeocodeAPIKey, cfg.GeocodeTimeout, cfg.GeocodeRateLimit, metrics, logger)
		opts = append(opts, pipeline.WithGeocoder(geocode.NewCachedGeocoder(client, cfg.GeocodeCacheSize, metrics)))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("reverse geocoding enabled", "cache_size", cfg.GeocodeCacheSize, "timeout", cfg.GeocodeTimeout)
	} else {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("reverse geocoding disabled")
	}

	a.runner = pipeline.New(sources, sinks, logger, metrics, opts...)
	return a, nil
}

// Close releases sink resources.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
