// Package config loads notifier settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	SnapshotDir     string
	Utilities       []domain.Utility
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	Schedule        string

	// NotificationOutputDir enables the file sink when non-empty.
	NotificationOutputDir string

	TelegramToken    string
	TelegramChatID   string
	TelegramThreadID string

	// Reverse geocoding is enabled when GeocodeAPIKey is set.
	GeocodeAPIKey    string
	GeocodeTimeout   time.Duration
	GeocodeCacheSize int
	GeocodeRateLimit float64

	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaEventsTopic string

	ZipBoundariesFile string
	ZipWhitelistFile  string

	ThresholdsFile string
}

// TelegramEnabled reports whether chat delivery is configured.
func (c *Config) TelegramEnabled() bool { return c.TelegramToken != "" }

// GeocodeEnabled reports whether reverse geocoding is configured.
func (c *Config) GeocodeEnabled() bool { return c.GeocodeAPIKey != "" }

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present; it
// never overrides variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	utilities, err := parseUtilities(sharedcfg.EnvOrDefault("UTILITIES", "pse,scl,snopud,pge"))
	if err != nil {
		return nil, err
	}

	schedule := sharedcfg.EnvOrDefault("SCHEDULE", "@every 5m")
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE: %w", err)
	}

	geocodeTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("GEOCODE_TIMEOUT", "5s"))
	if err != nil || geocodeTimeout <= 0 {
		return nil, errors.New("invalid GEOCODE_TIMEOUT")
	}

	geocodeCacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("GEOCODE_CACHE_SIZE", "1000"))
	if err != nil || geocodeCacheSize <= 0 {
		return nil, errors.New("invalid GEOCODE_CACHE_SIZE")
	}

	geocodeRate, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GEOCODE_RATE_LIMIT", "1"), 64)
	if err != nil || geocodeRate <= 0 {
		return nil, errors.New("invalid GEOCODE_RATE_LIMIT")
	}

	kafkaEnabled, err := strconv.ParseBool(sharedcfg.EnvOrDefault("KAFKA_ENABLED", "false"))
	if err != nil {
		return nil, errors.New("invalid KAFKA_ENABLED")
	}

	cfg := &Config{
		SnapshotDir:     sharedcfg.EnvOrDefault("SNAPSHOT_DIR", "."),
		Utilities:       utilities,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		Schedule:        schedule,

		NotificationOutputDir: os.Getenv("NOTIFICATION_OUTPUT_DIR"),

		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		TelegramThreadID: os.Getenv("TELEGRAM_THREAD_ID"),

		GeocodeAPIKey:    os.Getenv("GEOCODE_API_KEY"),
		GeocodeTimeout:   geocodeTimeout,
		GeocodeCacheSize: geocodeCacheSize,
		GeocodeRateLimit: geocodeRate,

		KafkaEnabled:     kafkaEnabled,
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaEventsTopic: sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "outage-lifecycle-events"),

		ZipBoundariesFile: os.Getenv("ZIP_BOUNDARIES_FILE"),
		ZipWhitelistFile:  os.Getenv("ZIP_WHITELIST_FILE"),

		ThresholdsFile: os.Getenv("THRESHOLDS_FILE"),
	}

	if cfg.SnapshotDir == "" {
		return nil, errors.New("SNAPSHOT_DIR is required")
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == "" {
		return nil, errors.New("TELEGRAM_TOKEN is set but TELEGRAM_CHAT_ID is not")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaEventsTopic == "" {
			return nil, errors.New("KAFKA_EVENTS_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	if cfg.ZipWhitelistFile != "" && cfg.ZipBoundariesFile == "" {
		return nil, errors.New("ZIP_WHITELIST_FILE requires ZIP_BOUNDARIES_FILE")
	}

	return cfg, nil
}

func parseUtilities(s string) ([]domain.Utility, error) {
	var out []domain.Utility
	seen := make(map[domain.Utility]bool)
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		u, err := domain.ParseUtility(name)
		if err != nil {
			return nil, fmt.Errorf("invalid UTILITIES: %w", err)
		}
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("UTILITIES is required")
	}
	return out, nil
}
