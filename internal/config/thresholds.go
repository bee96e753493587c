package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

// Default thresholds, in the units operators pass on the command line.
const (
	DefaultMinRemainingHours    = 0.0
	DefaultMinCustomers         = 100
	DefaultMinElapsedHours      = 0.0
	DefaultLargeOutageCustomers = 1000
)

// Thresholds converts operator units (hours) into a domain.ThresholdConfig
// (minutes) and validates it.
func Thresholds(remainingHours float64, customers int, elapsedHours float64, largeCustomers int) (domain.ThresholdConfig, error) {
	t := domain.ThresholdConfig{
		MinRemainingMinutes:  remainingHours * 60,
		MinCustomers:         customers,
		MinElapsedMinutes:    elapsedHours * 60,
		LargeOutageCustomers: largeCustomers,
	}
	if err := t.Validate(); err != nil {
		return domain.ThresholdConfig{}, err
	}
	return t, nil
}

// ThresholdOverride replaces individual thresholds for one utility. Unset
// fields keep the base value.
type ThresholdOverride struct {
	MinRemainingHours    *float64 `yaml:"min_remaining_hours"`
	MinCustomers         *int     `yaml:"min_customers"`
	MinElapsedHours      *float64 `yaml:"min_elapsed_hours"`
	LargeOutageCustomers *int     `yaml:"large_outage_customers"`
}

// Apply returns base with the override's set fields substituted.
func (o ThresholdOverride) Apply(base domain.ThresholdConfig) domain.ThresholdConfig {
	if o.MinRemainingHours != nil {
		base.MinRemainingMinutes = *o.MinRemainingHours * 60
	}
	if o.MinCustomers != nil {
		base.MinCustomers = *o.MinCustomers
	}
	if o.MinElapsedHours != nil {
		base.MinElapsedMinutes = *o.MinElapsedHours * 60
	}
	if o.LargeOutageCustomers != nil {
		base.LargeOutageCustomers = *o.LargeOutageCustomers
	}
	return base
}

// ThresholdSet resolves the thresholds for each utility.
type ThresholdSet struct {
	Base      domain.ThresholdConfig
	Overrides map[domain.Utility]ThresholdOverride
}

// For returns the thresholds to use for u.
func (s ThresholdSet) For(u domain.Utility) domain.ThresholdConfig {
	if o, ok := s.Overrides[u]; ok {
		return o.Apply(s.Base)
	}
	return s.Base
}

// LoadThresholdOverrides reads a YAML file keyed by utility name:
//
//	snopud:
//	  min_customers: 50
//	  large_outage_customers: 500
//
// An empty path yields no overrides. Every resulting config is validated
// against base.
func LoadThresholdOverrides(path string, base domain.ThresholdConfig) (map[domain.Utility]ThresholdOverride, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read THRESHOLDS_FILE: %w", err)
	}

	var raw map[string]ThresholdOverride
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse THRESHOLDS_FILE: %w", err)
	}

	out := make(map[domain.Utility]ThresholdOverride, len(raw))
	for name, o := range raw {
		u, err := domain.ParseUtility(name)
		if err != nil {
			return nil, fmt.Errorf("THRESHOLDS_FILE: %w", err)
		}
		if err := o.Apply(base).Validate(); err != nil {
			return nil, fmt.Errorf("THRESHOLDS_FILE %s: %w", name, err)
		}
		out[u] = o
	}
	return out, nil
}
