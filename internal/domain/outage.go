package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"
)

// Utility identifies the electric utility an outage map was captured from.
type Utility string

const (
	UtilityPSE    Utility = "pse"
	UtilitySCL    Utility = "scl"
	UtilitySnoPUD Utility = "snopud"
	UtilityPGE    Utility = "pge"
)

// Utilities lists every supported utility in a stable order.
var Utilities = []Utility{UtilityPSE, UtilitySCL, UtilitySnoPUD, UtilityPGE}

// ErrUnknownUtility is returned when a utility name is not one of Utilities.
var ErrUnknownUtility = errors.New("unknown utility")

// ParseUtility validates a utility name such as "pse" or "snopud".
func ParseUtility(s string) (Utility, error) {
	for _, u := range Utilities {
		if string(u) == s {
			return u, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUtility, s)
}

// OutageRecord is one utility's view of a single outage at one snapshot.
// Records are never mutated across snapshots; each poll produces new values.
type OutageRecord struct {
	Utility           Utility    `json:"utility"`
	OutageID          string     `json:"outage_id"`
	SnapshotTime      time.Time  `json:"snapshot_time"`
	StartTime         time.Time  `json:"start_time"`
	CustomersImpacted int        `json:"customers_impacted"`
	Status            string     `json:"status,omitempty"`
	Cause             string     `json:"cause,omitempty"`
	EstRestoration    *time.Time `json:"est_restoration_time,omitempty"`

	// Geometric summary in degrees (see MinimumEnclosingCircle).
	CenterLon float64 `json:"center_lon"`
	CenterLat float64 `json:"center_lat"`
	Radius    float64 `json:"radius"`

	// Rings is the outage footprint the circle was derived from.
	Rings []orb.Ring `json:"-"`
}

// ExpectedLengthMinutes is the remaining time until the estimated restoration,
// measured from the snapshot. Nil when either time is unknown.
func (r OutageRecord) ExpectedLengthMinutes() *int {
	if r.EstRestoration == nil || r.EstRestoration.IsZero() || r.SnapshotTime.IsZero() {
		return nil
	}
	return minutesBetween(r.SnapshotTime, *r.EstRestoration)
}

// ElapsedTimeMinutes is how long the outage has been active at the snapshot.
// Nil when either time is unknown.
func (r OutageRecord) ElapsedTimeMinutes() *int {
	if r.StartTime.IsZero() || r.SnapshotTime.IsZero() {
		return nil
	}
	return minutesBetween(r.StartTime, r.SnapshotTime)
}

// minutesBetween truncates toward zero, so -90s is -1 and 90s is 1.
func minutesBetween(from, to time.Time) *int {
	m := int(to.Sub(from).Minutes())
	return &m
}

// Snapshot is every outage one utility reported at one point in time.
type Snapshot struct {
	Utility Utility        `json:"utility"`
	Time    time.Time      `json:"time"`
	Records []OutageRecord `json:"records"`
}

// ThresholdConfig holds the alert criteria for one run. All fields are in
// minutes or customer counts and must be non-negative.
type ThresholdConfig struct {
	MinRemainingMinutes  float64 `json:"min_remaining_minutes" yaml:"min_remaining_minutes" validate:"gte=0"`
	MinCustomers         int     `json:"min_customers" yaml:"min_customers" validate:"gte=0"`
	MinElapsedMinutes    float64 `json:"min_elapsed_minutes" yaml:"min_elapsed_minutes" validate:"gte=0"`
	LargeOutageCustomers int     `json:"large_outage_customers" yaml:"large_outage_customers" validate:"gte=0"`
}

// ErrInvalidThresholds is returned by ThresholdConfig.Validate.
var ErrInvalidThresholds = errors.New("invalid threshold config")

var validate = validator.New()

// Validate rejects negative thresholds.
func (c ThresholdConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidThresholds, err)
	}
	return nil
}

// NotifiabilityResult reports which alert criteria a record satisfies.
type NotifiabilityResult struct {
	ExpectedLengthMet bool `json:"expected_length_met"`
	CustomersMet      bool `json:"customers_met"`
	ElapsedMet        bool `json:"elapsed_met"`
	PrimaryMet        bool `json:"primary_met"`
	LargeMet          bool `json:"large_met"`
	Overall           bool `json:"overall"`
}

// EventKind is the lifecycle transition an event reports.
type EventKind string

const (
	EventNew       EventKind = "new"
	EventEscalated EventKind = "escalated"
	EventResolved  EventKind = "resolved"
)

// LifecycleEvent is one alert-worthy transition of an outage.
type LifecycleEvent struct {
	ID       string       `json:"id"`
	Kind     EventKind    `json:"kind"`
	OutageID string       `json:"outage_id"`
	Utility  Utility      `json:"utility"`
	Snapshot OutageRecord `json:"snapshot"`
	Reasons  []string     `json:"reasons,omitempty"`

	// Location is filled in at delivery time by LocateEvent.
	Location   string    `json:"location,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}
