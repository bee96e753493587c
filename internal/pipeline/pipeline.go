// Package pipeline runs the load, filter, reconcile, locate and deliver cycle
// for each utility.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
	"github.com/couchcryptid/outage-alert-etl/internal/observability"
)

// SnapshotSource returns a utility's snapshots in ascending capture order.
type SnapshotSource interface {
	Load(ctx context.Context) ([]domain.Snapshot, error)
}

// Sink delivers lifecycle events to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event domain.LifecycleEvent) error
}

// ThresholdSource resolves the alert thresholds for a utility.
type ThresholdSource interface {
	For(u domain.Utility) domain.ThresholdConfig
}

// Result summarizes one run for one utility.
type Result struct {
	Utility          domain.Utility          `json:"utility"`
	Snapshots        int                     `json:"snapshots"`
	Filtered         int                     `json:"filtered"`
	Events           []domain.LifecycleEvent `json:"events"`
	DeliveryFailures int                     `json:"delivery_failures"`
}

// Counts tallies Events by kind.
func (r Result) Counts() map[domain.EventKind]int {
	counts := make(map[domain.EventKind]int)
	for _, e := range r.Events {
		counts[e.Kind]++
	}
	return counts
}

// RunStatus is the latest outcome for a utility, as served on /status.
type RunStatus struct {
	LastRun          time.Time                `json:"last_run"`
	Snapshots        int                      `json:"snapshots"`
	Events           map[domain.EventKind]int `json:"events"`
	DeliveryFailures int                      `json:"delivery_failures"`
	DeliveredThrough time.Time                `json:"delivered_through,omitzero"`
	Error            string                   `json:"error,omitempty"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithFilter restricts reconciliation to outages inside filter.
func WithFilter(filter domain.AreaFilter) Option {
	return func(r *Runner) { r.filter = filter }
}

// WithGeocoder enables reverse-geocoded event locations.
func WithGeocoder(geocoder domain.Geocoder) Option {
	return func(r *Runner) { r.geocoder = geocoder }
}

// WithClock overrides the clock used for run timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(r *Runner) { r.clock = clock }
}

// Runner orchestrates runs. Every run re-reads and validates the full
// snapshot history, but only steps captured after the utility's watermark are
// delivered, so repeated runs over the same files alert once.
type Runner struct {
	sources  map[domain.Utility]SnapshotSource
	sinks    []Sink
	filter   domain.AreaFilter
	geocoder domain.Geocoder
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	ready     atomic.Bool
	mu        sync.Mutex
	status    map[domain.Utility]RunStatus
	watermark map[domain.Utility]time.Time
}

// New creates a Runner reading from sources and delivering to sinks.
func New(sources map[domain.Utility]SnapshotSource, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Runner {
	r := &Runner{
		sources: sources,
		sinks:   sinks,
		clock:   clockwork.NewRealClock(),
		logger:  logger,
		metrics: metrics,
		status:    make(map[domain.Utility]RunStatus),
		watermark: make(map[domain.Utility]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CheckReadiness returns nil once any run has completed successfully.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no reconciliation has completed yet")
	}
	return nil
}

// Status returns the latest RunStatus per utility.
func (r *Runner) Status() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.Utility]RunStatus, len(r.status))
	for u, s := range r.status {
		out[u] = s
	}
	return out
}

// Run performs one batch for utility u and delivers the events of steps not
// yet delivered by this Runner. domain.ErrInsufficientHistory is returned as
// is (wrapped) so callers can tell "nothing to compare" apart from "no
// events". Delivery failures are counted in the Result, not returned.
func (r *Runner) Run(ctx context.Context, u domain.Utility, thresholds domain.ThresholdConfig) (Result, error) {
	start := r.clock.Now()
	res, err := r.run(ctx, u, thresholds, r.logger.With("utility", string(u)))
	r.metrics.ReconcileDuration.WithLabelValues(string(u)).Observe(r.clock.Since(start).Seconds())
	r.recordStatus(u, start, res, err)

	switch {
	case err == nil:
		r.metrics.ReconcileRuns.WithLabelValues(string(u), "success").Inc()
		r.ready.Store(true)
	case errors.Is(err, domain.ErrInsufficientHistory):
		r.metrics.ReconcileRuns.WithLabelValues(string(u), "insufficient_history").Inc()
	default:
		r.metrics.ReconcileRuns.WithLabelValues(string(u), "error").Inc()
	}
	return res, err
}

func (r *Runner) run(ctx context.Context, u domain.Utility, thresholds domain.ThresholdConfig, logger *slog.Logger) (Result, error) {
	result := Result{Utility: u}
	source, ok := r.sources[u]
	if !ok {
		return result, fmt.Errorf("%w: no snapshot source for %q", domain.ErrUnknownUtility, u)
	}

	reconciler, err := domain.NewReconciler(thresholds)
	if err != nil {
		return result, err
	}

	snapshots, err := source.Load(ctx)
	if err != nil {
		return result, fmt.Errorf("load snapshots: %w", err)
	}
	result.Snapshots = len(snapshots)

	for i := range snapshots {
		var dropped int
		snapshots[i], dropped = domain.FilterSnapshot(snapshots[i], r.filter)
		result.Filtered += dropped
	}
	if result.Filtered > 0 {
		r.metrics.RecordsFiltered.WithLabelValues(string(u)).Add(float64(result.Filtered))
	}

	since := r.deliveredThrough(u)
	events, err := reconciler.ReconcileSince(snapshots, since)
	if err != nil {
		return result, err
	}
	result.Events = events
	logger.Info("reconciled",
		"snapshots", len(snapshots),
		"filtered", result.Filtered,
		"events", len(events),
		"since", since,
	)

	for i, event := range events {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		r.metrics.EventsEmitted.WithLabelValues(string(u), string(event.Kind)).Inc()
		event = domain.LocateEvent(ctx, event, r.geocoder, logger)
		result.Events[i] = event
		result.DeliveryFailures += r.deliver(ctx, event, logger)
	}

	// Failed deliveries are not retried; resending would duplicate the alert
	// on every sink that did accept it.
	r.advance(u, snapshots[len(snapshots)-1].Time)
	return result, nil
}

func (r *Runner) deliveredThrough(u domain.Utility) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watermark[u]
}

func (r *Runner) advance(u domain.Utility, through time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if through.After(r.watermark[u]) {
		r.watermark[u] = through
	}
}

// deliver sends event to every sink and returns the number of failures. A
// failing sink does not stop delivery to the others.
func (r *Runner) deliver(ctx context.Context, event domain.LifecycleEvent, logger *slog.Logger) int {
	failures := 0
	for _, sink := range r.sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			failures++
			r.metrics.Deliveries.WithLabelValues(sink.Name(), "error").Inc()
			logger.Error("delivery failed",
				"sink", sink.Name(),
				"kind", event.Kind,
				"outage_id", event.OutageID,
				"error", err,
			)
			continue
		}
		r.metrics.Deliveries.WithLabelValues(sink.Name(), "success").Inc()
		logger.Debug("delivered", "sink", sink.Name(), "kind", event.Kind, "outage_id", event.OutageID)
	}
	return failures
}

func (r *Runner) recordStatus(u domain.Utility, at time.Time, res Result, err error) {
	s := RunStatus{
		LastRun:          at.UTC(),
		Snapshots:        res.Snapshots,
		Events:           res.Counts(),
		DeliveryFailures: res.DeliveryFailures,
	}
	if err != nil {
		s.Error = err.Error()
	}
	r.mu.Lock()
	s.DeliveredThrough = r.watermark[u].UTC()
	r.status[u] = s
	r.mu.Unlock()
}

// RunAll runs every configured utility concurrently, each with its own
// reconciler. Utilities without enough history are logged and skipped; the
// first other failure is returned after all runs finish.
func (r *Runner) RunAll(ctx context.Context, thresholds ThresholdSource) (map[domain.Utility]Result, error) {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make(map[domain.Utility]Result, len(r.sources))
	)
	for u := range r.sources {
		g.Go(func() error {
			res, err := r.Run(ctx, u, thresholds.For(u))
			if errors.Is(err, domain.ErrInsufficientHistory) {
				r.logger.Info("waiting for more snapshots", "utility", string(u), "error", err)
				return nil
			}
			if err != nil {
				r.logger.Error("run failed", "utility", string(u), "error", err)
				return fmt.Errorf("%s: %w", u, err)
			}
			mu.Lock()
			results[u] = res
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return results, err
}
