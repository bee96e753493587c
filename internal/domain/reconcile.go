package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInsufficientHistory means fewer than two snapshots were available, so
	// there was nothing to compare. It is distinct from a run with no events.
	ErrInsufficientHistory = errors.New("insufficient snapshot history")

	// ErrMixedUtilities means the snapshots passed to Reconcile span more than one utility.
	ErrMixedUtilities = errors.New("snapshots span multiple utilities")

	// ErrUnorderedSnapshots means the snapshots are not in ascending time order.
	ErrUnorderedSnapshots = errors.New("snapshots are not in ascending time order")
)

// Reconciler walks a time-ordered sequence of snapshots for one utility and
// emits the lifecycle events an operator should hear about. A Reconciler holds
// no state between calls; run one per utility.
type Reconciler struct {
	cfg ThresholdConfig
}

// NewReconciler validates cfg and returns a Reconciler that applies it.
func NewReconciler(cfg ThresholdConfig) (*Reconciler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Reconciler{cfg: cfg}, nil
}

// Reconcile compares every consecutive pair of snapshots and returns the
// events in the order they occurred. The first snapshot only establishes
// history.
func (r *Reconciler) Reconcile(snapshots []Snapshot) ([]LifecycleEvent, error) {
	return r.ReconcileSince(snapshots, time.Time{})
}

// ReconcileSince validates the whole history like Reconcile but only diffs
// the steps whose current snapshot was captured after since. A zero since
// diffs every step.
func (r *Reconciler) ReconcileSince(snapshots []Snapshot, since time.Time) ([]LifecycleEvent, error) {
	if len(snapshots) < 2 {
		return nil, fmt.Errorf("%w: got %d snapshot(s), need at least 2", ErrInsufficientHistory, len(snapshots))
	}
	if err := checkSequence(snapshots); err != nil {
		return nil, err
	}

	var events []LifecycleEvent
	previous := snapshots[0]
	for _, current := range snapshots[1:] {
		if since.IsZero() || current.Time.After(since) {
			events = append(events, r.Diff(previous, current)...)
		}
		previous = current
	}
	return events, nil
}

// Diff returns the events for a single step from previous to current:
// New outages first, then Escalated, then Resolved.
func (r *Reconciler) Diff(previous, current Snapshot) []LifecycleEvent {
	prevByID := indexRecords(previous.Records)
	curByID := indexRecords(current.Records)

	var created, escalated, resolved []LifecycleEvent

	for _, rec := range uniqueRecords(current.Records) {
		cur := Assess(rec, r.cfg)
		prevRec, seen := prevByID[rec.OutageID]
		if !seen {
			if cur.Result.Overall {
				created = append(created, newEvent(EventNew, rec, nil))
			}
			continue
		}

		prev := Assess(prevRec, r.cfg)
		if escalates(prev, cur, r.cfg) {
			escalated = append(escalated, newEvent(EventEscalated, rec, Explain(prev, cur)))
		}
	}

	for _, rec := range uniqueRecords(previous.Records) {
		if _, still := curByID[rec.OutageID]; still {
			continue
		}
		if Evaluate(rec, r.cfg).Overall {
			resolved = append(resolved, newEvent(EventResolved, rec, nil))
		}
	}

	events := make([]LifecycleEvent, 0, len(created)+len(escalated)+len(resolved))
	events = append(events, created...)
	events = append(events, escalated...)
	return append(events, resolved...)
}

// escalates applies the two independent escalation triggers: the record
// became notifiable, or its customer count crossed the large-outage threshold.
func escalates(prev, cur Assessment, cfg ThresholdConfig) bool {
	if cur.Result.Overall && !prev.Result.Overall {
		return true
	}
	return cur.Record.CustomersImpacted >= cfg.LargeOutageCustomers &&
		prev.Record.CustomersImpacted < cfg.LargeOutageCustomers
}

// indexRecords maps outage ids to records. The first record wins when a
// snapshot repeats an id.
func indexRecords(records []OutageRecord) map[string]OutageRecord {
	byID := make(map[string]OutageRecord, len(records))
	for _, rec := range records {
		if _, dup := byID[rec.OutageID]; !dup {
			byID[rec.OutageID] = rec
		}
	}
	return byID
}

// uniqueRecords drops repeated ids, keeping snapshot order and the first occurrence.
func uniqueRecords(records []OutageRecord) []OutageRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]OutageRecord, 0, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.OutageID]; dup {
			continue
		}
		seen[rec.OutageID] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func checkSequence(snapshots []Snapshot) error {
	utility := snapshots[0].Utility
	for i, s := range snapshots {
		if s.Utility != utility {
			return fmt.Errorf("%w: %q and %q", ErrMixedUtilities, utility, s.Utility)
		}
		if i > 0 && s.Time.Before(snapshots[i-1].Time) {
			return fmt.Errorf("%w: %s after %s", ErrUnorderedSnapshots,
				s.Time.Format("2006-01-02T15:04:05Z07:00"),
				snapshots[i-1].Time.Format("2006-01-02T15:04:05Z07:00"))
		}
	}
	return nil
}
