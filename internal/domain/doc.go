// Package domain models electric-utility outage snapshots and decides which
// outage transitions deserve a human alert.
//
// # Data Source
//
// Each supported utility (PSE, Seattle City Light, Snohomish PUD, PG&E)
// publishes an outage map that is polled periodically. Every poll becomes a
// [Snapshot]: the full set of outages that utility reported at that moment.
// Vendor payloads are normalized into [OutageRecord] values by the utility
// package before they reach this package.
//
// # Conventions
//
// Times:
//
//	All instants are UTC. A missing estimated restoration time is a nil
//	pointer, never a sentinel string. A zero StartTime or SnapshotTime means
//	the upstream value could not be parsed; derived durations that depend on
//	it are nil.
//
// Derived durations (minutes, truncated toward zero):
//
//	expected length = est. restoration - snapshot time
//	elapsed time    = snapshot time - start time
//
// Geometry:
//
//	Coordinates are (lon, lat) degrees. Each outage footprint is summarized by
//	its minimum enclosing circle; the radius is in degrees as well.
//
// # Lifecycle
//
// A [Reconciler] walks consecutive snapshot pairs for one utility and emits:
//
//	New       - id absent before, notifiable now
//	Escalated - id present in both, became notifiable, or crossed the
//	            large-outage customer threshold
//	Resolved  - id gone, was notifiable in its last known state
//
// Records are matched purely by outage id. An id renumbered upstream is seen
// as one outage resolving and another starting; this is a known limitation.
//
// An alert fires once per transition. An outage that stays notifiable does
// not re-alert until it drops below the thresholds and crosses them again.
package domain
