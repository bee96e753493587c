package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// eventNamespace scopes the name-based UUIDs generated for lifecycle events.
var eventNamespace = uuid.MustParse("6f0d7a4e-3c1b-4f0e-9a52-7d8c1e2b4a90")

func newEvent(kind EventKind, rec OutageRecord, reasons []string) LifecycleEvent {
	return LifecycleEvent{
		ID:         eventID(kind, rec),
		Kind:       kind,
		OutageID:   rec.OutageID,
		Utility:    rec.Utility,
		Snapshot:   rec,
		Reasons:    reasons,
		DetectedAt: clock.Now(),
	}
}

// eventID is a deterministic UUIDv5 over utility, outage, kind and snapshot
// time, so replaying the same history yields the same ids and downstream
// consumers can deduplicate.
func eventID(kind EventKind, rec OutageRecord) string {
	name := fmt.Sprintf("%s|%s|%s|%s", rec.Utility, rec.OutageID, kind, rec.SnapshotTime.UTC().Format(time.RFC3339))
	return uuid.NewSHA1(eventNamespace, []byte(name)).String()
}
