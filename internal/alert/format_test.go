package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

var snapshotTime = time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC)

func testRecord() domain.OutageRecord {
	eta := snapshotTime.Add(8 * time.Hour)
	return domain.OutageRecord{
		Utility:           domain.UtilityPSE,
		OutageID:          "INC123456",
		SnapshotTime:      snapshotTime,
		StartTime:         snapshotTime.Add(-75 * time.Minute),
		CustomersImpacted: 1500,
		Status:            "Crew assigned",
		Cause:             "Equipment failure",
		EstRestoration:    &eta,
	}
}

func TestFormat_New(t *testing.T) {
	event := domain.LifecycleEvent{
		Kind:     domain.EventNew,
		OutageID: "INC123456",
		Utility:  domain.UtilityPSE,
		Snapshot: testRecord(),
		Location: "[Seattle, WA](https://maps.google.com/maps?q=47.606200,-122.332100)",
	}

	want := "🚨 NEW OUTAGE ALERT 🚨\n\n" +
		"Utility: PSE\n" +
		"ID: INC123456\n" +
		"Customers: 1,500\n" +
		"Current Duration: 1.2h\n" +
		"Expected Duration: 8.0h\n" +
		"Est. Restoration: 2025-01-16 02:00 UTC\n" +
		"Status: Crew assigned\n" +
		"Cause: Equipment failure\n" +
		"Location: [Seattle, WA](https://maps.google.com/maps?q=47.606200,-122.332100)\n"

	assert.Equal(t, want, Format(event))
}

func TestFormat_EscalatedIncludesReasons(t *testing.T) {
	event := domain.LifecycleEvent{
		Kind:     domain.EventEscalated,
		OutageID: "INC123456",
		Utility:  domain.UtilityPSE,
		Snapshot: testRecord(),
		Reasons:  []string{"customers (50=>1500)", "large outage customers (50=>1500)"},
	}

	got := Format(event)
	assert.Contains(t, got, "🚨 ESCALATED OUTAGE ALERT 🚨")
	assert.Contains(t, got, "Why: customers (50=>1500), large outage customers (50=>1500)\n")
	assert.NotContains(t, got, "Location:")
}

func TestFormat_ResolvedShowsActualDuration(t *testing.T) {
	rec := testRecord()
	rec.Status = ""
	event := domain.LifecycleEvent{
		Kind:     domain.EventResolved,
		OutageID: "INC2",
		Utility:  domain.UtilitySnoPUD,
		Snapshot: rec,
		Location: "https://maps.google.com/maps?q=48.000000,-122.000000",
	}

	want := "😌 RESOLVED OUTAGE ALERT 😌\n\n" +
		"Utility: SNOPUD\n" +
		"ID: INC2\n" +
		"Customers: 1,500\n" +
		"Actual Duration: 1.2h\n" +
		"Location: https://maps.google.com/maps?q=48.000000,-122.000000\n"

	assert.Equal(t, want, Format(event))
}

func TestFormat_UnknownFields(t *testing.T) {
	rec := testRecord()
	rec.EstRestoration = nil
	rec.Cause = ""
	event := domain.LifecycleEvent{Kind: domain.EventNew, OutageID: "X", Utility: domain.UtilitySCL, Snapshot: rec}

	got := Format(event)
	assert.NotContains(t, got, "Expected Duration")
	assert.NotContains(t, got, "Est. Restoration")
	assert.Contains(t, got, "Cause: unknown\n")
}

func TestFormatEscaped_OnlyVendorFields(t *testing.T) {
	rec := testRecord()
	rec.OutageID = "INC_1"
	rec.Status = "*Crew* en route"
	rec.Cause = "[Tree]"
	event := domain.LifecycleEvent{
		Kind:     domain.EventNew,
		OutageID: rec.OutageID,
		Utility:  domain.UtilityPSE,
		Snapshot: rec,
		Location: "[Seattle, WA](https://maps.google.com/maps?q=47.606209,-122.332071)",
	}
	bracket := func(s string) string { return "<" + s + ">" }

	msg := FormatEscaped(event, bracket)
	assert.Contains(t, msg, "ID: <INC_1>\n")
	assert.Contains(t, msg, "Status: <*Crew* en route>\n")
	assert.Contains(t, msg, "Cause: <[Tree]>\n")
	assert.Contains(t, msg, "Customers: 1,500\n")
	assert.Contains(t, msg, "Location: [Seattle, WA](https://maps.google.com/maps?q=47.606209,-122.332071)\n")

	assert.Equal(t, Format(event), FormatEscaped(event, nil))
	assert.Contains(t, Format(event), "ID: INC_1\n")
}

func TestThousands(t *testing.T) {
	cases := map[int]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		12345:   "12,345",
		1234567: "1,234,567",
		-4500:   "-4,500",
	}
	for in, want := range cases {
		assert.Equal(t, want, thousands(in))
	}
}
