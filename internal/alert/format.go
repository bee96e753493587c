// Package alert renders lifecycle events as the human-readable messages sent
// to chat and written to notification files.
package alert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

// Format renders event as a message. The event's Location should already be
// resolved; an empty Location is omitted.
func Format(event domain.LifecycleEvent) string {
	return FormatEscaped(event, nil)
}

// FormatEscaped is Format with the vendor-supplied fields (outage id, status,
// cause and reasons) passed through escape, for destinations that parse
// markup. Location is written as is since it may already be a link. A nil
// escape leaves every field untouched.
func FormatEscaped(event domain.LifecycleEvent, escape func(string) string) string {
	if escape == nil {
		escape = func(s string) string { return s }
	}
	rec := event.Snapshot
	var b strings.Builder

	switch event.Kind {
	case domain.EventResolved:
		b.WriteString("😌 RESOLVED OUTAGE ALERT 😌\n\n")
	case domain.EventEscalated:
		b.WriteString("🚨 ESCALATED OUTAGE ALERT 🚨\n\n")
	default:
		b.WriteString("🚨 NEW OUTAGE ALERT 🚨\n\n")
	}

	fmt.Fprintf(&b, "Utility: %s\n", strings.ToUpper(string(event.Utility)))
	fmt.Fprintf(&b, "ID: %s\n", escape(event.OutageID))
	fmt.Fprintf(&b, "Customers: %s\n", thousands(rec.CustomersImpacted))

	if event.Kind == domain.EventResolved {
		if elapsed := rec.ElapsedTimeMinutes(); elapsed != nil {
			fmt.Fprintf(&b, "Actual Duration: %s\n", hours(*elapsed))
		}
	} else {
		if elapsed := rec.ElapsedTimeMinutes(); elapsed != nil {
			fmt.Fprintf(&b, "Current Duration: %s\n", hours(*elapsed))
		}
		if expected := rec.ExpectedLengthMinutes(); expected != nil {
			fmt.Fprintf(&b, "Expected Duration: %s\n", hours(*expected))
		}
		if rec.EstRestoration != nil {
			fmt.Fprintf(&b, "Est. Restoration: %s\n", rec.EstRestoration.UTC().Format("2006-01-02 15:04 MST"))
		}
		fmt.Fprintf(&b, "Status: %s\n", escape(orUnknown(rec.Status)))
		fmt.Fprintf(&b, "Cause: %s\n", escape(orUnknown(rec.Cause)))
	}

	if event.Kind == domain.EventEscalated && len(event.Reasons) > 0 {
		fmt.Fprintf(&b, "Why: %s\n", escape(strings.Join(event.Reasons, ", ")))
	}
	if event.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", event.Location)
	}
	return b.String()
}

func hours(minutes int) string {
	return fmt.Sprintf("%.1fh", float64(minutes)/60)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

// thousands formats n with comma separators, e.g. 12345 -> "12,345".
func thousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
