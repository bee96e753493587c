package domain

import (
	"fmt"
	"strconv"
)

// FallbackReason is returned by Explain when no individual criterion flipped.
const FallbackReason = "threshold crossed"

// Explain lists the criteria that went from unmet to met between prev and cur,
// e.g. "customers (75=>1500)". Primary criteria come first in the order
// expected length, customers, elapsed time; the large-outage crossing is last.
func Explain(prev, cur Assessment) []string {
	var reasons []string

	if !prev.Result.ExpectedLengthMet && cur.Result.ExpectedLengthMet {
		reasons = append(reasons, fragment("expected length minutes",
			formatMinutes(prev.Record.ExpectedLengthMinutes()),
			formatMinutes(cur.Record.ExpectedLengthMinutes())))
	}
	if !prev.Result.CustomersMet && cur.Result.CustomersMet {
		reasons = append(reasons, fragment("customers",
			strconv.Itoa(prev.Record.CustomersImpacted),
			strconv.Itoa(cur.Record.CustomersImpacted)))
	}
	if !prev.Result.ElapsedMet && cur.Result.ElapsedMet {
		reasons = append(reasons, fragment("elapsed minutes",
			formatMinutes(prev.Record.ElapsedTimeMinutes()),
			formatMinutes(cur.Record.ElapsedTimeMinutes())))
	}
	if !prev.Result.LargeMet && cur.Result.LargeMet {
		reasons = append(reasons, fragment("large outage customers",
			strconv.Itoa(prev.Record.CustomersImpacted),
			strconv.Itoa(cur.Record.CustomersImpacted)))
	}

	if len(reasons) == 0 {
		return []string{FallbackReason}
	}
	return reasons
}

func fragment(name, before, after string) string {
	return fmt.Sprintf("%s (%s=>%s)", name, before, after)
}

func formatMinutes(m *int) string {
	if m == nil {
		return "unknown"
	}
	return strconv.Itoa(*m)
}
