package domain

// Evaluate reports whether rec currently qualifies for an alert under cfg.
//
// The primary path needs all three of remaining time, customer count and
// elapsed time. An unknown restoration estimate or start time fails its
// criterion rather than erroring, so a record with no ETA can only qualify
// through the large-outage path.
func Evaluate(rec OutageRecord, cfg ThresholdConfig) NotifiabilityResult {
	var res NotifiabilityResult

	if expected := rec.ExpectedLengthMinutes(); expected != nil {
		res.ExpectedLengthMet = float64(*expected) >= cfg.MinRemainingMinutes
	}
	res.CustomersMet = rec.CustomersImpacted >= cfg.MinCustomers
	if elapsed := rec.ElapsedTimeMinutes(); elapsed != nil {
		res.ElapsedMet = float64(*elapsed) >= cfg.MinElapsedMinutes
	}

	res.PrimaryMet = res.ExpectedLengthMet && res.CustomersMet && res.ElapsedMet
	res.LargeMet = rec.CustomersImpacted >= cfg.LargeOutageCustomers
	res.Overall = res.PrimaryMet || res.LargeMet
	return res
}

// Assessment pairs a record with its evaluation so the two travel together
// through reconciliation and reason annotation.
type Assessment struct {
	Record OutageRecord
	Result NotifiabilityResult
}

// Assess evaluates rec and bundles the result with it.
func Assess(rec OutageRecord, cfg ThresholdConfig) Assessment {
	return Assessment{Record: rec, Result: Evaluate(rec, cfg)}
}
