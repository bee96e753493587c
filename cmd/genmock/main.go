// Command genmock writes outage-map snapshot files for a canned scenario so
// the notifier can be run end to end without a live feed.
//
// Usage:
//
//	go run ./cmd/genmock -scenario escalation -out data/mock
//	go run ./cmd/notifier run -u pse -d data/mock
//	go run ./cmd/genmock -scenario snopud-combined -out data/snopud
//	go run ./cmd/notifier run -u snopud -d data/snopud
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/outage-alert-etl/internal/mockdata"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	scenario := flag.String("scenario", "", "scenario to generate (see -list)")
	out := flag.String("out", "data/mock", "output directory for snapshot files")
	start := flag.String("start", "", "UTC capture time of the first snapshot, RFC3339 (default: now)")
	list := flag.Bool("list", false, "list available scenarios and exit")
	flag.Parse()

	if *list {
		printScenarios()
		return nil
	}

	s, ok := mockdata.Lookup(*scenario)
	if !ok {
		printScenarios()
		return fmt.Errorf("unknown scenario %q", *scenario)
	}

	startTime := time.Now().UTC().Truncate(time.Minute)
	if *start != "" {
		t, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
		startTime = t.UTC()
	}

	paths, err := mockdata.Write(*out, s, startTime)
	if err != nil {
		return err
	}
	for _, p := range paths {
		log.Printf("wrote %s", p)
	}
	log.Printf("%s: %d %s snapshots, expect %s", s.Name, len(paths), s.Utility, expectation(s))
	return nil
}

func printScenarios() {
	fmt.Fprintln(os.Stderr, "scenarios:")
	for _, s := range mockdata.Scenarios() {
		fmt.Fprintf(os.Stderr, "  %-16s %-7s %s\n", s.Name, s.Utility, s.Description)
	}
}

func expectation(s mockdata.Scenario) string {
	if len(s.Want) == 0 {
		return "no events"
	}
	parts := make([]string, 0, len(s.Want))
	for kind, n := range s.Want {
		parts = append(parts, fmt.Sprintf("%d %s", n, kind))
	}
	return strings.Join(parts, ", ")
}
