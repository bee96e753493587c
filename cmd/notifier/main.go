// Command notifier turns a directory of polled utility outage-map snapshots
// into new, escalated and resolved outage alerts.
//
// Usage:
//
//	notifier run -u pse -d data/pse -c 100 -l 1000
//	notifier watch
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/outage-alert-etl/internal/observability"
)

// Process exit codes.
const (
	exitOK                  = 0
	exitFailure             = 1
	exitInsufficientHistory = 3
)

// exitError carries a specific process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(observability.NewMetrics()).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(exitCode(err))
}
