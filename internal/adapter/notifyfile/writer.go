// Package notifyfile writes each alert to its own text file, for audit trails
// and for end-to-end tests that cannot reach a chat service.
package notifyfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/outage-alert-etl/internal/alert"
	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

// maxSuffix bounds the _2, _3, ... suffixes tried when a file name is taken.
const maxSuffix = 100

// Writer stores alerts as notification_<kind>_<outage>_<yyyymmdd_hhmmss>.txt
// under dir, stamped with the snapshot time that produced the event. Existing
// files are never overwritten. It implements pipeline.Sink.
type Writer struct {
	dir    string
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates dir if needed and returns a file sink writing into it.
func NewWriter(dir string, clock clockwork.Clock, logger *slog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create notification dir: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Writer{dir: dir, clock: clock, logger: logger}, nil
}

// Name identifies the sink in logs and metrics.
func (*Writer) Name() string { return "file" }

// Deliver writes the formatted event to a new file.
func (w *Writer) Deliver(ctx context.Context, event domain.LifecycleEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	base := w.basename(event)
	body := []byte(alert.Format(event))
	for n := 1; n <= maxSuffix; n++ {
		name := base + ".txt"
		if n > 1 {
			name = fmt.Sprintf("%s_%d.txt", base, n)
		}
		path := filepath.Join(w.dir, name)
		err := writeNew(path, body)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("write notification: %w", err)
		}
		w.logger.Info("notification saved", "kind", event.Kind, "outage_id", event.OutageID, "path", path)
		return nil
	}
	return fmt.Errorf("write notification: %d files named %s already exist", maxSuffix, base)
}

func (w *Writer) basename(event domain.LifecycleEvent) string {
	at := event.Snapshot.SnapshotTime
	if at.IsZero() {
		at = w.clock.Now()
	}
	return fmt.Sprintf("notification_%s_%s_%s", event.Kind, sanitize(event.OutageID), at.Format("20060102_150405"))
}

// writeNew creates path exclusively and writes body to it.
func writeNew(path string, body []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(body); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// sanitize keeps outage ids from escaping the output directory.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, id)
}
