// Package snapshotfs loads a utility's polled outage-map files from a
// directory, in capture order.
package snapshotfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
	"github.com/couchcryptid/outage-alert-etl/internal/observability"
	"github.com/couchcryptid/outage-alert-etl/internal/utility"
)

// Snapshot file names start with the UTC capture time, optionally followed by
// fractional-second digits, then the utility's suffix:
//
//	2025-01-15T180000-pse-events.json
//	2025-01-15T180000123456-pse-events.json.gz
const timeLayout = "2006-01-02T150405"

const gzipExt = ".gz"

// Source reads snapshots for a single utility.
type Source struct {
	dir        string
	normalizer utility.Normalizer
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewSource creates a Source reading files for normalizer's utility from dir.
func NewSource(dir string, normalizer utility.Normalizer, metrics *observability.Metrics, logger *slog.Logger) *Source {
	return &Source{
		dir:        dir,
		normalizer: normalizer,
		metrics:    metrics,
		logger:     logger.With("utility", string(normalizer.Utility())),
	}
}

type snapshotFile struct {
	path string
	time time.Time
}

// Load parses every snapshot file in ascending capture order. Files that
// cannot be read or parsed are logged and skipped, as if that poll had not
// happened.
func (s *Source) Load(ctx context.Context) ([]domain.Snapshot, error) {
	files, err := s.list()
	if err != nil {
		return nil, err
	}

	u := s.normalizer.Utility()
	snapshots := make([]domain.Snapshot, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records, err := s.readFile(f)
		if err != nil {
			s.metrics.SnapshotErrors.WithLabelValues(string(u)).Inc()
			s.logger.Warn("skipping unreadable snapshot", "path", f.path, "error", err)
			continue
		}
		s.metrics.SnapshotsLoaded.WithLabelValues(string(u)).Inc()
		snapshots = append(snapshots, domain.Snapshot{Utility: u, Time: f.time, Records: records})
	}

	s.logger.Debug("snapshots loaded", "dir", s.dir, "files", len(files), "snapshots", len(snapshots))
	return snapshots, nil
}

func (s *Source) list() ([]snapshotFile, error) {
	suffix := s.normalizer.FileSuffix()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshot dir: %w", err)
	}

	var files []snapshotFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		t, ok := ParseFileTime(name, suffix)
		if !ok {
			continue
		}
		files = append(files, snapshotFile{path: filepath.Join(s.dir, name), time: t})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].time.Equal(files[j].time) {
			return files[i].path < files[j].path
		}
		return files[i].time.Before(files[j].time)
	})
	return files, nil
}

func (s *Source) readFile(f snapshotFile) ([]domain.OutageRecord, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(f.path, gzipExt) {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return s.normalizer.Normalize(r, f.time)
}

// ParseFileTime extracts the UTC capture time from a snapshot file name
// ending in suffix (or suffix plus ".gz"). It reports false for any other file.
func ParseFileTime(name, suffix string) (time.Time, bool) {
	name = strings.TrimSuffix(name, gzipExt)
	prefix, found := strings.CutSuffix(name, suffix)
	if !found || len(prefix) < len(timeLayout) {
		return time.Time{}, false
	}

	t, err := time.ParseInLocation(timeLayout, prefix[:len(timeLayout)], time.UTC)
	if err != nil {
		return time.Time{}, false
	}

	frac := prefix[len(timeLayout):]
	if frac == "" {
		return t, true
	}
	if len(frac) > 9 || strings.Trim(frac, "0123456789") != "" {
		return time.Time{}, false
	}
	// Right-pad to nanoseconds: "123456" is 123456000ns.
	var nanos int
	for i := range 9 {
		nanos *= 10
		if i < len(frac) {
			nanos += int(frac[i] - '0')
		}
	}
	return t.Add(time.Duration(nanos)), true
}
