// Package utility normalizes each utility's outage-map payload into
// domain.OutageRecord values. Every supported utility has one Normalizer,
// chosen once with For.
package utility

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

// Normalizer parses one snapshot file for a single utility.
type Normalizer interface {
	// Utility is the data source this normalizer understands.
	Utility() domain.Utility
	// FileSuffix is the trailing part of snapshot file names, after the timestamp.
	FileSuffix() string
	// Normalize parses the payload captured at snapshotTime. Individual
	// records with missing essentials are skipped; a payload that cannot be
	// parsed at all is an error.
	Normalize(r io.Reader, snapshotTime time.Time) ([]domain.OutageRecord, error)
}

// For returns the normalizer for u. A nil logger discards skip notices.
func For(u domain.Utility, logger *slog.Logger) (Normalizer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("utility", string(u))

	switch u {
	case domain.UtilityPSE:
		return &pse{logger: logger}, nil
	case domain.UtilitySCL:
		return &scl{logger: logger}, nil
	case domain.UtilitySnoPUD:
		return &snoPUD{logger: logger}, nil
	case domain.UtilityPGE:
		return &pge{logger: logger}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownUtility, u)
	}
}

// flexString accepts a JSON string or number, as vendors are not consistent
// about id types.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// epochMillis converts a UTC epoch-milliseconds timestamp. Zero means unknown.
func epochMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
