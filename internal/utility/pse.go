package utility

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // PSE times are US/Pacific wall clock

	"github.com/paulmach/orb"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

const (
	pseTimeLayout = "2006/01/02 3:04 PM"
	// PSE usually omits the year ("01/15 8:00 AM"); anything this short gets
	// the snapshot's year prepended.
	pseShortTimeLen = 14
)

var errEmptyTime = errors.New("empty time")

var pacific = mustLoadLocation("America/Los_Angeles")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// PSE has renamed its attributes over time; each lookup tries every known name.
var (
	pseIDAttrs        = []string{"OutageEventId", "Outage ID", "Outage ID:", ""}
	pseStartAttrs     = []string{"StartDate", "Start time"}
	pseRestoreAttrs   = []string{"Est. Restoration time", "Est. restoration time"}
	pseCustomersAttrs = []string{"Customers impacted"}
	pseStatusAttrs    = []string{"Status"}
	pseCauseAttrs     = []string{"Cause"}
)

type pseFile struct {
	PseMap []pseOutage `json:"PseMap"`
}

type pseOutage struct {
	DataProvider struct {
		Attributes []pseAttribute `json:"Attributes"`
	} `json:"DataProvider"`
	Polygon []pseLatLon `json:"Polygon"`
}

type pseAttribute struct {
	Name    string `json:"Name"`
	RefName string `json:"RefName"`
	Value   string `json:"Value"`
}

type pseLatLon struct {
	Latitude  string `json:"Latitude"`
	Longitude string `json:"Longitude"`
}

type pse struct {
	logger *slog.Logger
}

func (*pse) Utility() domain.Utility { return domain.UtilityPSE }
func (*pse) FileSuffix() string      { return "-pse-events.json" }

func (p *pse) Normalize(r io.Reader, snapshotTime time.Time) ([]domain.OutageRecord, error) {
	var file pseFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode pse payload: %w", err)
	}

	records := make([]domain.OutageRecord, 0, len(file.PseMap))
	for _, outage := range file.PseMap {
		attrs := outage.DataProvider.Attributes

		id := pseAttr(attrs, pseIDAttrs...)
		if !strings.HasPrefix(id, "INC") {
			p.logger.Warn("skipping outage without INC id", "outage_id", id)
			continue
		}

		customers, err := strconv.Atoi(strings.TrimSpace(pseAttr(attrs, pseCustomersAttrs...)))
		if err != nil {
			p.logger.Warn("skipping outage with invalid customer count", "outage_id", id, "error", err)
			continue
		}

		start, err := parsePSETime(pseAttr(attrs, pseStartAttrs...), snapshotTime)
		if err != nil {
			p.logger.Warn("unparseable start time", "outage_id", id, "error", err)
		}
		restore, err := parsePSETime(pseAttr(attrs, pseRestoreAttrs...), snapshotTime)
		if err != nil {
			p.logger.Debug("no restoration estimate", "outage_id", id, "error", err)
		}

		ring := pseRing(outage.Polygon)
		circle := domain.MinimumEnclosingCircle([]orb.Ring{ring})

		records = append(records, domain.OutageRecord{
			Utility:           domain.UtilityPSE,
			OutageID:          id,
			SnapshotTime:      snapshotTime.UTC(),
			StartTime:         start,
			CustomersImpacted: customers,
			Status:            pseAttr(attrs, pseStatusAttrs...),
			Cause:             pseAttr(attrs, pseCauseAttrs...),
			EstRestoration:    optionalTime(restore),
			CenterLon:         circle.Center[0],
			CenterLat:         circle.Center[1],
			Radius:            circle.Radius,
			Rings:             []orb.Ring{ring},
		})
	}
	return records, nil
}

// pseAttr returns the first non-empty value whose RefName or Name matches one
// of names, trying names in order.
func pseAttr(attrs []pseAttribute, names ...string) string {
	for _, name := range names {
		for _, a := range attrs {
			if (a.RefName == name || a.Name == name) && a.Value != "" {
				return a.Value
			}
		}
	}
	return ""
}

// parsePSETime parses PSE's Pacific wall-clock format into UTC.
func parsePSETime(s string, snapshotTime time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyTime
	}
	if len(s) <= pseShortTimeLen {
		s = fmt.Sprintf("%d/%s", snapshotTime.In(pacific).Year(), s)
	}
	t, err := time.ParseInLocation(pseTimeLayout, s, pacific)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse pse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func pseRing(points []pseLatLon) orb.Ring {
	ring := make(orb.Ring, 0, len(points))
	for _, pt := range points {
		lat, err := strconv.ParseFloat(strings.TrimSpace(pt.Latitude), 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(pt.Longitude), 64)
		if err != nil {
			continue
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	return ring
}
