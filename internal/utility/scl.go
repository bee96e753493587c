package utility

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

// sclOutage is one element of Seattle City Light's outage array. Times are
// epoch milliseconds in UTC; rings are [lon, lat] pairs and an outage may
// have several.
type sclOutage struct {
	ID        flexString `json:"id"`
	StartTime int64      `json:"startTime"`
	NumPeople int        `json:"numPeople"`
	Status    string     `json:"status"`
	Cause     string     `json:"cause"`
	EtrTime   int64      `json:"etrTime"`
	Polygons  struct {
		Rings [][][]float64 `json:"rings"`
	} `json:"polygons"`
}

type scl struct {
	logger *slog.Logger
}

func (*scl) Utility() domain.Utility { return domain.UtilitySCL }
func (*scl) FileSuffix() string      { return "-scl-events.json" }

func (s *scl) Normalize(r io.Reader, snapshotTime time.Time) ([]domain.OutageRecord, error) {
	var outages []sclOutage
	if err := json.NewDecoder(r).Decode(&outages); err != nil {
		return nil, fmt.Errorf("decode scl payload: %w", err)
	}

	records := make([]domain.OutageRecord, 0, len(outages))
	for _, o := range outages {
		if o.ID == "" {
			s.logger.Warn("skipping outage without id")
			continue
		}

		rings := sclRings(o.Polygons.Rings)
		circle := domain.MinimumEnclosingCircle(rings)

		records = append(records, domain.OutageRecord{
			Utility:           domain.UtilitySCL,
			OutageID:          string(o.ID),
			SnapshotTime:      snapshotTime.UTC(),
			StartTime:         epochMillis(o.StartTime),
			CustomersImpacted: o.NumPeople,
			Status:            o.Status,
			Cause:             o.Cause,
			EstRestoration:    optionalTime(epochMillis(o.EtrTime)),
			CenterLon:         circle.Center[0],
			CenterLat:         circle.Center[1],
			Radius:            circle.Radius,
			Rings:             rings,
		})
	}
	return records, nil
}

func sclRings(raw [][][]float64) []orb.Ring {
	rings := make([]orb.Ring, 0, len(raw))
	for _, r := range raw {
		ring := make(orb.Ring, 0, len(r))
		for _, pt := range r {
			if len(pt) < 2 {
				continue
			}
			ring = append(ring, orb.Point{pt[0], pt[1]})
		}
		rings = append(rings, ring)
	}
	return rings
}
