package utility

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

// pgeRadius is the fixed footprint radius in degrees. PG&E only publishes a
// point per outage.
const pgeRadius = 0.05

type pgeFile struct {
	Features []pgeFeature `json:"features"`
}

type pgeFeature struct {
	Attributes struct {
		OutageID     flexString `json:"OUTAGE_ID"`
		OutageStart  int64      `json:"OUTAGE_START"`
		EstCustomers int        `json:"EST_CUSTOMERS"`
		CrewStatus   string     `json:"CREW_CURRENT_STATUS"`
		OutageCause  string     `json:"OUTAGE_CAUSE"`
		CurrentETOR  int64      `json:"CURRENT_ETOR"`
	} `json:"attributes"`
	// Web Mercator (EPSG:3857) meters.
	Geometry *struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	} `json:"geometry"`
}

type pge struct {
	logger *slog.Logger
}

func (*pge) Utility() domain.Utility { return domain.UtilityPGE }
func (*pge) FileSuffix() string      { return "-pge-events.json" }

func (p *pge) Normalize(r io.Reader, snapshotTime time.Time) ([]domain.OutageRecord, error) {
	var file pgeFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode pge payload: %w", err)
	}

	records := make([]domain.OutageRecord, 0, len(file.Features))
	for _, f := range file.Features {
		a := f.Attributes
		if a.OutageID == "" || a.OutageStart == 0 || f.Geometry == nil || f.Geometry.X == nil || f.Geometry.Y == nil {
			p.logger.Warn("skipping outage missing essential data", "outage_id", string(a.OutageID))
			continue
		}

		center := project.Mercator.ToWGS84(orb.Point{*f.Geometry.X, *f.Geometry.Y})

		records = append(records, domain.OutageRecord{
			Utility:           domain.UtilityPGE,
			OutageID:          string(a.OutageID),
			SnapshotTime:      snapshotTime.UTC(),
			StartTime:         epochMillis(a.OutageStart),
			CustomersImpacted: a.EstCustomers,
			Status:            a.CrewStatus,
			Cause:             a.OutageCause,
			EstRestoration:    optionalTime(epochMillis(a.CurrentETOR)),
			CenterLon:         center[0],
			CenterLat:         center[1],
			Radius:            pgeRadius,
			Rings:             []orb.Ring{{center}},
		})
	}
	return records, nil
}
