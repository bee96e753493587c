package utility

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

// snoPUDIDLayout turns a start time into the synthetic outage id. Snohomish
// PUD splits one outage into several placemarks that share a start time.
const snoPUDIDLayout = "20060102150405"

type kmlDocument struct {
	Placemarks []kmlPlacemark `xml:"Document>Folder>Placemark"`
}

type kmlPlacemark struct {
	Name        string    `xml:"name"`
	Data        []kmlData `xml:"ExtendedData>Data"`
	Coordinates string    `xml:"Polygon>outerBoundaryIs>LinearRing>coordinates"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

func (p kmlPlacemark) field(name string) string {
	for _, d := range p.Data {
		if d.Name == name {
			return strings.TrimSpace(d.Value)
		}
	}
	return ""
}

type snoPUDGroup struct {
	start     time.Time
	customers int
	status    string
	cause     string
	restore   string
	rings     []orb.Ring
}

type snoPUD struct {
	logger *slog.Logger
}

func (*snoPUD) Utility() domain.Utility { return domain.UtilitySnoPUD }
func (*snoPUD) FileSuffix() string      { return "-KMLOutageAreas.xml" }

func (s *snoPUD) Normalize(r io.Reader, snapshotTime time.Time) ([]domain.OutageRecord, error) {
	var doc kmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			// SnoPUD publishes an empty file when there are no outages.
			return nil, nil
		}
		return nil, fmt.Errorf("decode snopud kml: %w", err)
	}

	groups := make(map[string]*snoPUDGroup)
	for _, pm := range doc.Placemarks {
		customers, err := strconv.Atoi(pm.field("EstCustomersOut"))
		if err != nil || customers == -1 {
			s.logger.Debug("skipping placemark without customer estimate", "placemark", pm.Name)
			continue
		}
		start, err := time.Parse(time.RFC3339, pm.field("StartUTC"))
		if err != nil {
			s.logger.Warn("skipping placemark with invalid start time", "placemark", pm.Name, "error", err)
			continue
		}
		start = start.UTC()

		key := start.Format(snoPUDIDLayout)
		g, ok := groups[key]
		if !ok {
			g = &snoPUDGroup{
				start:   start,
				status:  pm.field("OutageStatus"),
				cause:   pm.field("Cause"),
				restore: pm.field("EstimatedRestorationUTC"),
			}
			groups[key] = g
		}
		g.customers += customers
		g.rings = append(g.rings, parseKMLCoordinates(pm.Coordinates))
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]domain.OutageRecord, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		if len(g.rings) > 1 {
			s.logger.Debug("combining placemarks", "outage_id", key, "placemarks", len(g.rings))
		}

		var restore *time.Time
		if t, err := time.Parse(time.RFC3339, g.restore); err == nil {
			restore = optionalTime(t.UTC())
		}

		circle := domain.MinimumEnclosingCircle(g.rings)
		records = append(records, domain.OutageRecord{
			Utility:           domain.UtilitySnoPUD,
			OutageID:          key,
			SnapshotTime:      snapshotTime.UTC(),
			StartTime:         g.start,
			CustomersImpacted: g.customers,
			Status:            g.status,
			Cause:             g.cause,
			EstRestoration:    restore,
			CenterLon:         circle.Center[0],
			CenterLat:         circle.Center[1],
			Radius:            circle.Radius,
			Rings:             g.rings,
		})
	}
	return records, nil
}

// parseKMLCoordinates reads "lon,lat[,alt] lon,lat[,alt] ..." and drops
// malformed tuples.
func parseKMLCoordinates(text string) orb.Ring {
	fields := strings.Fields(text)
	ring := make(orb.Ring, 0, len(fields))
	for _, tuple := range fields {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			continue
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	return ring
}
