// Package mockdata generates utility-format snapshot files for canned outage
// scenarios, so the notifier can be exercised end to end without a live feed.
package mockdata

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // PSE times are US/Pacific wall clock

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

const (
	pseTimeLayout  = "2006/01/02 3:04 PM"
	kmlTimeLayout  = "2006-01-02T15:04:05.0000000-07:00"
	fileTimeLayout = "2006-01-02T150405"

	// polygonHalfSize is half the side of the square footprint, in degrees.
	polygonHalfSize = 0.01
)

// Outage is one outage as it appears in a single poll. Times are offsets
// from the scenario start. For SnoPUD it is one placemark; placemarks that
// share Start are one outage.
type Outage struct {
	ID        string
	Customers int
	Start     time.Duration
	Restore   time.Duration
	Status    string
	Cause     string
	Lat, Lon  float64
}

// Step is one poll of the outage map.
type Step struct {
	At      time.Duration
	Outages []Outage
}

// Scenario is a named sequence of polls and the events the default
// thresholds should produce from them.
type Scenario struct {
	Name        string
	Description string
	Utility     domain.Utility
	Steps       []Step
	Want        map[domain.EventKind]int
}

var belltown = Outage{
	ID:        "INC0900001",
	Customers: 320,
	Start:     -30 * time.Minute,
	Restore:   4 * time.Hour,
	Status:    "Crew assigned",
	Cause:     "Tree/Vegetation",
	Lat:       47.6145,
	Lon:       -122.3473,
}

// everett is a SnoPUD placemark; the normalizer keys outages by start time.
var everett = Outage{
	ID:        "6207",
	Customers: 60,
	Start:     -4 * time.Hour,
	Restore:   2 * time.Hour,
	Status:    "We're investigating",
	Cause:     "Equipment Failure",
	Lat:       48.1091,
	Lon:       -121.8877,
}

var scenarios = []Scenario{
	{
		Name:        "golden-path",
		Description: "a notifiable outage appears in the second poll",
		Utility:     domain.UtilityPSE,
		Steps: []Step{
			{At: 0},
			{At: 15 * time.Minute, Outages: []Outage{belltown}},
		},
		Want: map[domain.EventKind]int{domain.EventNew: 1},
	},
	{
		Name:        "resolved",
		Description: "a notifiable outage disappears from the map",
		Utility:     domain.UtilityPSE,
		Steps: []Step{
			{At: 0, Outages: []Outage{belltown}},
			{At: 15 * time.Minute},
		},
		Want: map[domain.EventKind]int{domain.EventResolved: 1},
	},
	{
		Name:        "no-alerts",
		Description: "only small outages below the customer threshold",
		Utility:     domain.UtilityPSE,
		Steps: []Step{
			{At: 0, Outages: []Outage{withCustomers(belltown, 20)}},
			{At: 15 * time.Minute, Outages: []Outage{
				withCustomers(belltown, 35),
				withCustomers(withID(belltown, "INC0900002"), 8),
			}},
		},
		Want: map[domain.EventKind]int{},
	},
	{
		Name:        "escalation",
		Description: "a small outage grows past the large-outage threshold",
		Utility:     domain.UtilityPSE,
		Steps: []Step{
			{At: 0, Outages: []Outage{withCustomers(belltown, 60)}},
			{At: 15 * time.Minute, Outages: []Outage{withCustomers(belltown, 1850)}},
			{At: 30 * time.Minute, Outages: []Outage{withCustomers(belltown, 1900)}},
		},
		Want: map[domain.EventKind]int{domain.EventEscalated: 1},
	},
	{
		Name:        "extended-outage",
		Description: "an overdue restoration estimate is pushed out by hours",
		Utility:     domain.UtilityPSE,
		Steps: []Step{
			{At: 0, Outages: []Outage{withRestore(belltown, -10*time.Minute)}},
			{At: 10 * time.Minute, Outages: []Outage{withRestore(belltown, 8*time.Hour)}},
		},
		Want: map[domain.EventKind]int{domain.EventEscalated: 1},
	},
	{
		Name:        "snopud-single",
		Description: "one SnoPUD placemark large enough to alert",
		Utility:     domain.UtilitySnoPUD,
		Steps: []Step{
			{At: 0},
			{At: 15 * time.Minute, Outages: []Outage{withCustomers(everett, 150)}},
		},
		Want: map[domain.EventKind]int{domain.EventNew: 1},
	},
	{
		Name:        "snopud-combined",
		Description: "two small SnoPUD placemarks sharing a start time add up to one alert",
		Utility:     domain.UtilitySnoPUD,
		Steps: []Step{
			{At: 0},
			{At: 15 * time.Minute, Outages: []Outage{
				everett,
				withCustomers(shifted(withID(everett, "8431"), 0, 0.0072), 70),
			}},
		},
		Want: map[domain.EventKind]int{domain.EventNew: 1},
	},
	{
		Name:        "snopud-separate",
		Description: "two small SnoPUD placemarks with different start times stay separate",
		Utility:     domain.UtilitySnoPUD,
		Steps: []Step{
			{At: 0},
			{At: 15 * time.Minute, Outages: []Outage{
				everett,
				withStart(withCustomers(shifted(withID(everett, "8431"), 0, 0.0072), 70), -3*time.Hour),
			}},
		},
		Want: map[domain.EventKind]int{},
	},
}

func withCustomers(o Outage, n int) Outage {
	o.Customers = n
	return o
}

func withID(o Outage, id string) Outage {
	o.ID = id
	return o
}

func withRestore(o Outage, d time.Duration) Outage {
	o.Restore = d
	return o
}

func withStart(o Outage, d time.Duration) Outage {
	o.Start = d
	return o
}

func shifted(o Outage, dLon, dLat float64) Outage {
	o.Lon += dLon
	o.Lat += dLat
	return o
}

// Scenarios returns every scenario sorted by name.
func Scenarios() []Scenario {
	out := append([]Scenario(nil), scenarios...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, bool) {
	for _, s := range scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// Write renders each step of s into dir as a snapshot file in the scenario
// utility's format, named after its capture time, and returns the paths in
// capture order.
func Write(dir string, s Scenario, start time.Time) ([]string, error) {
	var (
		render     func([]Outage, time.Time) ([]byte, error)
		fileSuffix string
	)
	switch s.Utility {
	case domain.UtilityPSE:
		render, fileSuffix = Payload, "-pse-events.json"
	case domain.UtilitySnoPUD:
		render, fileSuffix = KML, "-KMLOutageAreas.xml"
	default:
		return nil, fmt.Errorf("scenario %s: no mock format for utility %q", s.Name, s.Utility)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	paths := make([]string, 0, len(s.Steps))
	for _, step := range s.Steps {
		at := start.Add(step.At).UTC()
		data, err := render(step.Outages, start)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, at.Format(fileTimeLayout)+fileSuffix)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

type pseFile struct {
	PseMap []pseOutage `json:"PseMap"`
}

type pseOutage struct {
	DataProvider pseDataProvider `json:"DataProvider"`
	Polygon      []pseLatLon     `json:"Polygon"`
}

type pseDataProvider struct {
	Attributes []pseAttribute `json:"Attributes"`
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

// Payload renders outages as a PSE outage-map document.
func Payload(outages []Outage, start time.Time) ([]byte, error) {
	pacific, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		return nil, err
	}
	pseTime := func(d time.Duration) string { return start.Add(d).In(pacific).Format(pseTimeLayout) }

	file := pseFile{PseMap: make([]pseOutage, 0, len(outages))}
	for _, o := range outages {
		file.PseMap = append(file.PseMap, pseOutage{
			DataProvider: pseDataProvider{Attributes: []pseAttribute{
				{Name: "Outage ID", RefName: "OutageEventId", Value: o.ID},
				{Name: "Customers impacted", RefName: "Customers impacted", Value: strconv.Itoa(o.Customers)},
				{Name: "Start time", RefName: "StartDate", Value: pseTime(o.Start)},
				{Name: "Est. restoration time", RefName: "Est. Restoration time", Value: pseTime(o.Restore)},
				{Name: "Status", RefName: "Status", Value: o.Status},
				{Name: "Cause", RefName: "Cause", Value: o.Cause},
			}},
			Polygon: square(o.Lat, o.Lon),
		})
	}
	return json.MarshalIndent(file, "", "  ")
}

func square(lat, lon float64) []pseLatLon {
	corners := squareCorners(lat, lon)
	out := make([]pseLatLon, len(corners))
	for i, c := range corners {
		out[i] = pseLatLon{Latitude: formatCoord(c[1]), Longitude: formatCoord(c[0])}
	}
	return out
}

// squareCorners returns the closed ring of lon/lat pairs around a center.
func squareCorners(lat, lon float64) [][2]float64 {
	h := polygonHalfSize
	return [][2]float64{
		{lon - h, lat - h},
		{lon + h, lat - h},
		{lon + h, lat + h},
		{lon - h, lat + h},
		{lon - h, lat - h},
	}
}

func formatCoord(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

type kmlFile struct {
	XMLName xml.Name  `xml:"kml"`
	Xmlns   string    `xml:"xmlns,attr"`
	Folder  kmlFolder `xml:"Document>Folder"`
}

type kmlFolder struct {
	Name       string         `xml:"name"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
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

// KML renders outages as a SnoPUD outage-areas document, one placemark each.
func KML(outages []Outage, start time.Time) ([]byte, error) {
	kmlTime := func(d time.Duration) string { return start.Add(d).UTC().Format(kmlTimeLayout) }

	doc := kmlFile{
		Xmlns:  "http://www.opengis.net/kml/2.2",
		Folder: kmlFolder{Name: "Outage Areas", Placemarks: make([]kmlPlacemark, 0, len(outages))},
	}
	for _, o := range outages {
		coords := make([]string, 0, 5)
		for _, c := range squareCorners(o.Lat, o.Lon) {
			coords = append(coords, formatCoord(c[0])+","+formatCoord(c[1])+",0")
		}
		doc.Folder.Placemarks = append(doc.Folder.Placemarks, kmlPlacemark{
			Name: o.ID,
			Data: []kmlData{
				{Name: "StartUTC", Value: kmlTime(o.Start)},
				{Name: "Cause", Value: o.Cause},
				{Name: "EstCustomersOut", Value: strconv.Itoa(o.Customers)},
				{Name: "EstimatedRestorationUTC", Value: kmlTime(o.Restore)},
				{Name: "OutageStatus", Value: o.Status},
			},
			Coordinates: strings.Join(coords, " "),
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
