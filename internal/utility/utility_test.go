package utility

import (
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

var snapshotTime = time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC)

func normalizer(t *testing.T, u domain.Utility) Normalizer {
	t.Helper()
	n, err := For(u, nil)
	require.NoError(t, err)
	require.Equal(t, u, n.Utility())
	return n
}

func TestFor_UnknownUtility(t *testing.T) {
	_, err := For("comed", nil)
	require.ErrorIs(t, err, domain.ErrUnknownUtility)
}

func TestFor_FileSuffixes(t *testing.T) {
	want := map[domain.Utility]string{
		domain.UtilityPSE:    "-pse-events.json",
		domain.UtilitySCL:    "-scl-events.json",
		domain.UtilitySnoPUD: "-KMLOutageAreas.xml",
		domain.UtilityPGE:    "-pge-events.json",
	}
	for _, u := range domain.Utilities {
		assert.Equal(t, want[u], normalizer(t, u).FileSuffix(), u)
	}
}

const psePayload = `{
  "PseMap": [
    {
      "DataProvider": {
        "Attributes": [
          {"Name": "Outage ID", "RefName": "OutageEventId", "Value": "INC123456"},
          {"Name": "Customers impacted", "RefName": "Customers impacted", "Value": "1500"},
          {"Name": "Start time", "RefName": "StartDate", "Value": "01/15 9:30 AM"},
          {"Name": "Est. restoration time", "RefName": "Est. Restoration time", "Value": "01/15 9:00 PM"},
          {"Name": "Status", "RefName": "Status", "Value": "Crew assigned"},
          {"Name": "Cause", "RefName": "Cause", "Value": "Equipment failure"}
        ]
      },
      "Polygon": [
        {"Latitude": "47.60", "Longitude": "-122.34"},
        {"Latitude": "47.62", "Longitude": "-122.34"},
        {"Latitude": "47.61", "Longitude": "-122.32"}
      ]
    },
    {
      "DataProvider": {
        "Attributes": [
          {"Name": "Outage ID:", "Value": "INC000777"},
          {"Name": "Customers impacted", "Value": "12"},
          {"Name": "Start time", "Value": "2025/01/14 11:05 PM"},
          {"Name": "Est. restoration time", "Value": "Evaluating"}
        ]
      },
      "Polygon": [{"Latitude": "47.5000", "Longitude": "-122.4000"}]
    },
    {
      "DataProvider": {
        "Attributes": [
          {"Name": "Outage ID", "Value": "PLANNED-1"},
          {"Name": "Customers impacted", "Value": "40"}
        ]
      },
      "Polygon": []
    }
  ]
}`

func TestPSE_Normalize(t *testing.T) {
	records, err := normalizer(t, domain.UtilityPSE).Normalize(strings.NewReader(psePayload), snapshotTime)
	require.NoError(t, err)
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, domain.UtilityPSE, r.Utility)
	assert.Equal(t, "INC123456", r.OutageID)
	assert.Equal(t, 1500, r.CustomersImpacted)
	assert.Equal(t, "Crew assigned", r.Status)
	assert.Equal(t, "Equipment failure", r.Cause)
	assert.Equal(t, snapshotTime, r.SnapshotTime)
	assert.Equal(t, time.Date(2025, 1, 15, 17, 30, 0, 0, time.UTC), r.StartTime)
	require.NotNil(t, r.EstRestoration)
	assert.Equal(t, time.Date(2025, 1, 16, 5, 0, 0, 0, time.UTC), *r.EstRestoration)
	assert.Equal(t, 30, *r.ElapsedTimeMinutes())
	assert.Equal(t, 660, *r.ExpectedLengthMinutes())
	assert.InDelta(t, -122.335, r.CenterLon, 0.01)
	assert.InDelta(t, 47.61, r.CenterLat, 0.01)
	assert.Greater(t, r.Radius, 0.0)

	r = records[1]
	assert.Equal(t, "INC000777", r.OutageID)
	assert.Equal(t, time.Date(2025, 1, 15, 7, 5, 0, 0, time.UTC), r.StartTime)
	assert.Nil(t, r.EstRestoration, "non-time ETA becomes unknown")
	assert.Equal(t, -122.4, r.CenterLon)
	assert.Equal(t, 47.5, r.CenterLat)
	assert.Zero(t, r.Radius)
}

func TestPSE_NormalizeInvalidJSON(t *testing.T) {
	_, err := normalizer(t, domain.UtilityPSE).Normalize(strings.NewReader("{not json"), snapshotTime)
	require.Error(t, err)
}

func TestParsePSETime_SummerOffset(t *testing.T) {
	got, err := parsePSETime("07/04 12:15 PM", time.Date(2025, 7, 4, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 4, 19, 15, 0, 0, time.UTC), got)
}

const sclPayload = `[
  {
    "id": 4521,
    "startTime": 1736960400000,
    "numPeople": 230,
    "status": "Crew dispatched",
    "cause": "Tree",
    "etrTime": 1736985600000,
    "polygons": {"rings": [
      [[-122.30, 47.60], [-122.28, 47.60], [-122.29, 47.62]],
      [[-122.25, 47.65], [-122.24, 47.66]]
    ]}
  },
  {"id": "", "startTime": 1736960400000, "numPeople": 5, "polygons": {"rings": []}},
  {"id": "B-7", "startTime": 1736960400000, "numPeople": 3, "etrTime": 0, "polygons": {"rings": [[[-122.1, 47.1]]]}}
]`

func TestSCL_Normalize(t *testing.T) {
	records, err := normalizer(t, domain.UtilitySCL).Normalize(strings.NewReader(sclPayload), snapshotTime)
	require.NoError(t, err)
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, "4521", r.OutageID)
	assert.Equal(t, 230, r.CustomersImpacted)
	assert.Equal(t, time.UnixMilli(1736960400000).UTC(), r.StartTime)
	require.NotNil(t, r.EstRestoration)
	assert.Equal(t, time.UnixMilli(1736985600000).UTC(), *r.EstRestoration)
	assert.Len(t, r.Rings, 2)
	for _, ring := range r.Rings {
		for _, p := range ring {
			c := domain.Circle{Center: orb.Point{r.CenterLon, r.CenterLat}, Radius: r.Radius}
			assert.True(t, c.Contains(p))
		}
	}

	assert.Equal(t, "B-7", records[1].OutageID)
	assert.Nil(t, records[1].EstRestoration)
}

const snoPUDPayload = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
<Document>
<Folder>
<name>Outage Areas</name>
<Placemark>
<name>6207</name>
<ExtendedData>
<Data name="StartUTC"><value>2025-01-15T13:26:42.0000000+00:00</value></Data>
<Data name="Cause"><value>Equipment Failure</value></Data>
<Data name="EstCustomersOut"><value>5</value></Data>
<Data name="EstimatedRestorationUTC"><value>2025-01-15T15:45:00.0000000+00:00</value></Data>
<Data name="OutageStatus"><value>We're investigating</value></Data>
</ExtendedData>
<Polygon xmlns="http://www.opengis.net/kml/2.2">
<outerBoundaryIs><LinearRing>
<coordinates>-121.893142,48.109097,0 -121.882334,48.109063,0 -121.882350,48.112689,0 -121.893142,48.109097,0</coordinates>
</LinearRing></outerBoundaryIs>
</Polygon>
</Placemark>
<Placemark>
<name>6208</name>
<ExtendedData>
<Data name="StartUTC"><value>2025-01-15T13:26:42.0000000+00:00</value></Data>
<Data name="Cause"><value>Equipment Failure</value></Data>
<Data name="EstCustomersOut"><value>12</value></Data>
<Data name="EstimatedRestorationUTC"><value>2025-01-15T15:45:00.0000000+00:00</value></Data>
<Data name="OutageStatus"><value>We're investigating</value></Data>
</ExtendedData>
<Polygon>
<outerBoundaryIs><LinearRing>
<coordinates>-121.80,48.20,0 -121.79,48.21,0</coordinates>
</LinearRing></outerBoundaryIs>
</Polygon>
</Placemark>
<Placemark>
<name>6300</name>
<ExtendedData>
<Data name="StartUTC"><value>2025-01-15T16:00:00.0000000+00:00</value></Data>
<Data name="EstCustomersOut"><value>40</value></Data>
<Data name="EstimatedRestorationUTC"><value>0001-01-01T00:00:00</value></Data>
<Data name="OutageStatus"><value>Crew assigned</value></Data>
<Data name="Cause"><value>Tree</value></Data>
</ExtendedData>
<Polygon><outerBoundaryIs><LinearRing><coordinates>-122.0,48.0,0</coordinates></LinearRing></outerBoundaryIs></Polygon>
</Placemark>
<Placemark>
<name>6400</name>
<ExtendedData>
<Data name="StartUTC"><value>1900-01-01T00:00:00+00:00</value></Data>
<Data name="EstCustomersOut"><value>-1</value></Data>
</ExtendedData>
</Placemark>
</Folder>
</Document>
</kml>`

func TestSnoPUD_NormalizeGroupsByStartTime(t *testing.T) {
	records, err := normalizer(t, domain.UtilitySnoPUD).Normalize(strings.NewReader(snoPUDPayload), snapshotTime)
	require.NoError(t, err)
	require.Len(t, records, 2)

	combined := records[0]
	assert.Equal(t, "20250115132642", combined.OutageID)
	assert.Equal(t, 17, combined.CustomersImpacted)
	assert.Equal(t, "Equipment Failure", combined.Cause)
	assert.Equal(t, "We're investigating", combined.Status)
	assert.Equal(t, time.Date(2025, 1, 15, 13, 26, 42, 0, time.UTC), combined.StartTime)
	require.NotNil(t, combined.EstRestoration)
	assert.Equal(t, time.Date(2025, 1, 15, 15, 45, 0, 0, time.UTC), *combined.EstRestoration)
	assert.Len(t, combined.Rings, 2)
	c := domain.Circle{Center: orb.Point{combined.CenterLon, combined.CenterLat}, Radius: combined.Radius}
	for _, ring := range combined.Rings {
		for _, p := range ring {
			assert.True(t, c.Contains(p))
		}
	}

	single := records[1]
	assert.Equal(t, "20250115160000", single.OutageID)
	assert.Equal(t, 40, single.CustomersImpacted)
	assert.Nil(t, single.EstRestoration)
	assert.Equal(t, -122.0, single.CenterLon)
}

func TestSnoPUD_NormalizeEmptyDocument(t *testing.T) {
	records, err := normalizer(t, domain.UtilitySnoPUD).Normalize(strings.NewReader(""), snapshotTime)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseKMLCoordinates(t *testing.T) {
	ring := parseKMLCoordinates(" -121.5,48.1,0\n-121.6,48.2 bogus -121.7,x,0 ")
	assert.Len(t, ring, 2)
	assert.Equal(t, -121.6, ring[1][0])
	assert.Equal(t, 48.2, ring[1][1])
}

const pgePayload = `{
  "features": [
    {
      "attributes": {
        "OUTAGE_ID": 28817364,
        "OUTAGE_START": 1736960400000,
        "EST_CUSTOMERS": 812,
        "CREW_CURRENT_STATUS": "Crew on site",
        "OUTAGE_CAUSE": "Weather",
        "CURRENT_ETOR": 1736992800000
      },
      "geometry": {"x": -13627361.0, "y": 4544761.0}
    },
    {"attributes": {"OUTAGE_ID": 1, "OUTAGE_START": 1736960400000}},
    {"attributes": {"OUTAGE_START": 1736960400000}, "geometry": {"x": 0, "y": 0}}
  ]
}`

func TestPGE_Normalize(t *testing.T) {
	records, err := normalizer(t, domain.UtilityPGE).Normalize(strings.NewReader(pgePayload), snapshotTime)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "28817364", r.OutageID)
	assert.Equal(t, 812, r.CustomersImpacted)
	assert.Equal(t, "Crew on site", r.Status)
	assert.Equal(t, pgeRadius, r.Radius)
	// Web Mercator (-13627361, 4544761) is near San Francisco.
	assert.InDelta(t, -122.417, r.CenterLon, 0.001)
	assert.InDelta(t, 37.754, r.CenterLat, 0.001)
	require.NotNil(t, r.EstRestoration)
}
