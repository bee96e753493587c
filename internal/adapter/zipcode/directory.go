// Package zipcode restricts alerts to outages centered in a set of ZIP code
// areas, using ZCTA boundary polygons.
package zipcode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// zipProperty is the Census ZCTA property holding the five-digit code.
const zipProperty = "ZCTA5CE10"

type zone struct {
	zip   string
	bound orb.Bound
	geom  orb.Geometry
}

// Directory answers point-in-ZIP queries. It is built once at startup and is
// safe for concurrent use since it is never mutated afterwards.
type Directory struct {
	zones     []zone
	whitelist map[string]struct{}
}

// Load reads ZIP boundaries from a GeoJSON FeatureCollection and, when
// whitelistPath is non-empty, the ZIP codes to alert on (one per line, '#'
// starts a comment). Without a whitelist every ZIP in the boundaries counts.
func Load(boundariesPath, whitelistPath string) (*Directory, error) {
	data, err := os.ReadFile(boundariesPath)
	if err != nil {
		return nil, fmt.Errorf("read zip boundaries: %w", err)
	}
	d, err := FromGeoJSON(data)
	if err != nil {
		return nil, err
	}

	if whitelistPath != "" {
		f, err := os.Open(whitelistPath)
		if err != nil {
			return nil, fmt.Errorf("open zip whitelist: %w", err)
		}
		defer f.Close()
		if d.whitelist, err = readWhitelist(f); err != nil {
			return nil, fmt.Errorf("read zip whitelist: %w", err)
		}
	}
	return d, nil
}

// FromGeoJSON builds a Directory from raw GeoJSON. Features without a ZIP
// property or without polygonal geometry are ignored.
func FromGeoJSON(data []byte) (*Directory, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse zip boundaries: %w", err)
	}

	d := &Directory{zones: make([]zone, 0, len(fc.Features))}
	for _, f := range fc.Features {
		zip := f.Properties.MustString(zipProperty, "")
		if zip == "" || f.Geometry == nil {
			continue
		}
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
			d.zones = append(d.zones, zone{zip: zip, bound: f.Geometry.Bound(), geom: f.Geometry})
		}
	}
	if len(d.zones) == 0 {
		return nil, fmt.Errorf("parse zip boundaries: no features with %s", zipProperty)
	}
	return d, nil
}

// WithWhitelist returns a copy of d that only admits the given ZIP codes.
func (d *Directory) WithWhitelist(zips ...string) *Directory {
	cp := *d
	cp.whitelist = make(map[string]struct{}, len(zips))
	for _, z := range zips {
		cp.whitelist[z] = struct{}{}
	}
	return &cp
}

// ZipCode returns the ZIP whose boundary contains (lon, lat).
func (d *Directory) ZipCode(lon, lat float64) (string, bool) {
	p := orb.Point{lon, lat}
	for _, z := range d.zones {
		if !z.bound.Contains(p) {
			continue
		}
		if contains(z.geom, p) {
			return z.zip, true
		}
	}
	return "", false
}

// Contains implements domain.AreaFilter: the point must fall inside a known
// ZIP that is whitelisted, if a whitelist is configured.
func (d *Directory) Contains(lon, lat float64) bool {
	zip, ok := d.ZipCode(lon, lat)
	if !ok {
		return false
	}
	if d.whitelist == nil {
		return true
	}
	_, ok = d.whitelist[zip]
	return ok
}

func contains(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	default:
		return false
	}
}

func readWhitelist(r io.Reader) (map[string]struct{}, error) {
	zips := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		for _, zip := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			zips[zip] = struct{}{}
		}
	}
	return zips, sc.Err()
}
