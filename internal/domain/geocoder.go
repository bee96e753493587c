package domain

import "context"

// Place is the administrative area a coordinate falls in.
type Place struct {
	Suburb string
	City   string
	State  string // USPS abbreviation, e.g. "WA"
}

// IsZero reports whether the provider returned nothing usable.
func (p Place) IsZero() bool {
	return p.Suburb == "" && p.City == "" && p.State == ""
}

// Geocoder resolves coordinates to a human-readable place.
type Geocoder interface {
	// ReverseGeocode converts coordinates to place details.
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
}
