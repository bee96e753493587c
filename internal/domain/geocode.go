package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// MapsURL links to the outage center on Google Maps.
func MapsURL(lat, lon float64) string {
	return fmt.Sprintf("https://maps.google.com/maps?q=%.6f,%.6f", lat, lon)
}

// FormatLocation renders a place as a Markdown link to the maps URL, using as
// much of suburb, city and state as the provider returned. A place without a
// state is rendered as the bare URL.
func FormatLocation(place Place, lat, lon float64) string {
	url := MapsURL(lat, lon)
	switch {
	case place.Suburb != "" && place.City != "" && place.State != "":
		return fmt.Sprintf("[%s, %s, %s](%s)", place.Suburb, place.City, place.State, url)
	case place.City != "" && place.State != "":
		return fmt.Sprintf("[%s, %s](%s)", place.City, place.State, url)
	case place.State != "":
		return fmt.Sprintf("[%s](%s)", place.State, url)
	default:
		return url
	}
}

// LocateEvent fills in the event's Location from its outage center. If
// geocoder is nil or the lookup fails, the bare maps URL is used (graceful
// degradation).
func LocateEvent(ctx context.Context, event LifecycleEvent, geocoder Geocoder, logger *slog.Logger) LifecycleEvent {
	lat, lon := event.Snapshot.CenterLat, event.Snapshot.CenterLon
	if geocoder == nil {
		event.Location = MapsURL(lat, lon)
		return event
	}

	place, err := geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"utility", event.Utility,
			"outage_id", event.OutageID,
			"lat", lat,
			"lon", lon,
			"error", err,
		)
		event.Location = MapsURL(lat, lon)
		return event
	}

	event.Location = FormatLocation(place, lat, lon)
	return event
}
