package domain

import "github.com/golang/geo/s2"

// ValidateGeo checks that g is a finite coordinate with latitude in [-90, 90]
// and longitude in [-180, 180].
func ValidateGeo(id string, g Geo) error {
	if !s2.LatLngFromDegrees(g.Lat, g.Lon).IsValid() {
		return &InvalidCoordinateError{IncidentID: id, Lat: g.Lat, Lon: g.Lon}
	}
	return nil
}
