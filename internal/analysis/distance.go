package analysis

import (
	"github.com/golang/geo/s2"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between a and b. s2 evaluates
// the Haversine formula through atan2 with a clamped denominator, so
// near-antipodal points stay finite.
func DistanceKm(a, b domain.Geo) float64 {
	return s2.LatLngFromDegrees(a.Lat, a.Lon).
		Distance(s2.LatLngFromDegrees(b.Lat, b.Lon)).
		Radians() * EarthRadiusKm
}
