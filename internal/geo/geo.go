// Package geo provides great-circle distance helpers.
package geo

import (
	"math"
	"time"

	"geotimeline/internal/evidence"
)

const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two points in meters.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Distance returns the distance between two optional coordinates. ok is false
// when either side is missing.
func Distance(a, b *evidence.Coordinates) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return HaversineMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude), true
}

// SpeedKMH converts distance over elapsed time to km/h. ok is false when the
// elapsed time is not positive.
func SpeedKMH(meters float64, elapsed time.Duration) (float64, bool) {
	if elapsed <= 0 {
		return 0, false
	}
	return meters / elapsed.Seconds() * 3.6, true
}
