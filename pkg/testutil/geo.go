package testutil

import "math"

// earthRadiusMeters matches the radius the in-memory geo index uses.
const earthRadiusMeters = 6371008.8

// LatitudeNorth returns the latitude lying meters due north of latitude, for
// placing fixtures at known distances from an origin.
func LatitudeNorth(latitude, meters float64) float64 {
	return latitude + (meters/earthRadiusMeters)*180/math.Pi
}
