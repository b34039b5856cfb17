// Package geo holds the geospatial math used to aim street-level imagery at
// a target structure.
package geo

import (
	"math"
)

const earthRadiusMeters = 6371000

// Bearing computes the forward azimuth from the camera position toward the
// target, in degrees normalized to [0,360). 0 is north, 90 east. Passing
// this as the imagery heading yields front-facing captures instead of a
// fixed compass direction.
func Bearing(fromLat, fromLng, toLat, toLng float64) float64 {
	lat1 := radians(fromLat)
	lat2 := radians(toLat)
	deltaLng := radians(toLng - fromLng)

	x := math.Sin(deltaLng) * math.Cos(lat2)
	y := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(deltaLng)

	bearing := degrees(math.Atan2(x, y))
	return math.Mod(bearing+360, 360)
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	deltaPhi := radians(lat2 - lat1)
	deltaLambda := radians(lng2 - lng1)

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// CandidateHeadings generates headings around a primary heading for
// multi-angle capture. The offsets stay roughly front-facing, unlike
// cardinal N/E/S/W sweeps.
func CandidateHeadings(primary float64, spread float64, count int) []float64 {
	if count <= 1 {
		return []float64{primary}
	}

	candidates := []float64{primary}
	for i := 1; len(candidates) < count; i++ {
		offset := spread * float64(i)
		candidates = append(candidates, math.Mod(primary-offset+360, 360))
		if len(candidates) < count {
			candidates = append(candidates, math.Mod(primary+offset, 360))
		}
	}

	return candidates[:count]
}

// RoundCoord rounds a coordinate to 5 decimal places (~1.1 m precision).
func RoundCoord(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
