// Package geo provides great-circle distance and proximity filtering over
// geocoded points.
package geo

import "math"

// earthRadiusKm is the mean earth radius used by the spherical model.
const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometres between two
// lat/lon points on a spherical earth. Planar distance on raw degrees is
// wrong at Melbourne's latitude, so all comparisons go through here.
func Haversine(aLat, aLon, bLat, bLon float64) float64 {
	latA := aLat * math.Pi / 180
	latB := bLat * math.Pi / 180
	dLat := (bLat - aLat) * math.Pi / 180
	dLon := (bLon - aLon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLon*sinLon

	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
