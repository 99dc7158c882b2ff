package geo

import (
	"github.com/rotisserie/eris"

	"github.com/schoolrail/schoolrail-cli/internal/model"
)

// ErrInvalidRadius is returned for a non-positive radius before any
// filtering work begins.
var ErrInvalidRadius = eris.New("geo: radius must be positive")

// Filterer selects stations near schools. The brute-force implementation is
// fine at this scale; a grid or k-d tree can be swapped in behind this
// interface without touching callers.
type Filterer interface {
	FilterNearby(schools, stations []model.GeoPoint, radiusKm float64) ([]model.GeoPoint, error)
}

// BruteForce is the O(schools x stations) double-loop Filterer.
type BruteForce struct{}

// FilterNearby returns the stations whose distance to at least one school is
// below radiusKm. Output preserves station input order; duplicate station
// identities are emitted once. Points without coordinates are skipped on
// both sides.
func (BruteForce) FilterNearby(schools, stations []model.GeoPoint, radiusKm float64) ([]model.GeoPoint, error) {
	if radiusKm <= 0 {
		return nil, ErrInvalidRadius
	}

	located, _ := SplitUngeocoded(schools)

	var kept []model.GeoPoint
	seen := make(map[string]bool, len(stations))

	for _, station := range stations {
		if !station.HasCoords || seen[station.Identity()] {
			continue
		}
		for _, school := range located {
			d := Haversine(school.Latitude, school.Longitude, station.Latitude, station.Longitude)
			if d < radiusKm {
				seen[station.Identity()] = true
				kept = append(kept, station)
				break
			}
		}
	}
	return kept, nil
}

// SplitUngeocoded partitions points into those with and without coordinates,
// so callers can report the excluded ones instead of dropping them silently.
func SplitUngeocoded(points []model.GeoPoint) (located, ungeocoded []model.GeoPoint) {
	for _, p := range points {
		if p.HasCoords {
			located = append(located, p)
		} else {
			ungeocoded = append(ungeocoded, p)
		}
	}
	return located, ungeocoded
}
