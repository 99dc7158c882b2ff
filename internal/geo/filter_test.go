package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolrail/schoolrail-cli/internal/model"
)

func point(label string, cat model.Category, lat, lon float64) model.GeoPoint {
	p := model.GeoPoint{Label: label, Category: cat}
	if err := p.SetCoords(lat, lon); err != nil {
		panic(err)
	}
	return p
}

func TestHaversine_Symmetric(t *testing.T) {
	a := []float64{-37.8136, 144.9631}
	b := []float64{-37.8183, 144.9671}

	ab := Haversine(a[0], a[1], b[0], b[1])
	ba := Haversine(b[0], b[1], a[0], a[1])
	assert.InDelta(t, ab, ba, 1e-6)
}

func TestHaversine_ZeroDistance(t *testing.T) {
	assert.InDelta(t, 0, Haversine(-37.8, 144.9, -37.8, 144.9), 1e-9)
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Melbourne CBD to a point ~0.65 km away.
	d := Haversine(-37.8136, 144.9631, -37.8183, 144.9671)
	assert.InDelta(t, 0.63, d, 0.1)
}

func TestFilterNearby_MelbourneScenario(t *testing.T) {
	schools := []model.GeoPoint{point("Melbourne High School", model.CategorySchool, -37.8136, 144.9631)}
	stations := []model.GeoPoint{point("Flinders Street", model.CategoryStation, -37.8183, 144.9671)}

	var f BruteForce

	kept, err := f.FilterNearby(schools, stations, 2.0)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "Flinders Street", kept[0].Label)

	kept, err = f.FilterNearby(schools, stations, 0.5)
	require.NoError(t, err)
	assert.Empty(t, kept)
}

func TestFilterNearby_InvalidRadius(t *testing.T) {
	var f BruteForce
	for _, radius := range []float64{0, -5} {
		_, err := f.FilterNearby(nil, nil, radius)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidRadius))
	}
}

func TestFilterNearby_EmptyStations(t *testing.T) {
	schools := []model.GeoPoint{point("A", model.CategorySchool, -37.8, 144.9)}
	kept, err := BruteForce{}.FilterNearby(schools, nil, 2.0)
	require.NoError(t, err)
	assert.Empty(t, kept)
}

func TestFilterNearby_InfiniteRadiusKeepsAll(t *testing.T) {
	schools := []model.GeoPoint{point("A", model.CategorySchool, -37.8, 144.9)}
	stations := []model.GeoPoint{
		point("S1", model.CategoryStation, -37.0, 144.0),
		point("S2", model.CategoryStation, -38.5, 145.5),
	}
	kept, err := BruteForce{}.FilterNearby(schools, stations, math.Inf(1))
	require.NoError(t, err)
	assert.Len(t, kept, 2)
}

func TestFilterNearby_PreservesOrderAndDedupes(t *testing.T) {
	schools := []model.GeoPoint{point("A", model.CategorySchool, -37.8136, 144.9631)}
	stations := []model.GeoPoint{
		point("Richmond", model.CategoryStation, -37.8239, 144.9899),
		point("Flinders Street", model.CategoryStation, -37.8183, 144.9671),
		point("Richmond", model.CategoryStation, -37.8239, 144.9899),
	}

	kept, err := BruteForce{}.FilterNearby(schools, stations, 5.0)
	require.NoError(t, err)
	require.Len(t, kept, 2)
	assert.Equal(t, "Richmond", kept[0].Label)
	assert.Equal(t, "Flinders Street", kept[1].Label)
}

func TestFilterNearby_SkipsUngeocoded(t *testing.T) {
	schools := []model.GeoPoint{
		{Label: "No Coords School", Category: model.CategorySchool},
		point("A", model.CategorySchool, -37.8136, 144.9631),
	}
	stations := []model.GeoPoint{
		{Label: "No Coords Station", Category: model.CategoryStation},
		point("Flinders Street", model.CategoryStation, -37.8183, 144.9671),
	}

	kept, err := BruteForce{}.FilterNearby(schools, stations, 2.0)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "Flinders Street", kept[0].Label)
}

func TestSplitUngeocoded(t *testing.T) {
	pts := []model.GeoPoint{
		point("A", model.CategorySchool, -37.8, 144.9),
		{Label: "B", Category: model.CategorySchool},
	}
	located, ungeocoded := SplitUngeocoded(pts)
	require.Len(t, located, 1)
	require.Len(t, ungeocoded, 1)
	assert.Equal(t, "A", located[0].Label)
	assert.Equal(t, "B", ungeocoded[0].Label)
}
