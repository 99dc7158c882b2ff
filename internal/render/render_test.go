package render

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolrail/schoolrail-cli/internal/model"
)

func testPoints(t *testing.T) []model.GeoPoint {
	t.Helper()
	school := model.GeoPoint{
		Label:    "Melbourne High School",
		Category: model.CategorySchool,
		Attrs:    map[string]string{"rank": "1"},
	}
	require.NoError(t, school.SetCoords(-37.8316, 144.9931))

	station := model.GeoPoint{
		Label:    "Flinders Street",
		Category: model.CategoryStation,
		Attrs:    map[string]string{"lines": "All lines"},
	}
	require.NoError(t, station.SetCoords(-37.8183, 144.9671))

	return []model.GeoPoint{school, station}
}

func TestGeoJSON_RoundTripPreservesPointFields(t *testing.T) {
	points := testPoints(t)

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, points))

	got, err := ReadGeoJSON(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i, p := range got {
		assert.Equal(t, points[i].Label, p.Label)
		assert.Equal(t, points[i].Category, p.Category)
		assert.Equal(t, points[i].Latitude, p.Latitude)
		assert.Equal(t, points[i].Longitude, p.Longitude)
	}
	assert.Equal(t, "1", got[0].Attr("rank"))
	assert.Equal(t, "All lines", got[1].Attr("lines"))
}

func TestGeoJSON_SkipsUngeocodedPoints(t *testing.T) {
	points := append(testPoints(t), model.GeoPoint{Label: "No Coords", Category: model.CategorySchool})
	fc := ToFeatureCollection(points)
	assert.Len(t, fc.Features, 2)
}

func TestRenderMap_ContainsMarkersAndLegend(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMap(&buf, "Schools and stations", testPoints(t), DefaultStyle()))

	html := buf.String()
	assert.Contains(t, html, "Melbourne High School")
	assert.Contains(t, html, "Flinders Street")
	assert.Contains(t, html, "leaflet")
	assert.Contains(t, html, "legend")
	assert.Contains(t, html, "#2b6cb0") // station color
	assert.Contains(t, html, "#c53030") // band 10 color for rank 1
}

func TestRenderMap_NoGeocodedPoints(t *testing.T) {
	var buf bytes.Buffer
	err := RenderMap(&buf, "empty", []model.GeoPoint{{Label: "X"}}, DefaultStyle())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no geocoded points")
}

func TestStyle_ColorFor(t *testing.T) {
	style := DefaultStyle()

	rank1 := model.GeoPoint{Category: model.CategorySchool, Attrs: map[string]string{"rank": "1"}}
	assert.Equal(t, "#c53030", style.ColorFor(rank1))

	rank11 := model.GeoPoint{Category: model.CategorySchool, Attrs: map[string]string{"rank": "11"}}
	assert.Equal(t, "#dd6b20", style.ColorFor(rank11))

	noRank := model.GeoPoint{Category: model.CategorySchool}
	assert.Equal(t, style.DefaultColor, style.ColorFor(noRank))

	station := model.GeoPoint{Category: model.CategoryStation}
	assert.Equal(t, style.StationColor, style.ColorFor(station))
}

func TestLoadStyle_OverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.yaml")
	require.NoError(t, os.WriteFile(path, []byte("station_color: \"#000000\"\n"), 0o644))

	style, err := LoadStyle(path)
	require.NoError(t, err)
	assert.Equal(t, "#000000", style.StationColor)
	assert.Equal(t, DefaultStyle().BandColors, style.BandColors)
	assert.Equal(t, 10, style.BandSize)
}

func TestStyle_Legend(t *testing.T) {
	legend := string(DefaultStyle().Legend())
	assert.Contains(t, legend, "Schools by rank")
	assert.Contains(t, legend, "1&ndash;10")
	assert.Contains(t, legend, "11&ndash;20")
	assert.Contains(t, legend, "Train station")
}
