package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/pkg/geocode"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLite_SaveAndListPoints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	school := model.GeoPoint{
		Label:    "Melbourne High School",
		Category: model.CategorySchool,
		Attrs:    map[string]string{"rank": "1"},
	}
	require.NoError(t, school.SetCoords(-37.8316, 144.9931))

	station := model.GeoPoint{Label: "Flinders Street", Category: model.CategoryStation}

	require.NoError(t, s.SavePoints(ctx, []model.GeoPoint{school, station}))

	schools, err := s.ListPoints(ctx, PointFilter{Category: model.CategorySchool})
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Equal(t, "Melbourne High School", schools[0].Label)
	assert.True(t, schools[0].HasCoords)
	assert.InDelta(t, -37.8316, schools[0].Latitude, 1e-9)
	assert.Equal(t, "1", schools[0].Attr("rank"))

	stations, err := s.ListPoints(ctx, PointFilter{Category: model.CategoryStation})
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.False(t, stations[0].HasCoords)
}

func TestSQLite_SavePoints_UpsertsByIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := model.GeoPoint{Label: "Richmond", Category: model.CategoryStation}
	require.NoError(t, s.SavePoints(ctx, []model.GeoPoint{p, p}))

	pts, err := s.ListPoints(ctx, PointFilter{})
	require.NoError(t, err)
	assert.Len(t, pts, 1)
}

func TestSQLite_SetPointCoords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := model.GeoPoint{Label: "Auburn High School", Category: model.CategorySchool}
	require.NoError(t, s.SavePoints(ctx, []model.GeoPoint{p}))

	require.NoError(t, s.SetPointCoords(ctx, p.Identity(), -37.8236, 145.0459))

	pts, err := s.ListPoints(ctx, PointFilter{})
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.True(t, pts[0].HasCoords)
	assert.InDelta(t, 145.0459, pts[0].Longitude, 1e-9)

	err = s.SetPointCoords(ctx, "station|does not exist", -37, 144)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_GeocodeCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetGeocode(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	want := &geocode.Result{Latitude: -37.8, Longitude: 144.9, Source: "nominatim", Matched: true}
	require.NoError(t, s.PutGeocode(ctx, "key1", want))

	got, ok, err := s.GetGeocode(ctx, "key1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	// Misses are cached too.
	require.NoError(t, s.PutGeocode(ctx, "key2", &geocode.Result{Matched: false, Source: "cascade"}))
	got, ok, err = s.GetGeocode(ctx, "key2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Matched)
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	run.Status = model.RunStatusComplete
	run.Stage = "render"
	run.Summary = &model.RunSummary{Schools: 50, Stations: 220, StationsKept: 61, RadiusKm: 2}
	require.NoError(t, s.UpdateRun(ctx, run))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	require.NotNil(t, runs[0].Summary)
	assert.Equal(t, 61, runs[0].Summary.StationsKept)
}

func TestGeocodeCacheAdapter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var cache geocode.Cache = GeocodeCache{Store: s}
	require.NoError(t, cache.Put(ctx, "k", &geocode.Result{Latitude: 1, Longitude: 2, Source: "x", Matched: true}))
	r, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 1.0, r.Latitude, 1e-9)
}
