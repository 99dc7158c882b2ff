// Package store persists scraped points, geocode results, and run history.
package store

import (
	"context"

	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/pkg/geocode"
)

// PointFilter specifies criteria for listing points.
type PointFilter struct {
	Category model.Category
	Limit    int
}

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Points
	SavePoints(ctx context.Context, points []model.GeoPoint) error
	ListPoints(ctx context.Context, filter PointFilter) ([]model.GeoPoint, error)
	SetPointCoords(ctx context.Context, identity string, lat, lon float64) error

	// Geocode cache
	GetGeocode(ctx context.Context, key string) (*geocode.Result, bool, error)
	PutGeocode(ctx context.Context, key string, r *geocode.Result) error

	// Runs
	CreateRun(ctx context.Context) (*model.Run, error)
	UpdateRun(ctx context.Context, run *model.Run) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// GeocodeCache adapts a Store to the geocode.Cache interface.
type GeocodeCache struct {
	Store Store
}

// Get implements geocode.Cache.
func (c GeocodeCache) Get(ctx context.Context, key string) (*geocode.Result, bool, error) {
	return c.Store.GetGeocode(ctx, key)
}

// Put implements geocode.Cache.
func (c GeocodeCache) Put(ctx context.Context, key string, r *geocode.Result) error {
	return c.Store.PutGeocode(ctx, key, r)
}
