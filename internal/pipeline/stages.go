package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/schoolrail/schoolrail-cli/internal/geo"
	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/internal/refdata"
	"github.com/schoolrail/schoolrail-cli/internal/render"
	"github.com/schoolrail/schoolrail-cli/pkg/geocode"
)

// GeocodePoints resolves coordinates for points that lack them. Misses are
// recorded as diagnostics and the points kept without coordinates. Quota
// exhaustion stops the remaining lookups but keeps the results already
// resolved; the unresolved points stay pending rather than being reported
// as misses.
func (p *Pipeline) GeocodePoints(ctx context.Context, points []model.GeoPoint) ([]model.GeoPoint, error) {
	var pending []int
	var queries []geocode.Query
	for i, pt := range points {
		if pt.HasCoords {
			continue
		}
		pending = append(pending, i)
		queries = append(queries, geocode.Query{
			Label:  geocodeLabel(pt),
			Region: p.cfg.Geocode.Region,
		})
	}
	if len(queries) == 0 {
		return points, nil
	}

	results, err := p.geocoder.BatchGeocode(ctx, queries)
	quotaHit := err != nil && errors.Is(err, geocode.ErrQuotaExceeded)
	if err != nil && !quotaHit {
		return nil, eris.Wrap(err, "pipeline: batch geocode")
	}
	if quotaHit {
		zap.L().Warn("pipeline: geocode quota exhausted, remaining lookups pending",
			zap.Int("pending", len(queries)),
		)
	}

	for qi, i := range pending {
		if qi >= len(results) {
			break
		}
		r := results[qi]
		if !r.Matched {
			if !quotaHit {
				p.diag.AddGeocodeMiss(points[i].Label)
			}
			continue
		}
		if err := points[i].SetCoords(r.Latitude, r.Longitude); err != nil {
			zap.L().Warn("pipeline: provider returned invalid coordinates",
				zap.String("label", points[i].Label),
				zap.String("source", r.Source),
				zap.Error(err),
			)
			p.diag.AddGeocodeMiss(points[i].Label)
		}
	}
	return points, nil
}

// geocodeLabel builds the free-text lookup for a point. Station names from
// the source table are bare ("Flinders Street"), so the station qualifier
// is appended for disambiguation.
func geocodeLabel(p model.GeoPoint) string {
	if p.Category == model.CategoryStation && !strings.Contains(strings.ToLower(p.Label), "station") {
		return p.Label + " railway station"
	}
	return p.Label
}

// JoinReference overrides school coordinates from the configured
// authoritative dataset. Mismatches go to diagnostics for manual review.
func (p *Pipeline) JoinReference(ctx context.Context, schools []model.GeoPoint) ([]model.GeoPoint, error) {
	src, err := refdata.Open(p.cfg.Refdata.Path)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: open reference dataset")
	}
	switch s := src.(type) {
	case refdata.CSVSource:
		s.NameField = p.cfg.Refdata.NameField
		s.XField = p.cfg.Refdata.XField
		s.YField = p.cfg.Refdata.YField
		src = s
	case refdata.XLSXSource:
		s.NameField = p.cfg.Refdata.NameField
		s.XField = p.cfg.Refdata.XField
		s.YField = p.cfg.Refdata.YField
		src = s
	case refdata.ShapefileSource:
		s.NameField = p.cfg.Refdata.NameField
		src = s
	}

	records, err := src.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load reference dataset")
	}

	joined, mismatches := refdata.Join(schools, records)
	p.diag.AddJoinMismatches(mismatches)
	zap.L().Info("pipeline: reference join",
		zap.Int("records", len(records)),
		zap.Int("mismatches", len(mismatches)),
	)
	return joined, nil
}

// FilterStations applies the proximity filter and records ungeocoded points
// on both sides as diagnostics.
func (p *Pipeline) FilterStations(schools, stations []model.GeoPoint) ([]model.GeoPoint, error) {
	_, ungeocodedSchools := geo.SplitUngeocoded(schools)
	_, ungeocodedStations := geo.SplitUngeocoded(stations)
	p.diag.SetUngeocoded(ungeocodedSchools, ungeocodedStations)

	kept, err := p.filter.FilterNearby(schools, stations, p.cfg.Filter.RadiusKm)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: filter stations")
	}
	return kept, nil
}

// RenderArtifacts writes map.html and points.geojson to the output
// directory.
func (p *Pipeline) RenderArtifacts(points []model.GeoPoint) error {
	if err := os.MkdirAll(p.cfg.Render.OutputDir, 0o755); err != nil {
		return eris.Wrap(err, "pipeline: create output dir")
	}

	style := render.DefaultStyle()
	if p.cfg.Render.StylePath != "" {
		var err error
		style, err = render.LoadStyle(p.cfg.Render.StylePath)
		if err != nil {
			return eris.Wrap(err, "pipeline: load style")
		}
	}

	mapPath := filepath.Join(p.cfg.Render.OutputDir, "map.html")
	mapFile, err := os.Create(mapPath)
	if err != nil {
		return eris.Wrap(err, "pipeline: create map file")
	}
	defer mapFile.Close() //nolint:errcheck
	if err := render.RenderMap(mapFile, p.cfg.Render.Title, points, style); err != nil {
		return err
	}

	geojsonPath := filepath.Join(p.cfg.Render.OutputDir, "points.geojson")
	geojsonFile, err := os.Create(geojsonPath)
	if err != nil {
		return eris.Wrap(err, "pipeline: create geojson file")
	}
	defer geojsonFile.Close() //nolint:errcheck
	if err := render.WriteGeoJSON(geojsonFile, points); err != nil {
		return err
	}

	zap.L().Info("pipeline: artifacts written",
		zap.String("map", mapPath),
		zap.String("geojson", geojsonPath),
	)
	return nil
}
