// Package pipeline orchestrates the end-to-end run: scrape both source
// pages, geocode, apply the reference-coordinate join, filter stations by
// proximity, and render the artifacts.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/schoolrail/schoolrail-cli/internal/config"
	"github.com/schoolrail/schoolrail-cli/internal/fetcher"
	"github.com/schoolrail/schoolrail-cli/internal/geo"
	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/internal/report"
	"github.com/schoolrail/schoolrail-cli/internal/store"
	"github.com/schoolrail/schoolrail-cli/pkg/geocode"
)

// Pipeline wires the stages together. All collaborators come in through the
// constructor; there is no ambient process state.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	fetcher  fetcher.Fetcher
	geocoder geocode.Client
	filter   geo.Filterer
	diag     *report.Diagnostics
}

// New creates a Pipeline with the brute-force proximity filter.
func New(cfg *config.Config, st store.Store, f fetcher.Fetcher, gc geocode.Client) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		fetcher:  f,
		geocoder: gc,
		filter:   geo.BruteForce{},
		diag:     &report.Diagnostics{},
	}
}

// Diagnostics returns the accumulated run diagnostics.
func (p *Pipeline) Diagnostics() *report.Diagnostics {
	return p.diag
}

// Run executes the full pipeline and records progress in the store. The
// returned Run carries the final status and summary; on stage failure the
// run is marked failed and the stage error is returned alongside it.
func (p *Pipeline) Run(ctx context.Context) (*model.Run, error) {
	run, err := p.store.CreateRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	summary := &model.RunSummary{RadiusKm: p.cfg.Filter.RadiusKm}

	fail := func(stage string, stageErr error) (*model.Run, error) {
		run.Status = model.RunStatusFailed
		run.Stage = stage
		run.Error = stageErr.Error()
		run.Summary = summary
		if err := p.store.UpdateRun(ctx, run); err != nil {
			zap.L().Error("pipeline: record failure", zap.String("run", run.ID), zap.Error(err))
		}
		return run, stageErr
	}

	advance := func(stage string) error {
		run.Stage = stage
		return p.store.UpdateRun(ctx, run)
	}

	// Scrape.
	if err := advance("scrape"); err != nil {
		return fail("scrape", eris.Wrap(err, "pipeline: update run"))
	}
	schools, err := p.ScrapeSchools(ctx)
	if err != nil {
		return fail("scrape", err)
	}
	stations, err := p.ScrapeStations(ctx)
	if err != nil {
		return fail("scrape", err)
	}
	summary.Schools = len(schools)
	summary.Stations = len(stations)
	if err := p.store.SavePoints(ctx, append(append([]model.GeoPoint{}, schools...), stations...)); err != nil {
		return fail("scrape", err)
	}

	// Geocode.
	if err := advance("geocode"); err != nil {
		return fail("geocode", eris.Wrap(err, "pipeline: update run"))
	}
	schools, err = p.GeocodePoints(ctx, schools)
	if err != nil {
		return fail("geocode", err)
	}
	stations, err = p.GeocodePoints(ctx, stations)
	if err != nil {
		return fail("geocode", err)
	}

	// Reference join corrects school coordinates where an authoritative
	// dataset is configured.
	if p.cfg.Refdata.Path != "" {
		if err := advance("join"); err != nil {
			return fail("join", eris.Wrap(err, "pipeline: update run"))
		}
		schools, err = p.JoinReference(ctx, schools)
		if err != nil {
			return fail("join", err)
		}
	}

	for _, pt := range append(append([]model.GeoPoint{}, schools...), stations...) {
		if pt.HasCoords {
			summary.Geocoded++
		}
	}
	if err := p.store.SavePoints(ctx, append(append([]model.GeoPoint{}, schools...), stations...)); err != nil {
		return fail("geocode", err)
	}

	// Filter.
	if err := advance("filter"); err != nil {
		return fail("filter", eris.Wrap(err, "pipeline: update run"))
	}
	kept, err := p.FilterStations(schools, stations)
	if err != nil {
		return fail("filter", err)
	}
	summary.StationsKept = len(kept)

	// Render.
	if err := advance("render"); err != nil {
		return fail("render", eris.Wrap(err, "pipeline: update run"))
	}
	locatedSchools, _ := geo.SplitUngeocoded(schools)
	if err := p.RenderArtifacts(append(append([]model.GeoPoint{}, locatedSchools...), kept...)); err != nil {
		return fail("render", err)
	}

	p.diag.ApplyTo(summary)
	run.Status = model.RunStatusComplete
	run.Stage = "done"
	run.Summary = summary
	if err := p.store.UpdateRun(ctx, run); err != nil {
		return run, eris.Wrap(err, "pipeline: record completion")
	}

	zap.L().Info("pipeline: run complete",
		zap.String("run", run.ID),
		zap.Int("schools", summary.Schools),
		zap.Int("stations", summary.Stations),
		zap.Int("stations_kept", summary.StationsKept),
		zap.Int("geocode_misses", summary.GeocodeMisses),
	)
	return run, nil
}
