package report

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/internal/store"
)

// Snapshot holds a point-in-time view of the stored data set and run history.
type Snapshot struct {
	SchoolsTotal     int `json:"schools_total"`
	SchoolsGeocoded  int `json:"schools_geocoded"`
	StationsTotal    int `json:"stations_total"`
	StationsGeocoded int `json:"stations_geocoded"`

	RunsTotal    int `json:"runs_total"`
	RunsComplete int `json:"runs_complete"`
	RunsFailed   int `json:"runs_failed"`
	RunsRunning  int `json:"runs_running"`

	LastRun *model.Run `json:"last_run,omitempty"`

	CollectedAt time.Time `json:"collected_at"`
}

// Collector gathers snapshots from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a snapshot collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect builds a snapshot of stored points and recent runs. The run
// counters cover at most the latest maxRuns runs.
func (c *Collector) Collect(ctx context.Context, maxRuns int) (*Snapshot, error) {
	snap := &Snapshot{CollectedAt: time.Now().UTC()}

	for _, cat := range []model.Category{model.CategorySchool, model.CategoryStation} {
		points, err := c.store.ListPoints(ctx, store.PointFilter{Category: cat})
		if err != nil {
			return nil, eris.Wrapf(err, "report: list %s points", cat)
		}
		var geocoded int
		for _, p := range points {
			if p.HasCoords {
				geocoded++
			}
		}
		if cat == model.CategorySchool {
			snap.SchoolsTotal = len(points)
			snap.SchoolsGeocoded = geocoded
		} else {
			snap.StationsTotal = len(points)
			snap.StationsGeocoded = geocoded
		}
	}

	runs, err := c.store.ListRuns(ctx, maxRuns)
	if err != nil {
		return nil, eris.Wrap(err, "report: list runs")
	}
	snap.RunsTotal = len(runs)
	for i := range runs {
		switch runs[i].Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
	}
	if len(runs) > 0 {
		snap.LastRun = &runs[0]
	}

	return snap, nil
}
