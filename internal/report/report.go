// Package report accumulates pipeline diagnostics and produces status
// snapshots for operators.
package report

import (
	"fmt"
	"strings"
	"sync"

	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/internal/refdata"
)

// Diagnostics collects the non-fatal problems a pipeline run encounters:
// labels that no provider could geocode, reference records that matched no
// scraped point, and points left without coordinates at filter time.
// Safe for concurrent use; geocoding runs batched.
type Diagnostics struct {
	mu                 sync.Mutex
	geocodeMisses      []string
	joinMismatches     []refdata.Mismatch
	ungeocodedSchools  []string
	ungeocodedStations []string
}

// AddGeocodeMiss records a label no provider matched.
func (d *Diagnostics) AddGeocodeMiss(label string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.geocodeMisses = append(d.geocodeMisses, label)
}

// AddJoinMismatches records reference-join failures.
func (d *Diagnostics) AddJoinMismatches(mismatches []refdata.Mismatch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.joinMismatches = append(d.joinMismatches, mismatches...)
}

// SetUngeocoded records the points that still lack coordinates when the
// proximity filter runs.
func (d *Diagnostics) SetUngeocoded(schools, stations []model.GeoPoint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ungeocodedSchools = labels(schools)
	d.ungeocodedStations = labels(stations)
}

// GeocodeMisses returns the recorded miss labels.
func (d *Diagnostics) GeocodeMisses() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.geocodeMisses...)
}

// JoinMismatches returns the recorded join failures.
func (d *Diagnostics) JoinMismatches() []refdata.Mismatch {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]refdata.Mismatch(nil), d.joinMismatches...)
}

// ApplyTo fills the diagnostic counters on a run summary.
func (d *Diagnostics) ApplyTo(s *model.RunSummary) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s.GeocodeMisses = len(d.geocodeMisses)
	s.JoinMismatches = len(d.joinMismatches)
	s.UngeocodedSchools = len(d.ungeocodedSchools)
	s.UngeocodedStations = len(d.ungeocodedStations)
}

// Summary renders a human-readable report. Empty sections are omitted; a
// clean run reports as such.
func (d *Diagnostics) Summary() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var b strings.Builder
	if len(d.geocodeMisses) > 0 {
		fmt.Fprintf(&b, "geocode misses (%d):\n", len(d.geocodeMisses))
		for _, label := range d.geocodeMisses {
			fmt.Fprintf(&b, "  - %s\n", label)
		}
	}
	if len(d.joinMismatches) > 0 {
		fmt.Fprintf(&b, "reference join mismatches (%d):\n", len(d.joinMismatches))
		for _, m := range d.joinMismatches {
			fmt.Fprintf(&b, "  - %s (key %s)\n", m.Label, m.Key)
		}
	}
	if len(d.ungeocodedSchools) > 0 {
		fmt.Fprintf(&b, "schools without coordinates (%d):\n", len(d.ungeocodedSchools))
		for _, label := range d.ungeocodedSchools {
			fmt.Fprintf(&b, "  - %s\n", label)
		}
	}
	if len(d.ungeocodedStations) > 0 {
		fmt.Fprintf(&b, "stations without coordinates (%d):\n", len(d.ungeocodedStations))
		for _, label := range d.ungeocodedStations {
			fmt.Fprintf(&b, "  - %s\n", label)
		}
	}
	if b.Len() == 0 {
		return "no diagnostics recorded\n"
	}
	return b.String()
}

func labels(points []model.GeoPoint) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		out = append(out, p.Label)
	}
	return out
}
