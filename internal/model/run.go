package model

import "time"

// RunStatus tracks pipeline run lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSummary holds per-stage counters persisted with a run.
type RunSummary struct {
	Schools            int     `json:"schools"`
	Stations           int     `json:"stations"`
	Geocoded           int     `json:"geocoded"`
	GeocodeMisses      int     `json:"geocode_misses"`
	JoinMismatches     int     `json:"join_mismatches"`
	StationsKept       int     `json:"stations_kept"`
	UngeocodedSchools  int     `json:"ungeocoded_schools"`
	UngeocodedStations int     `json:"ungeocoded_stations"`
	RadiusKm           float64 `json:"radius_km"`
}

// Run is one end-to-end pipeline execution.
type Run struct {
	ID        string      `json:"id"`
	Status    RunStatus   `json:"status"`
	Stage     string      `json:"stage"`
	Error     string      `json:"error,omitempty"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
