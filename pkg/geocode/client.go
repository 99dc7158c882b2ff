// Package geocode resolves free-text place labels to coordinates via a
// cascade of providers (Nominatim primary, Google fallback), with caching
// and a daily call quota.
package geocode

import (
	"context"

	"github.com/rotisserie/eris"
)

// ErrQuotaExceeded is returned once the daily call ceiling is reached.
// Remaining lookups should be reported as pending, not treated as misses.
var ErrQuotaExceeded = eris.New("geocode: daily quota exceeded")

// Query is a free-text geocoding request. Region is appended to the query
// to disambiguate, e.g. "Victoria, Australia".
type Query struct {
	Label  string
	Region string
}

// text returns the provider query string.
func (q Query) text() string {
	if q.Region == "" {
		return q.Label
	}
	return q.Label + ", " + q.Region
}

// Result holds the geocoding output for one query. An unmatched query is not
// an error: Matched is false and the caller reports the miss.
type Result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Source    string  `json:"source"`
	Matched   bool    `json:"matched"`
}

// Client geocodes labels.
type Client interface {
	// Geocode resolves a single query.
	Geocode(ctx context.Context, q Query) (*Result, error)

	// BatchGeocode resolves multiple queries. Results align with queries by
	// index; individual misses do not fail the batch.
	BatchGeocode(ctx context.Context, qs []Query) ([]Result, error)
}

// Cache stores geocode results keyed by normalized query. Both matches and
// misses are cached so re-runs never burn quota on known inputs.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Put(ctx context.Context, key string, r *Result) error
}
