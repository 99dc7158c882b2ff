package geocode

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is a scripted Provider for cascade tests.
type fakeProvider struct {
	name      string
	available bool
	result    *Result
	err       error
	calls     int
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) Available() bool { return f.available }
func (f *fakeProvider) Geocode(_ context.Context, _ Query) (*Result, error) {
	f.calls++
	return f.result, f.err
}

// memCache is an in-memory Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string]*Result
}

func newMemCache() *memCache { return &memCache{data: map[string]*Result{}} }

func (m *memCache) Get(_ context.Context, key string) (*Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[key]
	return r, ok, nil
}

func (m *memCache) Put(_ context.Context, key string, r *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = r
	return nil
}

func TestCascade_FirstProviderWins(t *testing.T) {
	primary := &fakeProvider{name: "primary", available: true, result: &Result{Latitude: -37.8, Longitude: 144.9, Matched: true, Source: "primary"}}
	fallback := &fakeProvider{name: "fallback", available: true, result: &Result{Matched: true, Source: "fallback"}}

	c := NewCascadeClient([]Provider{primary, fallback})
	r, err := c.Geocode(context.Background(), Query{Label: "Flinders Street"})
	require.NoError(t, err)
	assert.True(t, r.Matched)
	assert.Equal(t, "primary", r.Source)
	assert.Equal(t, 0, fallback.calls)
}

func TestCascade_FallsThroughOnMissAndError(t *testing.T) {
	erroring := &fakeProvider{name: "err", available: true, err: eris.New("boom")}
	missing := &fakeProvider{name: "miss", available: true, result: &Result{Matched: false, Source: "miss"}}
	matching := &fakeProvider{name: "match", available: true, result: &Result{Latitude: 1, Longitude: 2, Matched: true, Source: "match"}}

	c := NewCascadeClient([]Provider{erroring, missing, matching})
	r, err := c.Geocode(context.Background(), Query{Label: "Somewhere"})
	require.NoError(t, err)
	assert.Equal(t, "match", r.Source)
}

func TestCascade_SkipsUnavailableProviders(t *testing.T) {
	gated := &fakeProvider{name: "gated", available: false}
	c := NewCascadeClient([]Provider{gated})

	r, err := c.Geocode(context.Background(), Query{Label: "X"})
	require.NoError(t, err)
	assert.False(t, r.Matched)
	assert.Equal(t, 0, gated.calls)
}

func TestCascade_AllMissReturnsUnmatched(t *testing.T) {
	miss := &fakeProvider{name: "miss", available: true, result: &Result{Matched: false, Source: "miss"}}
	c := NewCascadeClient([]Provider{miss})

	r, err := c.Geocode(context.Background(), Query{Label: "Nonexistent Place"})
	require.NoError(t, err)
	assert.False(t, r.Matched)
}

func TestCascade_CacheHitSkipsProviders(t *testing.T) {
	p := &fakeProvider{name: "p", available: true, result: &Result{Latitude: -37.8, Longitude: 144.9, Matched: true, Source: "p"}}
	c := NewCascadeClient([]Provider{p}, WithCache(newMemCache()))

	q := Query{Label: "Flinders Street", Region: "Victoria, Australia"}
	_, err := c.Geocode(context.Background(), q)
	require.NoError(t, err)
	_, err = c.Geocode(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 1, p.calls)
}

func TestCascade_NegativeResultsAreCached(t *testing.T) {
	miss := &fakeProvider{name: "miss", available: true, result: &Result{Matched: false, Source: "miss"}}
	c := NewCascadeClient([]Provider{miss}, WithCache(newMemCache()))

	q := Query{Label: "Nowhere"}
	_, err := c.Geocode(context.Background(), q)
	require.NoError(t, err)
	_, err = c.Geocode(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 1, miss.calls)
}

func TestCascade_QuotaExceeded(t *testing.T) {
	p := &fakeProvider{name: "p", available: true, result: &Result{Matched: true}}
	c := NewCascadeClient([]Provider{p}, WithDailyQuota(2))

	ctx := context.Background()
	_, err := c.Geocode(ctx, Query{Label: "A"})
	require.NoError(t, err)
	_, err = c.Geocode(ctx, Query{Label: "B"})
	require.NoError(t, err)

	_, err = c.Geocode(ctx, Query{Label: "C"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
}

func TestCascade_BatchAlignsByIndex(t *testing.T) {
	p := &fakeProvider{name: "p", available: true, result: &Result{Latitude: -37.8, Longitude: 144.9, Matched: true, Source: "p"}}
	c := NewCascadeClient([]Provider{p}, WithBatchConcurrency(2))

	results, err := c.BatchGeocode(context.Background(), []Query{{Label: "A"}, {Label: "B"}, {Label: "C"}})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Matched)
	}
}

func TestCascade_BatchEmpty(t *testing.T) {
	c := NewCascadeClient(nil)
	results, err := c.BatchGeocode(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestCacheKey_NormalizesCase(t *testing.T) {
	a := cacheKey(Query{Label: "Flinders Street", Region: "Victoria"})
	b := cacheKey(Query{Label: "  flinders street", Region: "Victoria"})
	assert.Equal(t, a, b)
}
