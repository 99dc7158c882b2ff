package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	Available() bool
	Geocode(ctx context.Context, q Query) (*Result, error)
}

// CascadeClient tries providers in order until one matches. Results, matched
// or not, go through the cache; provider calls count against the daily quota.
type CascadeClient struct {
	providers        []Provider
	cache            Cache
	quota            *DailyQuota
	batchConcurrency int
}

// CascadeOption configures the CascadeClient.
type CascadeOption func(*CascadeClient)

// WithCache sets the result cache.
func WithCache(c Cache) CascadeOption {
	return func(cc *CascadeClient) { cc.cache = c }
}

// WithDailyQuota caps provider calls per UTC day. Zero means unlimited.
func WithDailyQuota(limit int) CascadeOption {
	return func(cc *CascadeClient) { cc.quota = NewDailyQuota(limit) }
}

// WithBatchConcurrency sets the max parallel lookups in BatchGeocode.
func WithBatchConcurrency(n int) CascadeOption {
	return func(cc *CascadeClient) {
		if n > 0 {
			cc.batchConcurrency = n
		}
	}
}

// NewCascadeClient creates a CascadeClient over the given providers.
func NewCascadeClient(providers []Provider, opts ...CascadeOption) *CascadeClient {
	cc := &CascadeClient{
		providers:        providers,
		batchConcurrency: 4,
	}
	for _, opt := range opts {
		opt(cc)
	}
	return cc
}

// cacheKey returns SHA-256 hex of the normalized query text.
func cacheKey(q Query) string {
	normalized := strings.ToLower(strings.TrimSpace(q.text()))
	return fmt.Sprintf("%x", sha256.Sum256([]byte(normalized)))
}

// Geocode implements Client.
func (c *CascadeClient) Geocode(ctx context.Context, q Query) (*Result, error) {
	key := cacheKey(q)

	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, key)
		if err == nil && ok {
			zap.L().Debug("geocode cache hit",
				zap.String("label", q.Label),
				zap.Bool("matched", cached.Matched),
			)
			return cached, nil
		}
	}

	if c.quota != nil {
		if err := c.quota.Take(); err != nil {
			return nil, err
		}
	}

	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		result, err := p.Geocode(ctx, q)
		if err != nil {
			zap.L().Debug("geocode provider error, trying next",
				zap.String("provider", p.Name()),
				zap.String("label", q.Label),
				zap.Error(err),
			)
			continue
		}
		if result != nil && result.Matched {
			c.storeCache(ctx, key, result)
			return result, nil
		}
	}

	// All providers missed. Cache the negative result too.
	miss := &Result{Matched: false, Source: "cascade"}
	c.storeCache(ctx, key, miss)
	return miss, nil
}

func (c *CascadeClient) storeCache(ctx context.Context, key string, r *Result) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Put(ctx, key, r); err != nil {
		zap.L().Warn("geocode cache store failed", zap.Error(err))
	}
}

// BatchGeocode implements Client with bounded parallelism. A quota
// exhaustion aborts the remaining lookups and is returned to the caller.
func (c *CascadeClient) BatchGeocode(ctx context.Context, qs []Query) ([]Result, error) {
	if len(qs) == 0 {
		return nil, nil
	}

	results := make([]Result, len(qs))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.batchConcurrency)

	for i, q := range qs {
		i, q := i, q
		eg.Go(func() error {
			r, err := c.Geocode(gCtx, q)
			if err != nil {
				return err
			}
			results[i] = *r
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// DailyQuota counts provider calls per UTC day.
type DailyQuota struct {
	mu    sync.Mutex
	limit int
	day   string
	used  int
}

// NewDailyQuota creates a quota with the given per-day limit (0 = unlimited).
func NewDailyQuota(limit int) *DailyQuota {
	return &DailyQuota{limit: limit}
}

// Take consumes one call, returning ErrQuotaExceeded when the day's budget
// is spent.
func (d *DailyQuota) Take() error {
	if d == nil || d.limit <= 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	today := time.Now().UTC().Format("2006-01-02")
	if d.day != today {
		d.day = today
		d.used = 0
	}
	if d.used >= d.limit {
		return ErrQuotaExceeded
	}
	d.used++
	return nil
}

// Remaining returns how many calls are left today.
func (d *DailyQuota) Remaining() int {
	if d == nil || d.limit <= 0 {
		return -1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	today := time.Now().UTC().Format("2006-01-02")
	if d.day != today {
		return d.limit
	}
	return d.limit - d.used
}
