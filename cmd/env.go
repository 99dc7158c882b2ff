package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/schoolrail/schoolrail-cli/internal/fetcher"
	"github.com/schoolrail/schoolrail-cli/internal/pipeline"
	"github.com/schoolrail/schoolrail-cli/internal/store"
	"github.com/schoolrail/schoolrail-cli/pkg/geocode"
)

// pipelineEnv holds the initialized store, clients, and pipeline shared by
// the stage commands.
type pipelineEnv struct {
	Store    store.Store
	Fetcher  fetcher.Fetcher
	Geocoder geocode.Client
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "schoolrail.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initFetcher() fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Scrape.UserAgent,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})
}

// initGeocoder builds the provider cascade: Nominatim primary, Google
// fallback when a key is configured. Results are cached in the store so
// re-runs never burn quota on known labels.
func initGeocoder(st store.Store) geocode.Client {
	providers := []geocode.Provider{
		geocode.NewNominatimProvider(cfg.Scrape.UserAgent,
			geocode.WithNominatimBaseURL(cfg.Geocode.NominatimBaseURL)),
	}
	if cfg.Geocode.GoogleKey != "" {
		providers = append(providers,
			geocode.NewGoogleProvider(cfg.Geocode.GoogleKey,
				geocode.WithGoogleBaseURL(cfg.Geocode.GoogleBaseURL)))
		zap.L().Info("google geocoding fallback enabled")
	}

	return geocode.NewCascadeClient(providers,
		geocode.WithCache(store.GeocodeCache{Store: st}),
		geocode.WithDailyQuota(cfg.Geocode.DailyQuota),
		geocode.WithBatchConcurrency(cfg.Geocode.BatchConcurrency),
	)
}

// initPipeline validates config and builds the full environment. Callers
// should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("pipeline"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	f := initFetcher()
	gc := initGeocoder(st)

	return &pipelineEnv{
		Store:    st,
		Fetcher:  f,
		Geocoder: gc,
		Pipeline: pipeline.New(cfg, st, f, gc),
	}, nil
}
