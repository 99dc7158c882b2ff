package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/pkg/geocode"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS points (
	identity   TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	category   TEXT NOT NULL,
	latitude   DOUBLE PRECISION,
	longitude  DOUBLE PRECISION,
	has_coords BOOLEAN NOT NULL DEFAULT false,
	attrs      JSONB,
	seq        BIGSERIAL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	query_hash TEXT PRIMARY KEY,
	latitude   DOUBLE PRECISION NOT NULL,
	longitude  DOUBLE PRECISION NOT NULL,
	source     TEXT NOT NULL,
	matched    BOOLEAN NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	stage      TEXT NOT NULL DEFAULT '',
	error      TEXT,
	summary    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_points_category ON points(category);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SavePoints(ctx context.Context, points []model.GeoPoint) error {
	now := time.Now().UTC()
	for _, p := range points {
		attrsJSON, err := json.Marshal(p.Attrs)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal attrs for %s", p.Label)
		}
		var lat, lon any
		if p.HasCoords {
			lat, lon = p.Latitude, p.Longitude
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO points (identity, label, category, latitude, longitude, has_coords, attrs, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (identity) DO UPDATE SET
				label = EXCLUDED.label,
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				has_coords = EXCLUDED.has_coords,
				attrs = EXCLUDED.attrs,
				updated_at = EXCLUDED.updated_at`,
			p.Identity(), p.Label, string(p.Category), lat, lon, p.HasCoords, attrsJSON, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert point %s", p.Label)
		}
	}
	return nil
}

func (s *PostgresStore) ListPoints(ctx context.Context, filter PointFilter) ([]model.GeoPoint, error) {
	query := `SELECT label, category, latitude, longitude, has_coords, attrs FROM points WHERE 1=1`
	var args []any
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		query += ` AND category = $1`
	}
	query += ` ORDER BY seq`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		if filter.Category != "" {
			query += ` LIMIT $2`
		} else {
			query += ` LIMIT $1`
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list points")
	}
	defer rows.Close()

	var points []model.GeoPoint
	for rows.Next() {
		var p model.GeoPoint
		var lat, lon *float64
		var attrsJSON []byte
		if err := rows.Scan(&p.Label, &p.Category, &lat, &lon, &p.HasCoords, &attrsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan point")
		}
		if p.HasCoords && lat != nil && lon != nil {
			p.Latitude = *lat
			p.Longitude = *lon
		}
		if len(attrsJSON) > 0 {
			if err := json.Unmarshal(attrsJSON, &p.Attrs); err != nil {
				return nil, eris.Wrapf(err, "postgres: unmarshal attrs for %s", p.Label)
			}
		}
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "postgres: iterate points")
}

func (s *PostgresStore) SetPointCoords(ctx context.Context, identity string, lat, lon float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE points SET latitude = $1, longitude = $2, has_coords = true, updated_at = now() WHERE identity = $3`,
		lat, lon, identity,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set coords %s", identity)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: point %s not found", identity)
	}
	return nil
}

func (s *PostgresStore) GetGeocode(ctx context.Context, key string) (*geocode.Result, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT latitude, longitude, source, matched FROM geocode_cache WHERE query_hash = $1`, key)

	var r geocode.Result
	if err := row.Scan(&r.Latitude, &r.Longitude, &r.Source, &r.Matched); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "postgres: get geocode")
	}
	return &r, true, nil
}

func (s *PostgresStore) PutGeocode(ctx context.Context, key string, r *geocode.Result) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO geocode_cache (query_hash, latitude, longitude, source, matched, cached_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (query_hash) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			source = EXCLUDED.source,
			matched = EXCLUDED.matched,
			cached_at = now()`,
		key, r.Latitude, r.Longitude, r.Source, r.Matched,
	)
	return eris.Wrap(err, "postgres: put geocode")
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Status:    model.RunStatusRunning,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, stage, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, string(run.Status), run.Stage, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *model.Run) error {
	var summaryJSON []byte
	if run.Summary != nil {
		b, err := json.Marshal(run.Summary)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal summary")
		}
		summaryJSON = b
	}
	run.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, stage = $2, error = $3, summary = $4, updated_at = $5 WHERE id = $6`,
		string(run.Status), run.Stage, nullIfEmpty(run.Error), summaryJSON, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", run.ID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	query := `SELECT id, status, stage, error, summary, created_at, updated_at FROM runs ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var errMsg *string
		var summaryJSON []byte
		if err := rows.Scan(&r.ID, &r.Status, &r.Stage, &errMsg, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		if len(summaryJSON) > 0 {
			var summary model.RunSummary
			if err := json.Unmarshal(summaryJSON, &summary); err != nil {
				return nil, eris.Wrapf(err, "postgres: unmarshal summary for run %s", r.ID)
			}
			r.Summary = &summary
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
