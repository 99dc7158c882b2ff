package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/pkg/geocode"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS points (
	identity   TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	category   TEXT NOT NULL,
	latitude   REAL,
	longitude  REAL,
	has_coords INTEGER NOT NULL DEFAULT 0,
	attrs      TEXT,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	query_hash TEXT PRIMARY KEY,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	source     TEXT NOT NULL,
	matched    INTEGER NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	stage      TEXT NOT NULL DEFAULT '',
	error      TEXT,
	summary    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_points_category ON points(category);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SavePoints(ctx context.Context, points []model.GeoPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save points")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (identity, label, category, latitude, longitude, has_coords, attrs, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (identity) DO UPDATE SET
			label = excluded.label,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			has_coords = excluded.has_coords,
			attrs = excluded.attrs,
			updated_at = excluded.updated_at`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare save points")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, p := range points {
		attrsJSON, err := json.Marshal(p.Attrs)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal attrs for %s", p.Label)
		}
		var lat, lon any
		if p.HasCoords {
			lat, lon = p.Latitude, p.Longitude
		}
		if _, err := stmt.ExecContext(ctx,
			p.Identity(), p.Label, string(p.Category), lat, lon, boolToInt(p.HasCoords), string(attrsJSON), now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert point %s", p.Label)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save points")
}

func (s *SQLiteStore) ListPoints(ctx context.Context, filter PointFilter) ([]model.GeoPoint, error) {
	query := `SELECT label, category, latitude, longitude, has_coords, attrs FROM points WHERE 1=1`
	var args []any
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(filter.Category))
	}
	query += ` ORDER BY rowid`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list points")
	}
	defer rows.Close() //nolint:errcheck

	var points []model.GeoPoint
	for rows.Next() {
		var p model.GeoPoint
		var lat, lon sql.NullFloat64
		var hasCoords int
		var attrsJSON sql.NullString
		if err := rows.Scan(&p.Label, &p.Category, &lat, &lon, &hasCoords, &attrsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan point")
		}
		if hasCoords == 1 && lat.Valid && lon.Valid {
			p.Latitude = lat.Float64
			p.Longitude = lon.Float64
			p.HasCoords = true
		}
		if attrsJSON.Valid && attrsJSON.String != "" && attrsJSON.String != "null" {
			if err := json.Unmarshal([]byte(attrsJSON.String), &p.Attrs); err != nil {
				return nil, eris.Wrapf(err, "sqlite: unmarshal attrs for %s", p.Label)
			}
		}
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "sqlite: iterate points")
}

func (s *SQLiteStore) SetPointCoords(ctx context.Context, identity string, lat, lon float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE points SET latitude = ?, longitude = ?, has_coords = 1, updated_at = ? WHERE identity = ?`,
		lat, lon, time.Now().UTC(), identity,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set coords %s", identity)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: point %s not found", identity)
	}
	return nil
}

func (s *SQLiteStore) GetGeocode(ctx context.Context, key string) (*geocode.Result, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, source, matched FROM geocode_cache WHERE query_hash = ?`, key)

	var r geocode.Result
	var matched int
	if err := row.Scan(&r.Latitude, &r.Longitude, &r.Source, &matched); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "sqlite: get geocode")
	}
	r.Matched = matched == 1
	return &r, true, nil
}

func (s *SQLiteStore) PutGeocode(ctx context.Context, key string, r *geocode.Result) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (query_hash, latitude, longitude, source, matched, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (query_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			source = excluded.source,
			matched = excluded.matched,
			cached_at = excluded.cached_at`,
		key, r.Latitude, r.Longitude, r.Source, boolToInt(r.Matched), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: put geocode")
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Status:    model.RunStatusRunning,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, stage, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), run.Stage, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *model.Run) error {
	var summaryJSON any
	if run.Summary != nil {
		b, err := json.Marshal(run.Summary)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal summary")
		}
		summaryJSON = string(b)
	}
	run.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, stage = ?, error = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(run.Status), run.Stage, nullIfEmpty(run.Error), summaryJSON, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s", run.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", run.ID)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	query := `SELECT id, status, stage, error, summary, created_at, updated_at FROM runs ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var errMsg, summaryJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.Status, &r.Stage, &errMsg, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Error = errMsg.String
		if summaryJSON.Valid && summaryJSON.String != "" {
			var summary model.RunSummary
			if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err != nil {
				return nil, eris.Wrapf(err, "sqlite: unmarshal summary for run %s", r.ID)
			}
			r.Summary = &summary
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
