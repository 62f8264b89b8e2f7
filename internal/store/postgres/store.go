// Package postgres provides Postgres-backed persistence for listings and
// run history.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lamvh/estate-harvester/internal/scraper"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool and table names.
type Config struct {
	DSN             string
	ListingsTable   string
	RunsTable       string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Store writes listings and run history rows into Postgres. Listings are
// deduplicated by link through the table's unique constraint, so Insert can
// report whether a row was genuinely new without a read round trip.
type Store struct {
	pool     execCloser
	listings string
	runs     string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewWithPool(pool, cfg.ListingsTable, cfg.RunsTable)
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewWithPool(pool execCloser, listingsTable, runsTable string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if listingsTable == "" {
		listingsTable = "listings"
	}
	if runsTable == "" {
		runsTable = "scrape_runs"
	}
	if !validTableName.MatchString(listingsTable) {
		return nil, fmt.Errorf("invalid table name %q", listingsTable)
	}
	if !validTableName.MatchString(runsTable) {
		return nil, fmt.Errorf("invalid table name %q", runsTable)
	}
	return &Store{pool: pool, listings: listingsTable, runs: runsTable}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Insert writes one listing, reporting whether it was new. A listing whose
// link is already stored is left untouched.
// It assumes a table schema like:
//
//	CREATE TABLE listings (
//		id BIGSERIAL PRIMARY KEY,
//		title TEXT NOT NULL,
//		price BIGINT NOT NULL,
//		area DOUBLE PRECISION NOT NULL,
//		price_per_area DOUBLE PRECISION NOT NULL,
//		location TEXT NOT NULL,
//		property_type TEXT NOT NULL,
//		bedrooms INT,
//		bathrooms INT,
//		image_url TEXT,
//		link TEXT NOT NULL UNIQUE,
//		source TEXT NOT NULL,
//		scraped_at TIMESTAMPTZ NOT NULL,
//		raw_data JSONB,
//		created_at TIMESTAMPTZ DEFAULT NOW()
//	);
func (s *Store) Insert(ctx context.Context, l scraper.Listing) (bool, error) {
	if s == nil || s.pool == nil {
		return false, fmt.Errorf("listing store is not configured")
	}
	raw, err := json.Marshal(rawOrEmpty(l.RawData))
	if err != nil {
		return false, fmt.Errorf("marshal raw data: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	title,
	price,
	area,
	price_per_area,
	location,
	property_type,
	bedrooms,
	bathrooms,
	image_url,
	link,
	source,
	scraped_at,
	raw_data
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
ON CONFLICT (link) DO NOTHING`, s.listings)

	args := []any{
		l.Title,
		l.Price,
		l.Area,
		l.PricePerArea,
		l.Location,
		l.PropertyType,
		l.Bedrooms,
		l.Bathrooms,
		l.ImageURL,
		l.Link,
		l.Source,
		l.Timestamp,
		raw,
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert listing: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// BeginRun records the start of one source's slice of a run.
// It assumes a table schema like:
//
//	CREATE TABLE scrape_runs (
//		id BIGSERIAL PRIMARY KEY,
//		run_id TEXT NOT NULL,
//		source TEXT NOT NULL,
//		status TEXT NOT NULL,
//		started_at TIMESTAMPTZ NOT NULL,
//		finished_at TIMESTAMPTZ,
//		listings_found INT,
//		listings_new INT,
//		error_message TEXT,
//		UNIQUE (run_id, source)
//	);
func (s *Store) BeginRun(ctx context.Context, rec scraper.RunRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("listing store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	source,
	status,
	started_at
) VALUES (
	$1,$2,$3,$4
)`, s.runs)

	if _, err := s.pool.Exec(ctx, query, rec.RunID, rec.Source, string(rec.Status), rec.StartedAt); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun completes a run history row with the outcome.
func (s *Store) FinishRun(ctx context.Context, rec scraper.RunRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("listing store is not configured")
	}
	query := fmt.Sprintf(`
UPDATE %s SET
	status = $3,
	finished_at = $4,
	listings_found = $5,
	listings_new = $6,
	error_message = $7
WHERE run_id = $1 AND source = $2`, s.runs)

	args := []any{
		rec.RunID,
		rec.Source,
		string(rec.Status),
		rec.FinishedAt,
		rec.ListingsFound,
		rec.ListingsNew,
		rec.Error,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

func rawOrEmpty(raw map[string]any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	return raw
}
