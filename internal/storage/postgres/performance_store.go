// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rankscout/serptrack/internal/serp"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PerformanceStoreConfig controls the Postgres connection pool.
type PerformanceStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querierCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// PerformanceStore reads and writes keyword performance rows.
type PerformanceStore struct {
	pool  querierCloser
	table string
}

// NewPerformanceStore connects a pool using the provided config.
func NewPerformanceStore(ctx context.Context, cfg PerformanceStoreConfig) (*PerformanceStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "performance_tracking"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
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
	return &PerformanceStore{pool: pool, table: table}, nil
}

// NewPerformanceStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPerformanceStoreWithPool(pool querierCloser, table string) (*PerformanceStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "performance_tracking"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PerformanceStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *PerformanceStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreatePerformanceTracking inserts one keyword measurement. Rank arrives
// already encoded in basis points; clicks, impressions, and CTR are zeroed
// placeholders kept for schema parity with the analytics importer.
func (s *PerformanceStore) CreatePerformanceTracking(ctx context.Context, rec serp.PerformanceRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("performance store is not configured")
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (keyword, owner_id, rank_bp, url, clicks, impressions, ctr, device, country, tracked_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::date)
	`, s.table)
	_, err := s.pool.Exec(ctx, query,
		rec.Keyword,
		rec.OwnerID,
		rec.RankBasisPoints,
		rec.URL,
		rec.Clicks,
		rec.Impressions,
		rec.CTR,
		string(rec.Device),
		rec.Country,
		rec.Date,
	)
	if err != nil {
		return fmt.Errorf("insert performance row: %w", err)
	}
	return nil
}

// GetPerformanceTrackingByKeyword returns the lookback window for one
// keyword and owner, most recent first.
func (s *PerformanceStore) GetPerformanceTrackingByKeyword(ctx context.Context, keyword, ownerID string, lookbackDays int) ([]serp.PerformanceRecord, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("performance store is not configured")
	}
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	query := fmt.Sprintf(`
		SELECT keyword, owner_id, rank_bp, url, clicks, impressions, ctr, device, country, to_char(tracked_on, 'YYYY-MM-DD')
		FROM %s
		WHERE keyword = $1 AND owner_id = $2 AND tracked_on >= CURRENT_DATE - $3::int
		ORDER BY tracked_on DESC
	`, s.table)
	rows, err := s.pool.Query(ctx, query, keyword, ownerID, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("query performance rows: %w", err)
	}
	defer rows.Close()

	var records []serp.PerformanceRecord
	for rows.Next() {
		var rec serp.PerformanceRecord
		var device string
		if err := rows.Scan(
			&rec.Keyword,
			&rec.OwnerID,
			&rec.RankBasisPoints,
			&rec.URL,
			&rec.Clicks,
			&rec.Impressions,
			&rec.CTR,
			&device,
			&rec.Country,
			&rec.Date,
		); err != nil {
			return nil, fmt.Errorf("scan performance row: %w", err)
		}
		rec.Device = serp.Device(device)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate performance rows: %w", err)
	}
	return records, nil
}
