package ibc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresCache keeps traces in the denom_traces table so they survive restarts.
type PostgresCache struct {
	db  *sqlx.DB
	ttl time.Duration
}

// NewPostgresCache wraps db. A non-positive ttl keeps rows forever.
func NewPostgresCache(db *sqlx.DB, ttl time.Duration) *PostgresCache {
	return &PostgresCache{db: db, ttl: ttl}
}

type traceRow struct {
	Trace     []byte    `db:"trace"`
	FetchedAt time.Time `db:"fetched_at"`
}

// Get implements Cache.
func (p *PostgresCache) Get(ctx context.Context, chain, hash string) (json.RawMessage, bool, error) {
	var row traceRow
	err := p.db.GetContext(ctx, &row,
		`SELECT trace, fetched_at FROM denom_traces WHERE chain = $1 AND hash = $2`,
		chain, hash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select denom trace: %w", err)
	}
	if p.ttl > 0 && time.Since(row.FetchedAt) > p.ttl {
		return nil, false, nil
	}
	return json.RawMessage(row.Trace), true, nil
}

// Put implements Cache.
func (p *PostgresCache) Put(ctx context.Context, chain, hash string, trace json.RawMessage) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO denom_traces (chain, hash, trace, fetched_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (chain, hash) DO UPDATE
		SET trace = EXCLUDED.trace, fetched_at = EXCLUDED.fetched_at`,
		chain, hash, string(trace),
	)
	if err != nil {
		return fmt.Errorf("upsert denom trace: %w", err)
	}
	return nil
}

// Count returns the number of stored traces.
func (p *PostgresCache) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.GetContext(ctx, &n, `SELECT count(*) FROM denom_traces`); err != nil {
		return 0, fmt.Errorf("count denom traces: %w", err)
	}
	return n, nil
}
