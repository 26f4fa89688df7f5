/*
Package postgres provides a PostgreSQL-backed credits.Store on pgx.

PURPOSE:
  Same key/value contract as store/sqlite, for deployments that run more
  than one server replica against a shared database.

  Sharing a database does NOT make concurrent sessions for one user safe:
  each session still reads once and writes back whole documents (see the
  lost-update note in credits/ledger.go).

KEY TABLE:
  credits_kv: key TEXT PRIMARY KEY, value TEXT, updated_at TIMESTAMPTZ

SEE ALSO:
  - credits/store.go: Store contract
  - store/sqlite/sqlite.go: Single-node variant
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/catbutler/credits-engine/credits"
)

// DefaultTimeout bounds every statement issued through the credits.Store
// methods.
const DefaultTimeout = 5 * time.Second

// Store implements credits.Store using a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ credits.Store = (*Store)(nil)

// NewPool opens a pool with the server's defaults.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, config)
}

// Open connects to databaseURL and migrates the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool and migrates the schema.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return s, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS credits_kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

// =============================================================================
// credits.Store
// =============================================================================

func (s *Store) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM credits_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO credits_kv (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `DELETE FROM credits_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

var _ credits.KeyLister = (*Store)(nil)

// Keys lists keys starting with prefix, sorted.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM credits_kv WHERE left(key, $1) = $2 ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
