/*
Package sqlite provides a SQLite-backed credits.Store.

PURPOSE:
  Persists the user-namespaced key/value documents (credits_<u>,
  transactions_<u>, notifications_<u>, ...) in a single table. The ledger
  semantics live above this layer; the store only moves strings.

KEY TABLE:
  kv: key TEXT PRIMARY KEY, value TEXT, updated_at TEXT

  Set is an upsert. Remove deletes the row. A missing row is ("", false).

CONCURRENCY:
  Uses sync.RWMutex around the connection pool. SQLite still allows only
  one writer at a time; the mutex keeps "database is locked" errors out of
  the request path.

WAL MODE:
  Opened with WAL (Write-Ahead Logging): readers do not block the writer
  and crash recovery is cheaper.

USAGE:
  store, err := sqlite.New("./data/catbutler.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  sessions := session.NewManager(store)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - credits/store.go: Store contract and key layout
  - credits/store/memory.go: In-memory implementation for testing
  - store/postgres/postgres.go: Same contract on PostgreSQL
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/catbutler/credits-engine/credits"
)

// DefaultTimeout bounds every statement issued through the credits.Store
// methods, which carry no context.
const DefaultTimeout = 5 * time.Second

// Store implements credits.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ credits.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// credits.Store
// =============================================================================

func (s *Store) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// =============================================================================
// ADMIN
// =============================================================================

var _ credits.KeyLister = (*Store)(nil)

// Keys lists keys starting with prefix, sorted.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
