// Package postgres provides a Postgres-backed state store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "page_state"

// Config controls the Postgres connection pool used for state rows.
type Config struct {
	DSN             string
	Table           string
	Namespace       string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	QueryRow(context.Context, string, ...any) pgx.Row
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// StateStore keeps one row per (namespace, key) pair.
type StateStore struct {
	pool      Querier
	table     string
	namespace string
}

// New connects to Postgres, ensures the state table exists and returns a store.
func New(ctx context.Context, cfg Config) (*StateStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("state.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(pool, cfg.Table, cfg.Namespace)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool Querier, table, namespace string) (*StateStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	return &StateStore{pool: pool, table: table, namespace: namespace}, nil
}

// EnsureSchema creates the state table when it does not exist yet.
func (s *StateStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create state table: %w", err)
	}
	return nil
}

// Get returns the stored value for key.
func (s *StateStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE namespace = $1 AND key = $2`, s.table)
	var value string
	err := s.pool.QueryRow(ctx, query, s.namespace, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select state: %w", err)
	}
	return value, true, nil
}

// Put upserts value for key.
func (s *StateStore) Put(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`
INSERT INTO %s (namespace, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, s.table)
	if _, err := s.pool.Exec(ctx, query, s.namespace, key, value); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *StateStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
