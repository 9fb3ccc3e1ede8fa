// Package store is the SQLite persistence layer. It follows the plain
// database/sql style: one shared *sql.DB opened in WAL mode, idempotent
// migrations, and a Queries value usable either directly (auto-commit) or
// inside a write transaction via WithTx. Write transactions begin IMMEDIATE,
// which serializes concurrent writers and makes read-then-write sequences
// (entry numbering, year activation) safe.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports a missing row for a lookup by id or code.
var ErrNotFound = errors.New("not found")

// querier is the subset of *sql.DB / *sql.Tx the repositories need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries bundles every repository method over one querier. A *Store embeds
// an auto-commit Queries; WithTx hands the callback a transactional one.
type Queries struct {
	q querier
}

// Store owns the database handle.
type Store struct {
	db *sql.DB
	Queries
}

// Open creates and returns a SQLite store with WAL mode, foreign keys and
// immediate write transactions enabled. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// A single connection keeps :memory: databases coherent and sidesteps
	// SQLITE_BUSY between pooled writers.
	db.SetMaxOpenConns(1)

	slog.Info("database connected", "path", path)
	return &Store{db: db, Queries: Queries{q: db}}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside one immediate write transaction, committing on nil
// and rolling back on error. Every multi-step ledger mutation goes through
// here so a crash cannot leave partial state behind.
func (s *Store) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&Queries{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
