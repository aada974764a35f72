// Package sqlite implements the store interfaces using SQLite.
// Each session gets its own database file, so history from different
// sessions never interleaves.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"modelplane/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// Store provides SQLite-backed implementations of all repositories.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_fk=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer keeps the append-only guarantees simple.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// getExecutor returns the transaction if one was supplied, else the pool.
func (s *Store) getExecutor(tx store.DBTransaction) store.DBTransaction {
	if tx != nil {
		return tx
	}
	return s.db
}
