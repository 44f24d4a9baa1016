// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index persists CID to molecular formula indexes in SQLite so that
// results of earlier runs can be listed, queried by formula, and exported.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/compound-fetch/pkg/types"
)

const (
	dbFile     = "compounds.db"
	exportFile = "export.yaml"
)

// timeLayout is a fixed-width UTC timestamp so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound means a CID is not in the index.
var ErrNotFound = errors.New("compound not found")

// Store manages the compound index database.
type Store struct {
	db  *sql.DB
	dir string
}

// NewStore opens or creates the index database at cfg.Dir/compounds.db and
// creates the schema if it does not exist.
func NewStore(cfg types.IndexConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("index directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: cfg.Dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			query TEXT,
			source TEXT,
			count INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS compounds (
			cid TEXT PRIMARY KEY,
			formula TEXT NOT NULL,
			run_id TEXT NOT NULL REFERENCES runs(id),
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_compounds_formula ON compounds(formula)`,
		`CREATE INDEX IF NOT EXISTS idx_compounds_run_id ON compounds(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun stores run and upserts every entry of idx under it. A compound
// seen again takes the formula and run of the latest run. It returns the
// run's ID, assigning a new UUID when run.ID is empty.
func (s *Store) RecordRun(ctx context.Context, run types.Run, idx map[string]string) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Count = len(idx)
	now := time.Now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, mode, query, source, count, skipped, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Mode, run.Query, run.Source, run.Count, run.Skipped,
		run.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO compounds (cid, formula, run_id, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(cid) DO UPDATE SET
			formula=excluded.formula, run_id=excluded.run_id, updated_at=excluded.updated_at`)
	if err != nil {
		return "", fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for cid, formula := range idx {
		if _, err := stmt.ExecContext(ctx, cid, formula, run.ID, now); err != nil {
			return "", fmt.Errorf("upserting compound %s: %w", cid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return run.ID, nil
}
