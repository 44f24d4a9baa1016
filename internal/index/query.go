// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/compound-fetch/pkg/types"
)

const defaultListLimit = 1000

// Lookup returns the index entry for cid.
func (s *Store) Lookup(ctx context.Context, cid string) (types.Compound, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cid, formula, run_id, updated_at FROM compounds WHERE cid = ?`, cid)
	if err != nil {
		return types.Compound{}, fmt.Errorf("querying compound %s: %w", cid, err)
	}
	got, err := scanCompounds(rows)
	if err != nil {
		return types.Compound{}, err
	}
	if len(got) == 0 {
		return types.Compound{}, fmt.Errorf("%w: %s", ErrNotFound, cid)
	}
	return got[0], nil
}

// ByFormula returns every compound with the given Hill formula, ordered
// by CID. The formula is matched case-sensitively after trimming.
func (s *Store) ByFormula(ctx context.Context, formula string) ([]types.Compound, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cid, formula, run_id, updated_at FROM compounds
		 WHERE formula = ? ORDER BY length(cid), cid`, strings.TrimSpace(formula))
	if err != nil {
		return nil, fmt.Errorf("querying formula %s: %w", formula, err)
	}
	return scanCompounds(rows)
}

// List returns up to limit compounds ordered by CID. A limit of zero or
// less uses a default of 1000.
func (s *Store) List(ctx context.Context, limit int) ([]types.Compound, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT cid, formula, run_id, updated_at FROM compounds
		 ORDER BY length(cid), cid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing compounds: %w", err)
	}
	return scanCompounds(rows)
}

// Runs returns every recorded run, most recent first.
func (s *Store) Runs(ctx context.Context) ([]types.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, query, source, count, skipped, started_at FROM runs
		 ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		var (
			r       types.Run
			query   sql.NullString
			source  sql.NullString
			started string
		)
		if err := rows.Scan(&r.ID, &r.Mode, &query, &source, &r.Count, &r.Skipped, &started); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Query = query.String
		r.Source = source.String
		r.StartedAt, _ = time.Parse(timeLayout, started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Stats summarizes the index.
type Stats struct {
	Compounds int       `json:"compounds" yaml:"compounds"`
	Formulas  int       `json:"formulas" yaml:"formulas"`
	Runs      int       `json:"runs" yaml:"runs"`
	LastRun   time.Time `json:"last_run,omitempty" yaml:"last_run,omitempty"`
}

// Stats counts compounds, distinct formulas, and runs.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*), count(DISTINCT formula) FROM compounds`,
	).Scan(&st.Compounds, &st.Formulas); err != nil {
		return Stats{}, fmt.Errorf("counting compounds: %w", err)
	}

	var last sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*), max(started_at) FROM runs`,
	).Scan(&st.Runs, &last); err != nil {
		return Stats{}, fmt.Errorf("counting runs: %w", err)
	}
	if last.Valid {
		st.LastRun, _ = time.Parse(timeLayout, last.String)
	}
	return st, nil
}

func scanCompounds(rows *sql.Rows) ([]types.Compound, error) {
	defer rows.Close()

	var out []types.Compound
	for rows.Next() {
		var (
			c       types.Compound
			updated string
		)
		if err := rows.Scan(&c.CID, &c.Formula, &c.RunID, &updated); err != nil {
			return nil, fmt.Errorf("scanning compound: %w", err)
		}
		c.UpdatedAt, _ = time.Parse(timeLayout, updated)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading compounds: %w", err)
	}
	return out, nil
}

// IsNotFound reports whether err means a missing compound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
