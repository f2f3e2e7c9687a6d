package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/datallboy/dltool/internal/domain"
	"github.com/datallboy/dltool/internal/report"
)

var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, label, started_at, finished_at, wanted, matched, missing,
	completed, skipped, failed, cancelled, bytes, interrupted`

// SaveRun stores a finished run with its outcomes and missing names.
func (s *Store) SaveRun(ctx context.Context, sum *report.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var dbo runDBO
	dbo.FromSummary(sum)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		dbo.ID, dbo.Label, dbo.StartedAt, dbo.FinishedAt, dbo.Wanted, dbo.Matched, dbo.Missing,
		dbo.Completed, dbo.Skipped, dbo.Failed, dbo.Cancelled, dbo.Bytes, dbo.Interrupted,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", dbo.ID, err)
	}

	for _, o := range sum.Outcomes {
		rec := fromOutcome(o)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO outcomes (run_id, idx, name, file_name, status, attempts, bytes, last_error)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			dbo.ID, rec.Index, rec.Name, rec.FileName, string(rec.Status), rec.Attempts, rec.Bytes, rec.Error,
		)
		if err != nil {
			return fmt.Errorf("failed to insert outcome %s: %w", rec.FileName, err)
		}
	}

	for i, name := range sum.Missing {
		_, err = tx.ExecContext(ctx, `INSERT INTO missing (run_id, pos, name) VALUES ($1, $2, $3)`, dbo.ID, i, name)
		if err != nil {
			return fmt.Errorf("failed to insert missing name %s: %w", name, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var dbo runDBO
		if err := rows.Scan(dbo.scanArgs()...); err != nil {
			return nil, err
		}
		runs = append(runs, dbo.ToRun())
	}
	return runs, rows.Err()
}

func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var dbo runDBO
	err := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id).Scan(dbo.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	run := dbo.ToRun()
	return &run, nil
}

// Outcomes returns the item outcomes of a run in manifest order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, name, file_name, status, attempts, bytes, last_error
		FROM outcomes WHERE run_id = $1 ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		var status string
		if err := rows.Scan(&o.Index, &o.Name, &o.FileName, &status, &o.Attempts, &o.Bytes, &o.Error); err != nil {
			return nil, err
		}
		o.Status = domain.Status(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Missing returns the names a run could not find on the server.
func (s *Store) Missing(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM missing WHERE run_id = $1 ORDER BY pos`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
