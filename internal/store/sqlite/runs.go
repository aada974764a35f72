package sqlite

import (
	"context"
	"fmt"
	"time"

	"modelplane/internal/store"
)

// RecordRun appends one run attempt to the history. Rows are never updated;
// the UNIQUE(cycle, workload) index turns accidental re-writes into errors
// instead of silent mutation.
func (s *Store) RecordRun(ctx context.Context, tx store.DBTransaction, rec *store.RunRecord) error {
	executor := s.getExecutor(tx)

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO runs (cycle, workload, declared_footprint, measured_footprint,
			duration_seconds, tokens, throughput, success, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := executor.ExecContext(ctx, query,
		rec.Cycle, rec.Workload, rec.DeclaredFootprint, rec.MeasuredFootprint,
		rec.Duration.Seconds(), rec.Tokens, rec.Throughput,
		rec.Success, string(rec.Reason), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run for %s (cycle %d): %w", rec.Workload, rec.Cycle, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		rec.ID = id
	}

	return nil
}

// AllRuns returns every recorded run in insertion order. The history is not
// filtered through the roster, so runs of since-removed workloads survive.
func (s *Store) AllRuns(ctx context.Context) ([]store.RunRecord, error) {
	query := `
		SELECT id, cycle, workload, declared_footprint, measured_footprint,
			duration_seconds, tokens, throughput, success, reason, created_at
		FROM runs
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

// RunsForWorkload returns all runs for a workload in insertion order.
func (s *Store) RunsForWorkload(ctx context.Context, workload string) ([]store.RunRecord, error) {
	query := `
		SELECT id, cycle, workload, declared_footprint, measured_footprint,
			duration_seconds, tokens, throughput, success, reason, created_at
		FROM runs
		WHERE workload = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, workload)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

// RunsForCycle returns all runs recorded during one cycle in insertion order.
func (s *Store) RunsForCycle(ctx context.Context, cycle int) ([]store.RunRecord, error) {
	query := `
		SELECT id, cycle, workload, declared_footprint, measured_footprint,
			duration_seconds, tokens, throughput, success, reason, created_at
		FROM runs
		WHERE cycle = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, cycle)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

// WorkloadStats aggregates run counts and successes per workload.
func (s *Store) WorkloadStats(ctx context.Context) ([]store.WorkloadStat, error) {
	query := `
		SELECT workload, COUNT(*), SUM(CASE WHEN success THEN 1 ELSE 0 END)
		FROM runs
		GROUP BY workload
		ORDER BY workload ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []store.WorkloadStat
	for rows.Next() {
		var st store.WorkloadStat
		if err := rows.Scan(&st.Workload, &st.Runs, &st.Successes); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}

	return stats, rows.Err()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanRuns(rows rowScanner) ([]store.RunRecord, error) {
	var records []store.RunRecord
	for rows.Next() {
		var rec store.RunRecord
		var seconds float64
		var reason string
		if err := rows.Scan(
			&rec.ID, &rec.Cycle, &rec.Workload, &rec.DeclaredFootprint, &rec.MeasuredFootprint,
			&seconds, &rec.Tokens, &rec.Throughput, &rec.Success, &reason, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(seconds * float64(time.Second))
		rec.Reason = store.RunReason(reason)
		records = append(records, rec)
	}

	return records, rows.Err()
}
