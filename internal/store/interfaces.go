package store

import (
	"context"
	"database/sql"
	"time"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx.
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// RunStore is the append-only persistence surface for run history.
type RunStore interface {
	// RecordRun appends a completed run attempt. The write is synchronous;
	// the caller must not proceed to the next workload until it returns.
	RecordRun(ctx context.Context, tx DBTransaction, rec *RunRecord) error

	// AllRuns returns every recorded run in insertion order, including runs
	// for workloads no longer present in the roster.
	AllRuns(ctx context.Context) ([]RunRecord, error)

	// RunsForWorkload returns all runs for a workload in insertion order.
	RunsForWorkload(ctx context.Context, workload string) ([]RunRecord, error)

	// RunsForCycle returns all runs recorded during one cycle in insertion order.
	RunsForCycle(ctx context.Context, cycle int) ([]RunRecord, error)

	// WorkloadStats aggregates run counts and successes per workload.
	WorkloadStats(ctx context.Context) ([]WorkloadStat, error)
}

// SnapshotStore persists capacity readings for offline inspection.
type SnapshotStore interface {
	RecordSnapshot(ctx context.Context, row *SnapshotRow) error
}

// IntentStore tracks the load/unload window so a crash between the two
// leaves a durable trace that can be replayed by a recovery command.
type IntentStore interface {
	// OpenIntent records that a load is about to be issued and returns the row id.
	OpenIntent(ctx context.Context, workload string, issuedAt time.Time) (int64, error)

	// MarkReleased records that the unload attempt for the intent succeeded.
	MarkReleased(ctx context.Context, id int64, at time.Time) error

	// OpenIntents returns intents whose unload was never confirmed, oldest first.
	OpenIntents(ctx context.Context) ([]LoadIntent, error)
}
