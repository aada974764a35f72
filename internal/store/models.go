// Package store contains the database layer for modelplane.
package store

import "time"

// RunRecord is one row of the append-only execution history.
// A record is written once per (cycle, workload) attempt and never mutated.
type RunRecord struct {
	ID                int64
	Cycle             int
	Workload          string
	DeclaredFootprint int64 // estimated megabytes declared in the roster
	MeasuredFootprint int64 // megabytes reported by the host while loaded, 0 if unknown
	Duration          time.Duration
	Tokens            int
	Throughput        float64 // tokens per second, 0 when no tokens were produced
	Success           bool
	Reason            RunReason
	CreatedAt         time.Time
}

// RunReason classifies the outcome of a run attempt.
type RunReason string

const (
	ReasonOK                  RunReason = "OK"
	ReasonRejected            RunReason = "REJECTED"
	ReasonLoadFailed          RunReason = "LOAD_FAILED"
	ReasonExecFailed          RunReason = "EXEC_FAILED"
	ReasonTimeout             RunReason = "TIMEOUT"
	ReasonSnapshotUnavailable RunReason = "SNAPSHOT_UNAVAILABLE"
)

// SnapshotRow is a periodic capacity reading kept for observability.
// Not required for correctness; admission always works from a fresh reading.
type SnapshotRow struct {
	ID        int64
	Total     int64 // megabytes
	Used      int64
	Percent   float64
	CreatedAt time.Time
}

// LoadIntent records that a load was issued to the execution host and
// whether the matching unload attempt has happened yet. Rows with a nil
// ReleasedAt after a crash identify workloads possibly still resident
// on the host.
type LoadIntent struct {
	ID         int64
	Workload   string
	IssuedAt   time.Time
	ReleasedAt *time.Time
}

// WorkloadStat aggregates run history for one workload.
type WorkloadStat struct {
	Workload  string
	Runs      int
	Successes int
}
