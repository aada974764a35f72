package sqlite

import (
	"context"
	"fmt"
	"time"

	"modelplane/internal/store"
)

// RecordSnapshot appends one capacity reading to the audit table.
func (s *Store) RecordSnapshot(ctx context.Context, row *store.SnapshotRow) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO snapshots (total, used, percent, created_at) VALUES (?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query, row.Total, row.Used, row.Percent, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		row.ID = id
	}

	return nil
}
