package sqlite

import (
	"context"
	"fmt"
	"time"

	"modelplane/internal/store"
)

// OpenIntent records that a load is about to be issued. It must be durable
// before the load request goes out, so a crash inside the load/unload window
// leaves a row behind for the recovery command.
func (s *Store) OpenIntent(ctx context.Context, workload string, issuedAt time.Time) (int64, error) {
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}

	query := `INSERT INTO load_intents (workload, issued_at) VALUES (?, ?)`

	result, err := s.db.ExecContext(ctx, query, workload, issuedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to open load intent for %s: %w", workload, err)
	}

	return result.LastInsertId()
}

// MarkReleased records that the unload attempt for the intent succeeded.
func (s *Store) MarkReleased(ctx context.Context, id int64, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	query := `UPDATE load_intents SET released_at = ? WHERE id = ?`

	if _, err := s.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to mark intent %d released: %w", id, err)
	}

	return nil
}

// OpenIntents returns intents whose unload was never confirmed, oldest first.
func (s *Store) OpenIntents(ctx context.Context) ([]store.LoadIntent, error) {
	query := `
		SELECT id, workload, issued_at, released_at
		FROM load_intents
		WHERE released_at IS NULL
		ORDER BY issued_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []store.LoadIntent
	for rows.Next() {
		var intent store.LoadIntent
		if err := rows.Scan(&intent.ID, &intent.Workload, &intent.IssuedAt, &intent.ReleasedAt); err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}

	return intents, rows.Err()
}
