package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"modelplane/internal/store/sqlite"
)

// statePath is the per-session database location under the state directory.
func statePath(stateDir, sessionID string) string {
	return filepath.Join(stateDir, fmt.Sprintf("session-%s.db", sessionID))
}

// openSessionStore opens the store for an existing or new session.
func openSessionStore(ctx context.Context, stateDir, sessionID string) (*sqlite.Store, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required. Set it using the --session flag or the MODELPLANE_SESSION environment variable")
	}
	return sqlite.Open(ctx, statePath(stateDir, sessionID))
}
