package sync

import (
	"context"
	"fmt"
)

// NeedsMigration reports whether the remote store has no data for the
// current user, i.e. this is the first device to sign in and local
// state should be uploaded wholesale.
func (e *Engine) NeedsMigration(ctx context.Context) (bool, error) {
	userID, err := e.requireUser()
	if err != nil {
		return false, err
	}
	workspaces, err := e.remote.ListWorkspaces(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check remote state: %w", err)
	}
	return len(workspaces) == 0, nil
}

// MigrateIfNeeded bootstraps a fresh account. When the remote store is
// empty the device's data is pushed up as-is; when the remote already
// has data a full sync reconciles the two instead, so a second device
// signing in adopts the account state rather than clobbering it.
func (e *Engine) MigrateIfNeeded(ctx context.Context) error {
	empty, err := e.NeedsMigration(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return e.FullSync(ctx)
	}

	e.logger.Printf("Remote store is empty, uploading local data")
	e.mu.Lock()
	defer e.mu.Unlock()

	e.beginPass()
	err = e.push(ctx)
	e.endPass(err)
	if err != nil {
		e.logger.Printf("Migration push failed: %v", err)
		return err
	}
	return nil
}
