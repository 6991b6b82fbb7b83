package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/neuronotes/neurosync/internal/model"
)

// push uploads local state to the remote store: set-difference
// deletions first, then last-write-wins upserts, workspace by
// workspace. The first failed remote call aborts the pass; writes
// already applied stay applied.
//
// push is private: it silently overwrites newer remote data when called
// without a preceding pull, so the only ways in are FullSync (which
// pulls first) and PushFirst (which accepts that risk deliberately).
func (e *Engine) push(ctx context.Context) error {
	userID, err := e.requireUser()
	if err != nil {
		return err
	}

	localWorkspaces, err := e.local.ListWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list local workspaces: %w", err)
	}
	remoteWorkspaces, err := e.remote.ListWorkspaces(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list remote workspaces: %w", err)
	}

	localIDs := make(map[string]bool, len(localWorkspaces))
	for _, w := range localWorkspaces {
		localIDs[w.ID] = true
	}
	for _, w := range remoteWorkspaces {
		if !localIDs[w.ID] {
			if err := e.remote.DeleteWorkspace(ctx, userID, w.ID); err != nil {
				return fmt.Errorf("failed to delete remote workspace %s: %w", w.ID, err)
			}
		}
	}

	remoteByID := make(map[string]model.Workspace, len(remoteWorkspaces))
	for _, w := range remoteWorkspaces {
		remoteByID[w.ID] = w
	}

	for _, w := range localWorkspaces {
		remote, exists := remoteByID[w.ID]
		if !exists || e.shouldPush(w.UpdatedAt, remote.UpdatedAt) {
			if err := e.remote.UpsertWorkspace(ctx, userID, w); err != nil {
				return fmt.Errorf("failed to push workspace %s: %w", w.ID, err)
			}
		}

		if err := e.pushFolders(ctx, userID, w.ID); err != nil {
			return err
		}
		if err := e.pushNotes(ctx, userID, w.ID); err != nil {
			return err
		}
		if err := e.pushCalendarEvents(ctx, userID, w.ID); err != nil {
			return err
		}
		if err := e.pushKanban(ctx, userID, w.ID); err != nil {
			return err
		}
	}

	return e.pushSettings(ctx, userID)
}

// shouldPush decides whether a local entity overwrites its remote
// counterpart. A strictly newer remote timestamp normally wins, except
// inside the grace window after the local write: a user who just typed
// must not lose those keystrokes to a narrowly-newer remote value.
func (e *Engine) shouldPush(localUpdatedAt, remoteUpdatedAt int64) bool {
	if remoteUpdatedAt <= localUpdatedAt {
		return true
	}
	age := e.now().UnixMilli() - localUpdatedAt
	return age >= 0 && age <= e.grace.Milliseconds()
}

func (e *Engine) pushFolders(ctx context.Context, userID, workspaceID string) error {
	local, err := e.local.ListFolders(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list local folders: %w", err)
	}
	remote, err := e.remote.ListFolders(ctx, userID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list remote folders: %w", err)
	}

	localIDs := make(map[string]bool, len(local))
	for _, f := range local {
		localIDs[f.ID] = true
	}
	for _, f := range remote {
		if !localIDs[f.ID] {
			if err := e.remote.DeleteFolder(ctx, userID, f.ID); err != nil {
				return fmt.Errorf("failed to delete remote folder %s: %w", f.ID, err)
			}
		}
	}

	remoteByID := make(map[string]model.Folder, len(remote))
	for _, f := range remote {
		remoteByID[f.ID] = f
	}
	for _, f := range local {
		if r, exists := remoteByID[f.ID]; exists && !e.shouldPush(f.UpdatedAt, r.UpdatedAt) {
			continue
		}
		if err := e.remote.UpsertFolder(ctx, userID, f); err != nil {
			return fmt.Errorf("failed to push folder %s: %w", f.ID, err)
		}
	}
	return nil
}

func (e *Engine) pushNotes(ctx context.Context, userID, workspaceID string) error {
	local, err := e.local.ListNotes(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list local notes: %w", err)
	}
	remote, err := e.remote.ListNotes(ctx, userID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list remote notes: %w", err)
	}

	localIDs := make(map[string]bool, len(local))
	for _, n := range local {
		localIDs[n.ID] = true
	}
	for _, n := range remote {
		if !localIDs[n.ID] {
			// DeleteNote also removes the out-of-line content row.
			if err := e.remote.DeleteNote(ctx, userID, n.ID); err != nil {
				return fmt.Errorf("failed to delete remote note %s: %w", n.ID, err)
			}
		}
	}

	remoteByID := make(map[string]model.Note, len(remote))
	for _, n := range remote {
		remoteByID[n.ID] = n
	}
	for _, n := range local {
		if r, exists := remoteByID[n.ID]; exists && !e.shouldPush(n.UpdatedAt, r.UpdatedAt) {
			continue
		}
		if err := e.remote.UpsertNote(ctx, userID, n); err != nil {
			return fmt.Errorf("failed to push note %s: %w", n.ID, err)
		}
		if n.ContentHTML != "" {
			if err := e.remote.UpsertNoteContent(ctx, userID, n.ID, n.ContentHTML); err != nil {
				return fmt.Errorf("failed to push note content %s: %w", n.ID, err)
			}
		}
	}
	return nil
}

func (e *Engine) pushCalendarEvents(ctx context.Context, userID, workspaceID string) error {
	local, err := e.local.ListCalendarEvents(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list local calendar events: %w", err)
	}
	remote, err := e.remote.ListCalendarEvents(ctx, userID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list remote calendar events: %w", err)
	}

	localIDs := make(map[string]bool, len(local))
	for _, ev := range local {
		localIDs[ev.ID] = true
	}
	for _, ev := range remote {
		if !localIDs[ev.ID] {
			if err := e.remote.DeleteCalendarEvent(ctx, userID, ev.ID); err != nil {
				return fmt.Errorf("failed to delete remote calendar event %s: %w", ev.ID, err)
			}
		}
	}

	// No timestamp on calendar events; every local row overwrites.
	for _, ev := range local {
		if err := e.remote.UpsertCalendarEvent(ctx, userID, ev); err != nil {
			return fmt.Errorf("failed to push calendar event %s: %w", ev.ID, err)
		}
	}
	return nil
}

func (e *Engine) pushKanban(ctx context.Context, userID, workspaceID string) error {
	board, err := e.local.GetKanban(ctx, workspaceID)
	if errors.Is(err, model.ErrNotFound) {
		if err := e.remote.DeleteKanban(ctx, userID, workspaceID); err != nil {
			return fmt.Errorf("failed to delete remote kanban for %s: %w", workspaceID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get local kanban for %s: %w", workspaceID, err)
	}

	if err := e.remote.UpsertKanban(ctx, userID, *board); err != nil {
		return fmt.Errorf("failed to push kanban for %s: %w", workspaceID, err)
	}
	return nil
}

func (e *Engine) pushSettings(ctx context.Context, userID string) error {
	settings, err := e.local.ListSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to list local settings: %w", err)
	}

	for _, st := range settings {
		// Workspace-scoped keys and the active-workspace preference
		// stay on this device.
		if model.IsDeviceLocalSetting(st.Key) {
			continue
		}
		if err := e.remote.UpsertSetting(ctx, userID, st); err != nil {
			return fmt.Errorf("failed to push setting %s: %w", st.Key, err)
		}
	}
	return nil
}
