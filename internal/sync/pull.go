package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/neuronotes/neurosync/internal/model"
)

// pull downloads remote state into the local store: set-difference
// deletions first, then upserts that defer to a strictly newer local
// write. Unlike push there is no grace window; pull never overwrites a
// newer local value.
func (e *Engine) pull(ctx context.Context) error {
	userID, err := e.requireUser()
	if err != nil {
		return err
	}

	remoteWorkspaces, err := e.remote.ListWorkspaces(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list remote workspaces: %w", err)
	}
	localWorkspaces, err := e.local.ListWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list local workspaces: %w", err)
	}

	remoteIDs := make(map[string]bool, len(remoteWorkspaces))
	for _, w := range remoteWorkspaces {
		remoteIDs[w.ID] = true
	}
	for _, w := range localWorkspaces {
		if !remoteIDs[w.ID] {
			if err := e.local.DeleteWorkspace(ctx, w.ID); err != nil {
				return fmt.Errorf("failed to delete local workspace %s: %w", w.ID, err)
			}
		}
	}

	localByID := make(map[string]model.Workspace, len(localWorkspaces))
	for _, w := range localWorkspaces {
		localByID[w.ID] = w
	}

	for _, w := range remoteWorkspaces {
		// Ties keep the local copy; only a strictly newer remote
		// write comes down.
		if local, exists := localByID[w.ID]; !exists || local.UpdatedAt < w.UpdatedAt {
			if err := e.local.UpsertWorkspace(ctx, w); err != nil {
				return fmt.Errorf("failed to pull workspace %s: %w", w.ID, err)
			}
		}

		if err := e.pullFolders(ctx, userID, w.ID); err != nil {
			return err
		}
		if err := e.pullNotes(ctx, userID, w.ID); err != nil {
			return err
		}
		if err := e.pullCalendarEvents(ctx, userID, w.ID); err != nil {
			return err
		}
		if err := e.pullKanban(ctx, userID, w.ID); err != nil {
			return err
		}
	}

	return e.pullSettings(ctx, userID)
}

func (e *Engine) pullFolders(ctx context.Context, userID, workspaceID string) error {
	remote, err := e.remote.ListFolders(ctx, userID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list remote folders: %w", err)
	}
	local, err := e.local.ListFolders(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list local folders: %w", err)
	}

	remoteIDs := make(map[string]bool, len(remote))
	for _, f := range remote {
		remoteIDs[f.ID] = true
	}
	for _, f := range local {
		if !remoteIDs[f.ID] {
			if err := e.local.DeleteFolder(ctx, f.ID); err != nil {
				return fmt.Errorf("failed to delete local folder %s: %w", f.ID, err)
			}
		}
	}

	localByID := make(map[string]model.Folder, len(local))
	for _, f := range local {
		localByID[f.ID] = f
	}
	for _, f := range remote {
		if l, exists := localByID[f.ID]; exists && l.UpdatedAt >= f.UpdatedAt {
			continue
		}
		if err := e.local.UpsertFolder(ctx, f); err != nil {
			return fmt.Errorf("failed to pull folder %s: %w", f.ID, err)
		}
	}
	return nil
}

func (e *Engine) pullNotes(ctx context.Context, userID, workspaceID string) error {
	remote, err := e.remote.ListNotes(ctx, userID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list remote notes: %w", err)
	}
	local, err := e.local.ListNotes(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list local notes: %w", err)
	}

	remoteIDs := make(map[string]bool, len(remote))
	for _, n := range remote {
		remoteIDs[n.ID] = true
	}
	for _, n := range local {
		if !remoteIDs[n.ID] {
			if err := e.local.DeleteNote(ctx, n.ID); err != nil {
				return fmt.Errorf("failed to delete local note %s: %w", n.ID, err)
			}
		}
	}

	localByID := make(map[string]model.Note, len(local))
	for _, n := range local {
		localByID[n.ID] = n
	}
	for _, n := range remote {
		if l, exists := localByID[n.ID]; exists && l.UpdatedAt >= n.UpdatedAt {
			continue
		}
		n.ContentHTML = e.resolveNoteContent(ctx, userID, n)
		if err := e.local.UpsertNote(ctx, n); err != nil {
			return fmt.Errorf("failed to pull note %s: %w", n.ID, err)
		}
	}
	return nil
}

// resolveNoteContent fetches a note's content from the out-of-line
// table, falling back to the inline column. A missing content row is
// not an error, and any other fetch failure degrades the same way
// rather than failing the whole pull.
func (e *Engine) resolveNoteContent(ctx context.Context, userID string, n model.Note) string {
	content, err := e.remote.GetNoteContent(ctx, userID, n.ID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			e.logger.Printf("Warning: failed to fetch content for note %s: %v", n.ID, err)
		}
		return n.ContentHTML
	}
	return content
}

func (e *Engine) pullCalendarEvents(ctx context.Context, userID, workspaceID string) error {
	remote, err := e.remote.ListCalendarEvents(ctx, userID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list remote calendar events: %w", err)
	}
	local, err := e.local.ListCalendarEvents(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list local calendar events: %w", err)
	}

	remoteIDs := make(map[string]bool, len(remote))
	for _, ev := range remote {
		remoteIDs[ev.ID] = true
	}
	for _, ev := range local {
		if !remoteIDs[ev.ID] {
			if err := e.local.DeleteCalendarEvent(ctx, ev.ID); err != nil {
				return fmt.Errorf("failed to delete local calendar event %s: %w", ev.ID, err)
			}
		}
	}

	for _, ev := range remote {
		if err := e.local.UpsertCalendarEvent(ctx, ev); err != nil {
			return fmt.Errorf("failed to pull calendar event %s: %w", ev.ID, err)
		}
	}
	return nil
}

func (e *Engine) pullKanban(ctx context.Context, userID, workspaceID string) error {
	board, err := e.remote.GetKanban(ctx, userID, workspaceID)
	if errors.Is(err, model.ErrNotFound) {
		if err := e.local.DeleteKanban(ctx, workspaceID); err != nil {
			return fmt.Errorf("failed to delete local kanban for %s: %w", workspaceID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get remote kanban for %s: %w", workspaceID, err)
	}

	if err := e.local.UpsertKanban(ctx, *board); err != nil {
		return fmt.Errorf("failed to pull kanban for %s: %w", workspaceID, err)
	}
	return nil
}

func (e *Engine) pullSettings(ctx context.Context, userID string) error {
	settings, err := e.remote.ListSettings(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list remote settings: %w", err)
	}

	for _, st := range settings {
		// Pull must never write the device's own preferences, the
		// active-workspace key above all.
		if model.IsDeviceLocalSetting(st.Key) {
			continue
		}
		if err := e.local.UpsertSetting(ctx, st); err != nil {
			return fmt.Errorf("failed to pull setting %s: %w", st.Key, err)
		}
	}
	return nil
}
