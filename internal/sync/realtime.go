package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/neuronotes/neurosync/internal/model"
)

// SetupRealtime subscribes to the remote change feed and merges each
// event into the local store as it arrives. onDataChange, if non-nil,
// is called after every applied mutation so the caller can refresh its
// view. The returned function tears the subscription down and is
// idempotent; CleanupRealtime does the same from the engine side.
//
// A second call replaces the previous subscription.
func (e *Engine) SetupRealtime(ctx context.Context, onDataChange func()) (func(), error) {
	userID, err := e.requireUser()
	if err != nil {
		return nil, err
	}

	unsub, err := e.remote.Subscribe(ctx, userID, func(ev ChangeEvent) {
		if ev.UserID != "" && ev.UserID != userID {
			return
		}
		if err := e.applyChange(ctx, userID, ev); err != nil {
			e.logger.Printf("Failed to apply realtime %s on %s/%s: %v", ev.Op, ev.Table, ev.RowID, err)
			return
		}
		if onDataChange != nil {
			onDataChange()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to change feed: %w", err)
	}

	e.rtMu.Lock()
	prev := e.rtUnsub
	e.rtUnsub = unsub
	e.rtMu.Unlock()
	if prev != nil {
		prev()
	}

	return func() { e.teardownRealtime(unsub) }, nil
}

// CleanupRealtime tears down the active feed subscription, if any. Safe
// to call repeatedly and with no subscription active.
func (e *Engine) CleanupRealtime() {
	e.rtMu.Lock()
	unsub := e.rtUnsub
	e.rtUnsub = nil
	e.rtMu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (e *Engine) teardownRealtime(unsub func()) {
	e.rtMu.Lock()
	e.rtUnsub = nil
	e.rtMu.Unlock()
	unsub()
}

// applyChange merges one feed event. Events carry only row identity, so
// inserts and updates re-fetch the row before writing it locally; a row
// already deleted remotely by the time we fetch it is treated as a
// delete. Timestamped entities keep the pull rule: a strictly newer
// local copy wins.
func (e *Engine) applyChange(ctx context.Context, userID string, ev ChangeEvent) error {
	switch ev.Table {
	case TableWorkspaces:
		return e.applyWorkspaceChange(ctx, userID, ev)
	case TableFolders:
		return e.applyFolderChange(ctx, userID, ev)
	case TableNotes, TableNoteContents:
		return e.applyNoteChange(ctx, userID, ev)
	case TableCalendarEvents:
		return e.applyCalendarEventChange(ctx, userID, ev)
	case TableKanban:
		return e.applyKanbanChange(ctx, userID, ev)
	case TableSettings:
		return e.applySettingChange(ctx, userID, ev)
	default:
		e.logger.Printf("Ignoring change event for unknown table %q", ev.Table)
		return nil
	}
}

func (e *Engine) applyWorkspaceChange(ctx context.Context, userID string, ev ChangeEvent) error {
	if ev.Op == OpDelete {
		return e.local.DeleteWorkspace(ctx, ev.RowID)
	}
	w, err := e.remote.GetWorkspace(ctx, userID, ev.RowID)
	if errors.Is(err, model.ErrNotFound) {
		return e.local.DeleteWorkspace(ctx, ev.RowID)
	}
	if err != nil {
		return err
	}
	if updatedAt, ok, err := e.localWorkspaceUpdatedAt(ctx, ev.RowID); err != nil {
		return err
	} else if ok && updatedAt >= w.UpdatedAt {
		return nil
	}
	return e.local.UpsertWorkspace(ctx, *w)
}

func (e *Engine) applyFolderChange(ctx context.Context, userID string, ev ChangeEvent) error {
	if ev.Op == OpDelete {
		return e.local.DeleteFolder(ctx, ev.RowID)
	}
	f, err := e.remote.GetFolder(ctx, userID, ev.RowID)
	if errors.Is(err, model.ErrNotFound) {
		return e.local.DeleteFolder(ctx, ev.RowID)
	}
	if err != nil {
		return err
	}
	if updatedAt, ok, err := e.localFolderUpdatedAt(ctx, f.WorkspaceID, ev.RowID); err != nil {
		return err
	} else if ok && updatedAt >= f.UpdatedAt {
		return nil
	}
	return e.local.UpsertFolder(ctx, *f)
}

func (e *Engine) applyNoteChange(ctx context.Context, userID string, ev ChangeEvent) error {
	// RowID is the note ID for both the notes table and its
	// out-of-line content table; a content change is merged by
	// re-applying the parent note.
	if ev.Table == TableNotes && ev.Op == OpDelete {
		return e.local.DeleteNote(ctx, ev.RowID)
	}
	n, err := e.remote.GetNote(ctx, userID, ev.RowID)
	if errors.Is(err, model.ErrNotFound) {
		if ev.Table == TableNoteContents {
			return nil
		}
		return e.local.DeleteNote(ctx, ev.RowID)
	}
	if err != nil {
		return err
	}
	if local, err := e.local.GetNote(ctx, ev.RowID); err == nil {
		if local.UpdatedAt >= n.UpdatedAt {
			return nil
		}
	} else if !errors.Is(err, model.ErrNotFound) {
		return err
	}
	n.ContentHTML = e.resolveNoteContent(ctx, userID, *n)
	return e.local.UpsertNote(ctx, *n)
}

func (e *Engine) applyCalendarEventChange(ctx context.Context, userID string, ev ChangeEvent) error {
	if ev.Op == OpDelete {
		return e.local.DeleteCalendarEvent(ctx, ev.RowID)
	}
	event, err := e.remote.GetCalendarEvent(ctx, userID, ev.RowID)
	if errors.Is(err, model.ErrNotFound) {
		return e.local.DeleteCalendarEvent(ctx, ev.RowID)
	}
	if err != nil {
		return err
	}
	return e.local.UpsertCalendarEvent(ctx, *event)
}

func (e *Engine) applyKanbanChange(ctx context.Context, userID string, ev ChangeEvent) error {
	if ev.Op == OpDelete {
		return e.local.DeleteKanban(ctx, ev.RowID)
	}
	board, err := e.remote.GetKanban(ctx, userID, ev.RowID)
	if errors.Is(err, model.ErrNotFound) {
		return e.local.DeleteKanban(ctx, ev.RowID)
	}
	if err != nil {
		return err
	}
	return e.local.UpsertKanban(ctx, *board)
}

func (e *Engine) applySettingChange(ctx context.Context, userID string, ev ChangeEvent) error {
	if model.IsDeviceLocalSetting(ev.RowID) {
		return nil
	}
	if ev.Op == OpDelete {
		// Settings are never removed locally; the row simply keeps
		// its last synced value.
		return nil
	}
	st, err := e.remote.GetSetting(ctx, userID, ev.RowID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return e.local.UpsertSetting(ctx, *st)
}

func (e *Engine) localWorkspaceUpdatedAt(ctx context.Context, id string) (int64, bool, error) {
	workspaces, err := e.local.ListWorkspaces(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, w := range workspaces {
		if w.ID == id {
			return w.UpdatedAt, true, nil
		}
	}
	return 0, false, nil
}

func (e *Engine) localFolderUpdatedAt(ctx context.Context, workspaceID, id string) (int64, bool, error) {
	folders, err := e.local.ListFolders(ctx, workspaceID)
	if err != nil {
		return 0, false, err
	}
	for _, f := range folders {
		if f.ID == id {
			return f.UpdatedAt, true, nil
		}
	}
	return 0, false, nil
}
