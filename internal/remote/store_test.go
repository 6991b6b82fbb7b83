package remote

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/neuronotes/neurosync/internal/model"
	syncpkg "github.com/neuronotes/neurosync/internal/sync"
)

// setupTestStore backs the remote schema with a plain SQLite file. The
// schema, triggers and change feed behave the same either way; only the
// driver name in Open differs in production.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "remote.db")
	conn, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	store := New(conn, "user1")
	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return store
}

func TestWorkspaceScoping(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.UpsertWorkspace(ctx, "user1", model.Workspace{ID: "ws1", Name: "Mine", UpdatedAt: 1000}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertWorkspace(ctx, "user2", model.Workspace{ID: "ws2", Name: "Theirs", UpdatedAt: 1000}); err != nil {
		t.Fatal(err)
	}

	mine, err := store.ListWorkspaces(ctx, "user1")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].ID != "ws1" {
		t.Errorf("expected only user1's workspace, got %+v", mine)
	}

	if _, err := store.GetWorkspace(ctx, "user1", "ws2"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user's workspace, got %v", err)
	}
}

func TestDeleteWorkspaceCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.UpsertWorkspace(ctx, "user1", model.Workspace{ID: "ws1", Name: "Personal", UpdatedAt: 1000}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertFolder(ctx, "user1", model.Folder{ID: "f1", Name: "Docs", WorkspaceID: "ws1", UpdatedAt: 1000}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertNote(ctx, "user1", model.Note{ID: "n1", Title: "Hello", WorkspaceID: "ws1", UpdatedAt: 1000}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertNoteContent(ctx, "user1", "n1", "<p>body</p>"); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertCalendarEvent(ctx, "user1", model.CalendarEvent{ID: "e1", Date: "2026-08-29", Title: "Standup", WorkspaceID: "ws1"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertKanban(ctx, "user1", model.Kanban{WorkspaceID: "ws1", Columns: []model.KanbanColumn{{ID: "c1", Title: "Todo"}}}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteWorkspace(ctx, "user1", "ws1"); err != nil {
		t.Fatal(err)
	}

	if folders, _ := store.ListFolders(ctx, "user1", "ws1"); len(folders) != 0 {
		t.Errorf("folders survived the cascade: %+v", folders)
	}
	if notes, _ := store.ListNotes(ctx, "user1", "ws1"); len(notes) != 0 {
		t.Errorf("notes survived the cascade: %+v", notes)
	}
	if _, err := store.GetNoteContent(ctx, "user1", "n1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("note content survived the cascade: %v", err)
	}
	if events, _ := store.ListCalendarEvents(ctx, "user1", "ws1"); len(events) != 0 {
		t.Errorf("calendar events survived the cascade: %+v", events)
	}
	if _, err := store.GetKanban(ctx, "user1", "ws1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("kanban survived the cascade: %v", err)
	}
}

func TestNoteContentOutOfLine(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.UpsertWorkspace(ctx, "user1", model.Workspace{ID: "ws1", Name: "Personal", UpdatedAt: 1000}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertNote(ctx, "user1", model.Note{ID: "n1", Title: "Hello", ContentHTML: "<p>inline</p>", WorkspaceID: "ws1", UpdatedAt: 1000}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertNoteContent(ctx, "user1", "n1", "<p>full body</p>"); err != nil {
		t.Fatal(err)
	}

	content, err := store.GetNoteContent(ctx, "user1", "n1")
	if err != nil {
		t.Fatal(err)
	}
	if content != "<p>full body</p>" {
		t.Errorf("got %q", content)
	}

	// Replacing is an upsert, not an insert.
	if err := store.UpsertNoteContent(ctx, "user1", "n1", "<p>v2</p>"); err != nil {
		t.Fatal(err)
	}
	content, err = store.GetNoteContent(ctx, "user1", "n1")
	if err != nil {
		t.Fatal(err)
	}
	if content != "<p>v2</p>" {
		t.Errorf("got %q", content)
	}

	if err := store.DeleteNote(ctx, "user1", "n1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetNoteContent(ctx, "user1", "n1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("content row survived note deletion: %v", err)
	}
}

func TestCalendarEventRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.UpsertWorkspace(ctx, "user1", model.Workspace{ID: "ws1", Name: "Personal", UpdatedAt: 1000}); err != nil {
		t.Fatal(err)
	}
	ev := model.CalendarEvent{
		ID:          "e1",
		Date:        "2026-08-29",
		Title:       "Weekly review",
		Time:        "09:00",
		WorkspaceID: "ws1",
		Repeat:      "weekly",
		RepeatOn:    []int{1, 3, 5},
		RepeatEnd:   "2026-12-31",
		Exceptions:  []string{"2026-09-05"},
		Color:       "#ff8800",
	}
	if err := store.UpsertCalendarEvent(ctx, "user1", ev); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetCalendarEvent(ctx, "user1", "e1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Repeat != "weekly" || len(got.RepeatOn) != 3 || got.RepeatOn[1] != 3 {
		t.Errorf("repeat fields lost: %+v", got)
	}
	if len(got.Exceptions) != 1 || got.Exceptions[0] != "2026-09-05" {
		t.Errorf("exceptions lost: %+v", got)
	}
	if got.Color != "#ff8800" {
		t.Errorf("color lost: %q", got.Color)
	}
}

func TestSettingsCompositeKey(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.UpsertSetting(ctx, "user1", model.Setting{Key: "theme", Value: "dark"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertSetting(ctx, "user2", model.Setting{Key: "theme", Value: "light"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertSetting(ctx, "user1", model.Setting{Key: "theme", Value: "solarized"}); err != nil {
		t.Fatal(err)
	}

	st, err := store.GetSetting(ctx, "user1", "theme")
	if err != nil {
		t.Fatal(err)
	}
	if st.Value != "solarized" {
		t.Errorf("got %q", st.Value)
	}
	st, err = store.GetSetting(ctx, "user2", "theme")
	if err != nil {
		t.Fatal(err)
	}
	if st.Value != "light" {
		t.Errorf("user2's setting clobbered: %q", st.Value)
	}
}

func TestChangeFeedDeliversNewChanges(t *testing.T) {
	store := setupTestStore(t)
	store.FeedPollInterval = 10 * time.Millisecond
	ctx := context.Background()

	// Writes before the subscription must not be replayed.
	if err := store.UpsertWorkspace(ctx, "user1", model.Workspace{ID: "ws0", Name: "Old", UpdatedAt: 1000}); err != nil {
		t.Fatal(err)
	}

	events := make(chan syncpkg.ChangeEvent, 16)
	unsub, err := store.Subscribe(ctx, "user1", func(ev syncpkg.ChangeEvent) {
		events <- ev
	})
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()

	if err := store.UpsertWorkspace(ctx, "user1", model.Workspace{ID: "ws1", Name: "New", UpdatedAt: 2000}); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteWorkspace(ctx, "user1", "ws1"); err != nil {
		t.Fatal(err)
	}

	var got []syncpkg.ChangeEvent
	deadline := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for feed events, have %+v", got)
		}
	}

	if got[0].Table != syncpkg.TableWorkspaces || got[0].Op != syncpkg.OpInsert || got[0].RowID != "ws1" {
		t.Errorf("unexpected first event: %+v", got[0])
	}
	if got[1].Op != syncpkg.OpDelete || got[1].RowID != "ws1" {
		t.Errorf("unexpected second event: %+v", got[1])
	}
	for _, ev := range got {
		if ev.RowID == "ws0" {
			t.Errorf("pre-subscription change replayed: %+v", ev)
		}
	}

	// Unsubscribe is idempotent and stops delivery.
	unsub()
	unsub()
	if err := store.UpsertWorkspace(ctx, "user1", model.Workspace{ID: "ws2", Name: "After", UpdatedAt: 3000}); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-events:
		t.Errorf("event delivered after unsubscribe: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChangeFeedScopedToUser(t *testing.T) {
	store := setupTestStore(t)
	store.FeedPollInterval = 10 * time.Millisecond
	ctx := context.Background()

	events := make(chan syncpkg.ChangeEvent, 16)
	unsub, err := store.Subscribe(ctx, "user1", func(ev syncpkg.ChangeEvent) {
		events <- ev
	})
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()

	if err := store.UpsertWorkspace(ctx, "user2", model.Workspace{ID: "wsOther", Name: "Theirs", UpdatedAt: 1000}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertWorkspace(ctx, "user1", model.Workspace{ID: "wsMine", Name: "Mine", UpdatedAt: 1000}); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		if ev.RowID != "wsMine" {
			t.Errorf("received another user's change: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the user's own change")
	}
}
