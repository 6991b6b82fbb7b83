package sync

import (
	"context"

	"github.com/neuronotes/neurosync/internal/model"
)

// LocalStore is the device-side persistence contract the engine
// reconciles from and into. It is the single writer target for all
// user-initiated mutations; the engine only writes to it on the pull
// and realtime paths.
//
// Get lookups return an error satisfying errors.Is(err,
// model.ErrNotFound) when the entity does not exist.
type LocalStore interface {
	ListWorkspaces(ctx context.Context) ([]model.Workspace, error)
	UpsertWorkspace(ctx context.Context, w model.Workspace) error
	DeleteWorkspace(ctx context.Context, id string) error

	ListFolders(ctx context.Context, workspaceID string) ([]model.Folder, error)
	UpsertFolder(ctx context.Context, f model.Folder) error
	DeleteFolder(ctx context.Context, id string) error

	ListNotes(ctx context.Context, workspaceID string) ([]model.Note, error)
	GetNote(ctx context.Context, id string) (*model.Note, error)
	GetNoteContent(ctx context.Context, noteID string) (string, error)
	UpsertNote(ctx context.Context, n model.Note) error
	DeleteNote(ctx context.Context, id string) error

	ListCalendarEvents(ctx context.Context, workspaceID string) ([]model.CalendarEvent, error)
	UpsertCalendarEvent(ctx context.Context, e model.CalendarEvent) error
	DeleteCalendarEvent(ctx context.Context, id string) error

	GetKanban(ctx context.Context, workspaceID string) (*model.Kanban, error)
	UpsertKanban(ctx context.Context, k model.Kanban) error
	DeleteKanban(ctx context.Context, workspaceID string) error

	GetSetting(ctx context.Context, key string) (string, error)
	ListSettings(ctx context.Context) ([]model.Setting, error)
	UpsertSetting(ctx context.Context, st model.Setting) error
}

// RemoteStore is the shared backend contract. Every operation is scoped
// by the owning user and, where applicable, by workspace. The engine is
// its only writer (push path) and its only reader (pull and subscribe
// paths).
type RemoteStore interface {
	// CurrentUserID returns the authenticated user, or "" when the
	// session is not authenticated.
	CurrentUserID() string

	ListWorkspaces(ctx context.Context, userID string) ([]model.Workspace, error)
	GetWorkspace(ctx context.Context, userID, id string) (*model.Workspace, error)
	UpsertWorkspace(ctx context.Context, userID string, w model.Workspace) error
	DeleteWorkspace(ctx context.Context, userID, id string) error

	ListFolders(ctx context.Context, userID, workspaceID string) ([]model.Folder, error)
	GetFolder(ctx context.Context, userID, id string) (*model.Folder, error)
	UpsertFolder(ctx context.Context, userID string, f model.Folder) error
	DeleteFolder(ctx context.Context, userID, id string) error

	ListNotes(ctx context.Context, userID, workspaceID string) ([]model.Note, error)
	GetNote(ctx context.Context, userID, id string) (*model.Note, error)
	GetNoteContent(ctx context.Context, userID, noteID string) (string, error)
	UpsertNote(ctx context.Context, userID string, n model.Note) error
	UpsertNoteContent(ctx context.Context, userID, noteID, contentHTML string) error
	DeleteNote(ctx context.Context, userID, id string) error

	ListCalendarEvents(ctx context.Context, userID, workspaceID string) ([]model.CalendarEvent, error)
	GetCalendarEvent(ctx context.Context, userID, id string) (*model.CalendarEvent, error)
	UpsertCalendarEvent(ctx context.Context, userID string, e model.CalendarEvent) error
	DeleteCalendarEvent(ctx context.Context, userID, id string) error

	GetKanban(ctx context.Context, userID, workspaceID string) (*model.Kanban, error)
	UpsertKanban(ctx context.Context, userID string, k model.Kanban) error
	DeleteKanban(ctx context.Context, userID, workspaceID string) error

	ListSettings(ctx context.Context, userID string) ([]model.Setting, error)
	GetSetting(ctx context.Context, userID, key string) (*model.Setting, error)
	UpsertSetting(ctx context.Context, userID string, st model.Setting) error

	// Subscribe starts the row-level change feed for the user and
	// returns an idempotent unsubscribe function. Only changes made
	// after the call are delivered.
	Subscribe(ctx context.Context, userID string, onEvent func(ChangeEvent)) (func(), error)
}

// ChangeOp is the kind of row mutation a feed event describes.
type ChangeOp string

const (
	// OpInsert is a new row.
	OpInsert ChangeOp = "insert"
	// OpUpdate is a modified row.
	OpUpdate ChangeOp = "update"
	// OpDelete is a removed row.
	OpDelete ChangeOp = "delete"
)

// Feed table names, one per entity collection.
const (
	TableWorkspaces     = "workspaces"
	TableFolders        = "folders"
	TableNotes          = "notes"
	TableNoteContents   = "note_contents"
	TableCalendarEvents = "calendar_events"
	TableKanban         = "kanban"
	TableSettings       = "settings"
)

// ChangeEvent is one row-level mutation from the remote change feed.
// RowID is the primary key of the affected row: the entity ID for most
// tables, the workspace ID for kanban, the note ID for note_contents,
// and the settings key for settings.
type ChangeEvent struct {
	Table  string
	Op     ChangeOp
	RowID  string
	UserID string
}
