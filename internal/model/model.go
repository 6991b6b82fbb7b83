// Package model defines the entity types shared by the local store, the
// remote store, and the sync engine.
//
// Every entity belongs to exactly one workspace. Workspaces, folders and
// notes carry a client-assigned millisecond UpdatedAt timestamp that the
// sync engine uses for last-write-wins conflict resolution. Calendar
// events, kanban boards and settings have no timestamp and are always
// overwritten whole.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NoteType distinguishes rich-text notes from spreadsheet notes.
type NoteType string

const (
	// NoteText is an HTML rich-text note.
	NoteText NoteType = "text"
	// NoteSpreadsheet is a grid note with cells and size maps.
	NoteSpreadsheet NoteType = "spreadsheet"
)

// Workspace is the top-level container. Deleting a workspace removes its
// folders, notes, calendar events and kanban board.
type Workspace struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Order     int    `json:"order"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Folder groups notes inside a workspace. Order is a dense integer
// sequence shared with notes at the same nesting level, so folders and
// notes can be interleaved.
type Folder struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WorkspaceID string `json:"workspaceId"`
	Order       int    `json:"order"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// Spreadsheet is the nested grid payload of a spreadsheet note.
// Cells are keyed "row:col"; size maps are keyed by row/column index.
type Spreadsheet struct {
	Cells    map[string]string `json:"cells,omitempty"`
	RowSizes map[string]int    `json:"rowSizes,omitempty"`
	ColSizes map[string]int    `json:"colSizes,omitempty"`
}

// Note is a text or spreadsheet document. ContentHTML may be stored
// out-of-line in a secondary content table on the remote side; UpdatedAt
// is the sole conflict-resolution signal and must advance on every save.
type Note struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	ContentHTML string       `json:"contentHtml"`
	UpdatedAt   int64        `json:"updatedAt"`
	WorkspaceID string       `json:"workspaceId"`
	FolderID    string       `json:"folderId,omitempty"` // empty = workspace root
	Order       int          `json:"order"`
	Type        NoteType     `json:"type"`
	Spreadsheet *Spreadsheet `json:"spreadsheet,omitempty"`
}

// CalendarEvent is a dated entry, optionally repeating. It has no
// UpdatedAt; reconciliation is existence-based and any write simply
// overwrites.
type CalendarEvent struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"` // YYYY-MM-DD
	Title       string   `json:"title"`
	Time        string   `json:"time,omitempty"` // HH:MM, empty = all day
	WorkspaceID string   `json:"workspaceId"`
	Repeat      string   `json:"repeat,omitempty"` // daily, weekly, monthly, yearly
	RepeatOn    []int    `json:"repeatOn,omitempty"`
	RepeatEnd   string   `json:"repeatEnd,omitempty"`
	Exceptions  []string `json:"exceptions,omitempty"`
	Color       string   `json:"color,omitempty"`
}

// KanbanTask is a single card on a kanban column.
type KanbanTask struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// KanbanColumn is one column of a workspace's board.
type KanbanColumn struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Tasks       []KanbanTask `json:"tasks"`
	IsCollapsed bool         `json:"isCollapsed,omitempty"`
}

// Kanban is the one board of a workspace. It carries no timestamp at
// all; it is the coarsest entity and is always overwritten whole in
// both sync directions.
type Kanban struct {
	WorkspaceID string         `json:"workspaceId"`
	Columns     []KanbanColumn `json:"columns"`
}

// Setting is a key-value pair in the flat global settings namespace.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ActiveWorkspaceKey is the device preference naming the workspace the
// UI currently shows. It is never synced in either direction.
const ActiveWorkspaceKey = "activeWorkspaceId"

// IsDeviceLocalSetting reports whether a settings key must stay on this
// device. Keys containing ":" are workspace-scoped device state (for
// example "selectedNoteId:ws1"), and ActiveWorkspaceKey is a device
// preference.
func IsDeviceLocalSetting(key string) bool {
	return key == ActiveWorkspaceKey || strings.Contains(key, ":")
}

// NowMillis returns the current wall-clock time in milliseconds, the
// unit UpdatedAt timestamps are expressed in.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// NewID returns a fresh entity ID.
func NewID() string {
	return uuid.NewString()
}
