package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/neuronotes/neurosync/internal/model"
)

// ListWorkspaces returns all workspaces ordered by their display order.
func (s *Store) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, name, "order", updated_at FROM workspaces ORDER BY "order" ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []model.Workspace
	for rows.Next() {
		var w model.Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.Order, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workspaces: %w", err)
	}
	return workspaces, nil
}

// UpsertWorkspace inserts or updates a workspace.
func (s *Store) UpsertWorkspace(ctx context.Context, w model.Workspace) error {
	_, err := s.conn.ExecContext(ctx, `
	INSERT INTO workspaces (id, name, "order", updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		"order" = excluded."order",
		updated_at = excluded.updated_at
	`, w.ID, w.Name, w.Order, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert workspace %s: %w", w.ID, err)
	}
	return nil
}

// DeleteWorkspace removes a workspace and everything it contains.
// Returns nil if the workspace doesn't exist (idempotent).
func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM notes WHERE workspace_id = ?`,
		`DELETE FROM folders WHERE workspace_id = ?`,
		`DELETE FROM calendar_events WHERE workspace_id = ?`,
		`DELETE FROM kanban WHERE workspace_id = ?`,
		`DELETE FROM workspaces WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete workspace %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit workspace delete: %w", err)
	}
	return nil
}

// ListFolders returns the folders of a workspace ordered by display order.
func (s *Store) ListFolders(ctx context.Context, workspaceID string) ([]model.Folder, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, name, workspace_id, "order", updated_at FROM folders
		 WHERE workspace_id = ? ORDER BY "order" ASC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	var folders []model.Folder
	for rows.Next() {
		var f model.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.WorkspaceID, &f.Order, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating folders: %w", err)
	}
	return folders, nil
}

// UpsertFolder inserts or updates a folder.
func (s *Store) UpsertFolder(ctx context.Context, f model.Folder) error {
	_, err := s.conn.ExecContext(ctx, `
	INSERT INTO folders (id, name, workspace_id, "order", updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		workspace_id = excluded.workspace_id,
		"order" = excluded."order",
		updated_at = excluded.updated_at
	`, f.ID, f.Name, f.WorkspaceID, f.Order, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert folder %s: %w", f.ID, err)
	}
	return nil
}

// DeleteFolder removes a folder. Notes inside it keep their rows; the
// application moves them to the workspace root before deleting.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete folder %s: %w", id, err)
	}
	return nil
}

// ListNotes returns the notes of a workspace, content included.
func (s *Store) ListNotes(ctx context.Context, workspaceID string) ([]model.Note, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, title, content_html, updated_at, workspace_id, folder_id, "order", type, spreadsheet
		 FROM notes WHERE workspace_id = ? ORDER BY "order" ASC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		n, err := scanNote(rows.Scan)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

// GetNote retrieves a single note by ID.
// Returns ErrNotFound if the note does not exist.
func (s *Store) GetNote(ctx context.Context, id string) (*model.Note, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, title, content_html, updated_at, workspace_id, folder_id, "order", type, spreadsheet
		 FROM notes WHERE id = ?`, id)
	n, err := scanNote(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return n, err
}

// GetNoteContent returns the HTML content of a note.
// Returns ErrNotFound if the note does not exist.
func (s *Store) GetNoteContent(ctx context.Context, noteID string) (string, error) {
	var content sql.NullString
	err := s.conn.QueryRowContext(ctx,
		`SELECT content_html FROM notes WHERE id = ?`, noteID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get note content %s: %w", noteID, err)
	}
	return content.String, nil
}

// UpsertNote inserts or updates a note.
func (s *Store) UpsertNote(ctx context.Context, n model.Note) error {
	spreadsheetJSON, err := marshalNullable(n.Spreadsheet)
	if err != nil {
		return fmt.Errorf("failed to marshal spreadsheet: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
	INSERT INTO notes (id, title, content_html, updated_at, workspace_id, folder_id, "order", type, spreadsheet)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		content_html = excluded.content_html,
		updated_at = excluded.updated_at,
		workspace_id = excluded.workspace_id,
		folder_id = excluded.folder_id,
		"order" = excluded."order",
		type = excluded.type,
		spreadsheet = excluded.spreadsheet
	`, n.ID, n.Title, n.ContentHTML, n.UpdatedAt, n.WorkspaceID,
		nullIfEmpty(n.FolderID), n.Order, string(noteType(n.Type)), spreadsheetJSON)
	if err != nil {
		return fmt.Errorf("failed to upsert note %s: %w", n.ID, err)
	}
	return nil
}

// DeleteNote removes a note. Returns nil if it doesn't exist (idempotent).
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	return nil
}

// ListCalendarEvents returns the calendar events of a workspace.
func (s *Store) ListCalendarEvents(ctx context.Context, workspaceID string) ([]model.CalendarEvent, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, date, title, time, workspace_id, repeat, repeat_on, repeat_end, exceptions, color
		 FROM calendar_events WHERE workspace_id = ? ORDER BY date ASC, time ASC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanCalendarEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calendar events: %w", err)
	}
	return events, nil
}

// UpsertCalendarEvent inserts or updates a calendar event.
func (s *Store) UpsertCalendarEvent(ctx context.Context, e model.CalendarEvent) error {
	repeatOnJSON, err := marshalNullable(e.RepeatOn)
	if err != nil {
		return fmt.Errorf("failed to marshal repeat_on: %w", err)
	}
	exceptionsJSON, err := marshalNullable(e.Exceptions)
	if err != nil {
		return fmt.Errorf("failed to marshal exceptions: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
	INSERT INTO calendar_events (id, date, title, time, workspace_id, repeat, repeat_on, repeat_end, exceptions, color)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		date = excluded.date,
		title = excluded.title,
		time = excluded.time,
		workspace_id = excluded.workspace_id,
		repeat = excluded.repeat,
		repeat_on = excluded.repeat_on,
		repeat_end = excluded.repeat_end,
		exceptions = excluded.exceptions,
		color = excluded.color
	`, e.ID, e.Date, e.Title, nullIfEmpty(e.Time), e.WorkspaceID,
		nullIfEmpty(e.Repeat), repeatOnJSON, nullIfEmpty(e.RepeatEnd),
		exceptionsJSON, nullIfEmpty(e.Color))
	if err != nil {
		return fmt.Errorf("failed to upsert calendar event %s: %w", e.ID, err)
	}
	return nil
}

// DeleteCalendarEvent removes a calendar event (idempotent).
func (s *Store) DeleteCalendarEvent(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete calendar event %s: %w", id, err)
	}
	return nil
}

// GetKanban returns the kanban board of a workspace.
// Returns ErrNotFound if the workspace has no board.
func (s *Store) GetKanban(ctx context.Context, workspaceID string) (*model.Kanban, error) {
	var columnsJSON string
	err := s.conn.QueryRowContext(ctx,
		`SELECT columns FROM kanban WHERE workspace_id = ?`, workspaceID).Scan(&columnsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kanban for %s: %w", workspaceID, err)
	}

	k := &model.Kanban{WorkspaceID: workspaceID}
	if err := json.Unmarshal([]byte(columnsJSON), &k.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kanban columns: %w", err)
	}
	return k, nil
}

// UpsertKanban inserts or replaces a workspace's kanban board.
func (s *Store) UpsertKanban(ctx context.Context, k model.Kanban) error {
	columns := k.Columns
	if columns == nil {
		columns = []model.KanbanColumn{}
	}
	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("failed to marshal kanban columns: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
	INSERT INTO kanban (workspace_id, columns)
	VALUES (?, ?)
	ON CONFLICT(workspace_id) DO UPDATE SET
		columns = excluded.columns
	`, k.WorkspaceID, string(columnsJSON))
	if err != nil {
		return fmt.Errorf("failed to upsert kanban for %s: %w", k.WorkspaceID, err)
	}
	return nil
}

// DeleteKanban removes a workspace's kanban board (idempotent).
func (s *Store) DeleteKanban(ctx context.Context, workspaceID string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM kanban WHERE workspace_id = ?`, workspaceID); err != nil {
		return fmt.Errorf("failed to delete kanban for %s: %w", workspaceID, err)
	}
	return nil
}

// GetSetting returns the value of a setting key.
// Returns ErrNotFound if the key is not set.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value sql.NullString
	err := s.conn.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value.String, nil
}

// ListSettings returns all settings, device-local keys included.
func (s *Store) ListSettings(ctx context.Context) ([]model.Setting, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []model.Setting
	for rows.Next() {
		var st model.Setting
		var value sql.NullString
		if err := rows.Scan(&st.Key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		st.Value = value.String
		settings = append(settings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}
	return settings, nil
}

// UpsertSetting inserts or updates a setting.
func (s *Store) UpsertSetting(ctx context.Context, st model.Setting) error {
	_, err := s.conn.ExecContext(ctx, `
	INSERT INTO settings (key, value)
	VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value
	`, st.Key, st.Value)
	if err != nil {
		return fmt.Errorf("failed to upsert setting %s: %w", st.Key, err)
	}
	return nil
}

// scanNote reads one note row from a Scan function shared by
// QueryRow and Rows.
func scanNote(scan func(...interface{}) error) (*model.Note, error) {
	var n model.Note
	var content, folderID, typ, spreadsheetJSON sql.NullString

	err := scan(&n.ID, &n.Title, &content, &n.UpdatedAt, &n.WorkspaceID,
		&folderID, &n.Order, &typ, &spreadsheetJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan note: %w", err)
	}

	n.ContentHTML = content.String
	n.FolderID = folderID.String
	n.Type = noteType(model.NoteType(typ.String))
	if spreadsheetJSON.Valid && spreadsheetJSON.String != "" {
		var sheet model.Spreadsheet
		if err := json.Unmarshal([]byte(spreadsheetJSON.String), &sheet); err != nil {
			return nil, fmt.Errorf("failed to unmarshal spreadsheet: %w", err)
		}
		n.Spreadsheet = &sheet
	}
	return &n, nil
}

// scanCalendarEvent reads one calendar event row.
func scanCalendarEvent(scan func(...interface{}) error) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var evTime, repeat, repeatOnJSON, repeatEnd, exceptionsJSON, color sql.NullString

	err := scan(&e.ID, &e.Date, &e.Title, &evTime, &e.WorkspaceID,
		&repeat, &repeatOnJSON, &repeatEnd, &exceptionsJSON, &color)
	if err != nil {
		return nil, fmt.Errorf("failed to scan calendar event: %w", err)
	}

	e.Time = evTime.String
	e.Repeat = repeat.String
	e.RepeatEnd = repeatEnd.String
	e.Color = color.String
	if repeatOnJSON.Valid && repeatOnJSON.String != "" {
		if err := json.Unmarshal([]byte(repeatOnJSON.String), &e.RepeatOn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal repeat_on: %w", err)
		}
	}
	if exceptionsJSON.Valid && exceptionsJSON.String != "" {
		if err := json.Unmarshal([]byte(exceptionsJSON.String), &e.Exceptions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal exceptions: %w", err)
		}
	}
	return &e, nil
}

// noteType normalizes an unknown or empty note type to text.
func noteType(t model.NoteType) model.NoteType {
	if t == model.NoteSpreadsheet {
		return model.NoteSpreadsheet
	}
	return model.NoteText
}

// marshalNullable serializes v to JSON, mapping nil/empty to SQL NULL.
func marshalNullable(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	switch x := v.(type) {
	case *model.Spreadsheet:
		if x == nil {
			return sql.NullString{}, nil
		}
	case []int:
		if len(x) == 0 {
			return sql.NullString{}, nil
		}
	case []string:
		if len(x) == 0 {
			return sql.NullString{}, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// nullIfEmpty maps an empty string to SQL NULL.
func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
