package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/neuronotes/neurosync/internal/model"
)

// ListWorkspaces returns the user's workspaces ordered by display order.
func (s *Store) ListWorkspaces(ctx context.Context, userID string) ([]model.Workspace, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, name, "order", updated_at FROM workspaces
		 WHERE user_id = ? ORDER BY "order" ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []model.Workspace
	for rows.Next() {
		var w model.Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.Order, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan remote workspace: %w", err)
		}
		workspaces = append(workspaces, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating remote workspaces: %w", err)
	}
	return workspaces, nil
}

// GetWorkspace retrieves one workspace owned by the user.
func (s *Store) GetWorkspace(ctx context.Context, userID, id string) (*model.Workspace, error) {
	var w model.Workspace
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, name, "order", updated_at FROM workspaces WHERE user_id = ? AND id = ?`,
		userID, id).Scan(&w.ID, &w.Name, &w.Order, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get remote workspace %s: %w", id, err)
	}
	return &w, nil
}

// UpsertWorkspace inserts or updates a workspace row for the user.
func (s *Store) UpsertWorkspace(ctx context.Context, userID string, w model.Workspace) error {
	_, err := s.conn.ExecContext(ctx, `
	INSERT INTO workspaces (id, user_id, name, "order", updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		name = excluded.name,
		"order" = excluded."order",
		updated_at = excluded.updated_at
	`, w.ID, userID, w.Name, w.Order, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert remote workspace %s: %w", w.ID, err)
	}
	return nil
}

// DeleteWorkspace removes a workspace row and, by convention, every row
// it contains.
func (s *Store) DeleteWorkspace(ctx context.Context, userID, id string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	childStmts := []string{
		`DELETE FROM note_contents WHERE user_id = ? AND note_id IN
			(SELECT id FROM notes WHERE user_id = ? AND workspace_id = ?)`,
	}
	for _, stmt := range childStmts {
		if _, err := tx.ExecContext(ctx, stmt, userID, userID, id); err != nil {
			return fmt.Errorf("failed to delete remote workspace %s contents: %w", id, err)
		}
	}

	scoped := []string{
		`DELETE FROM notes WHERE user_id = ? AND workspace_id = ?`,
		`DELETE FROM folders WHERE user_id = ? AND workspace_id = ?`,
		`DELETE FROM calendar_events WHERE user_id = ? AND workspace_id = ?`,
		`DELETE FROM kanban WHERE user_id = ? AND workspace_id = ?`,
	}
	for _, stmt := range scoped {
		if _, err := tx.ExecContext(ctx, stmt, userID, id); err != nil {
			return fmt.Errorf("failed to delete remote workspace %s contents: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM workspaces WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("failed to delete remote workspace %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit remote workspace delete: %w", err)
	}
	return nil
}

// ListFolders returns the user's folders in a workspace.
func (s *Store) ListFolders(ctx context.Context, userID, workspaceID string) ([]model.Folder, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, name, workspace_id, "order", updated_at FROM folders
		 WHERE user_id = ? AND workspace_id = ? ORDER BY "order" ASC`, userID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote folders: %w", err)
	}
	defer rows.Close()

	var folders []model.Folder
	for rows.Next() {
		var f model.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.WorkspaceID, &f.Order, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan remote folder: %w", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating remote folders: %w", err)
	}
	return folders, nil
}

// GetFolder retrieves one folder owned by the user.
func (s *Store) GetFolder(ctx context.Context, userID, id string) (*model.Folder, error) {
	var f model.Folder
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, name, workspace_id, "order", updated_at FROM folders
		 WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&f.ID, &f.Name, &f.WorkspaceID, &f.Order, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get remote folder %s: %w", id, err)
	}
	return &f, nil
}

// UpsertFolder inserts or updates a folder row for the user.
func (s *Store) UpsertFolder(ctx context.Context, userID string, f model.Folder) error {
	_, err := s.conn.ExecContext(ctx, `
	INSERT INTO folders (id, user_id, name, workspace_id, "order", updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		name = excluded.name,
		workspace_id = excluded.workspace_id,
		"order" = excluded."order",
		updated_at = excluded.updated_at
	`, f.ID, userID, f.Name, f.WorkspaceID, f.Order, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert remote folder %s: %w", f.ID, err)
	}
	return nil
}

// DeleteFolder removes a folder row (idempotent).
func (s *Store) DeleteFolder(ctx context.Context, userID, id string) error {
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM folders WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("failed to delete remote folder %s: %w", id, err)
	}
	return nil
}

// ListNotes returns the user's note rows in a workspace. The inline
// content column is included; out-of-line content is fetched separately
// with GetNoteContent.
func (s *Store) ListNotes(ctx context.Context, userID, workspaceID string) ([]model.Note, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, title, content_html, updated_at, workspace_id, folder_id, "order", type, spreadsheet
		 FROM notes WHERE user_id = ? AND workspace_id = ? ORDER BY "order" ASC`, userID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote notes: %w", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		n, err := scanRemoteNote(rows.Scan)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating remote notes: %w", err)
	}
	return notes, nil
}

// GetNote retrieves one note row owned by the user.
func (s *Store) GetNote(ctx context.Context, userID, id string) (*model.Note, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, title, content_html, updated_at, workspace_id, folder_id, "order", type, spreadsheet
		 FROM notes WHERE user_id = ? AND id = ?`, userID, id)
	n, err := scanRemoteNote(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return n, err
}

// UpsertNote inserts or updates a note row for the user. The
// out-of-line content row is written separately by UpsertNoteContent.
func (s *Store) UpsertNote(ctx context.Context, userID string, n model.Note) error {
	var spreadsheetJSON sql.NullString
	if n.Spreadsheet != nil {
		b, err := json.Marshal(n.Spreadsheet)
		if err != nil {
			return fmt.Errorf("failed to marshal spreadsheet: %w", err)
		}
		spreadsheetJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.conn.ExecContext(ctx, `
	INSERT INTO notes (id, user_id, title, content_html, updated_at, workspace_id, folder_id, "order", type, spreadsheet)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		title = excluded.title,
		content_html = excluded.content_html,
		updated_at = excluded.updated_at,
		workspace_id = excluded.workspace_id,
		folder_id = excluded.folder_id,
		"order" = excluded."order",
		type = excluded.type,
		spreadsheet = excluded.spreadsheet
	`, n.ID, userID, n.Title, n.ContentHTML, n.UpdatedAt, n.WorkspaceID,
		nullIfEmpty(n.FolderID), n.Order, string(n.Type), spreadsheetJSON)
	if err != nil {
		return fmt.Errorf("failed to upsert remote note %s: %w", n.ID, err)
	}
	return nil
}

// DeleteNote removes a note row and its out-of-line content row.
func (s *Store) DeleteNote(ctx context.Context, userID, id string) error {
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM note_contents WHERE user_id = ? AND note_id = ?`, userID, id); err != nil {
		return fmt.Errorf("failed to delete remote note content %s: %w", id, err)
	}
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM notes WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("failed to delete remote note %s: %w", id, err)
	}
	return nil
}

// GetNoteContent returns the out-of-line content of a note.
// Returns ErrNotFound when no content row exists.
func (s *Store) GetNoteContent(ctx context.Context, userID, noteID string) (string, error) {
	var content sql.NullString
	err := s.conn.QueryRowContext(ctx,
		`SELECT content_html FROM note_contents WHERE user_id = ? AND note_id = ?`,
		userID, noteID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get remote note content %s: %w", noteID, err)
	}
	return content.String, nil
}

// UpsertNoteContent writes the out-of-line content row of a note.
func (s *Store) UpsertNoteContent(ctx context.Context, userID, noteID, contentHTML string) error {
	_, err := s.conn.ExecContext(ctx, `
	INSERT INTO note_contents (note_id, user_id, content_html)
	VALUES (?, ?, ?)
	ON CONFLICT(note_id) DO UPDATE SET
		user_id = excluded.user_id,
		content_html = excluded.content_html
	`, noteID, userID, contentHTML)
	if err != nil {
		return fmt.Errorf("failed to upsert remote note content %s: %w", noteID, err)
	}
	return nil
}

// ListCalendarEvents returns the user's calendar events in a workspace.
func (s *Store) ListCalendarEvents(ctx context.Context, userID, workspaceID string) ([]model.CalendarEvent, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, date, title, time, workspace_id, repeat, repeat_on, repeat_end, exceptions, color
		 FROM calendar_events WHERE user_id = ? AND workspace_id = ?
		 ORDER BY date ASC, time ASC`, userID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanRemoteEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating remote calendar events: %w", err)
	}
	return events, nil
}

// GetCalendarEvent retrieves one calendar event owned by the user.
func (s *Store) GetCalendarEvent(ctx context.Context, userID, id string) (*model.CalendarEvent, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, date, title, time, workspace_id, repeat, repeat_on, repeat_end, exceptions, color
		 FROM calendar_events WHERE user_id = ? AND id = ?`, userID, id)
	e, err := scanRemoteEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return e, err
}

// UpsertCalendarEvent inserts or updates a calendar event row.
func (s *Store) UpsertCalendarEvent(ctx context.Context, userID string, e model.CalendarEvent) error {
	repeatOnJSON, err := marshalNullableJSON(e.RepeatOn)
	if err != nil {
		return fmt.Errorf("failed to marshal repeat_on: %w", err)
	}
	exceptionsJSON, err := marshalNullableJSON(e.Exceptions)
	if err != nil {
		return fmt.Errorf("failed to marshal exceptions: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
	INSERT INTO calendar_events (id, user_id, date, title, time, workspace_id, repeat, repeat_on, repeat_end, exceptions, color)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		date = excluded.date,
		title = excluded.title,
		time = excluded.time,
		workspace_id = excluded.workspace_id,
		repeat = excluded.repeat,
		repeat_on = excluded.repeat_on,
		repeat_end = excluded.repeat_end,
		exceptions = excluded.exceptions,
		color = excluded.color
	`, e.ID, userID, e.Date, e.Title, nullIfEmpty(e.Time), e.WorkspaceID,
		nullIfEmpty(e.Repeat), repeatOnJSON, nullIfEmpty(e.RepeatEnd),
		exceptionsJSON, nullIfEmpty(e.Color))
	if err != nil {
		return fmt.Errorf("failed to upsert remote calendar event %s: %w", e.ID, err)
	}
	return nil
}

// DeleteCalendarEvent removes a calendar event row (idempotent).
func (s *Store) DeleteCalendarEvent(ctx context.Context, userID, id string) error {
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM calendar_events WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("failed to delete remote calendar event %s: %w", id, err)
	}
	return nil
}

// GetKanban returns the user's kanban board for a workspace.
// Returns ErrNotFound when the workspace has no board.
func (s *Store) GetKanban(ctx context.Context, userID, workspaceID string) (*model.Kanban, error) {
	var columnsJSON string
	err := s.conn.QueryRowContext(ctx,
		`SELECT columns FROM kanban WHERE user_id = ? AND workspace_id = ?`,
		userID, workspaceID).Scan(&columnsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get remote kanban for %s: %w", workspaceID, err)
	}

	k := &model.Kanban{WorkspaceID: workspaceID}
	if err := json.Unmarshal([]byte(columnsJSON), &k.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal remote kanban columns: %w", err)
	}
	return k, nil
}

// UpsertKanban inserts or replaces a workspace's board row.
func (s *Store) UpsertKanban(ctx context.Context, userID string, k model.Kanban) error {
	columns := k.Columns
	if columns == nil {
		columns = []model.KanbanColumn{}
	}
	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("failed to marshal kanban columns: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
	INSERT INTO kanban (workspace_id, user_id, columns)
	VALUES (?, ?, ?)
	ON CONFLICT(workspace_id) DO UPDATE SET
		user_id = excluded.user_id,
		columns = excluded.columns
	`, k.WorkspaceID, userID, string(columnsJSON))
	if err != nil {
		return fmt.Errorf("failed to upsert remote kanban for %s: %w", k.WorkspaceID, err)
	}
	return nil
}

// DeleteKanban removes a workspace's board row (idempotent).
func (s *Store) DeleteKanban(ctx context.Context, userID, workspaceID string) error {
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM kanban WHERE user_id = ? AND workspace_id = ?`, userID, workspaceID); err != nil {
		return fmt.Errorf("failed to delete remote kanban for %s: %w", workspaceID, err)
	}
	return nil
}

// ListSettings returns the user's synced settings.
func (s *Store) ListSettings(ctx context.Context, userID string) ([]model.Setting, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key, value FROM settings WHERE user_id = ? ORDER BY key ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote settings: %w", err)
	}
	defer rows.Close()

	var settings []model.Setting
	for rows.Next() {
		var st model.Setting
		var value sql.NullString
		if err := rows.Scan(&st.Key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan remote setting: %w", err)
		}
		st.Value = value.String
		settings = append(settings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating remote settings: %w", err)
	}
	return settings, nil
}

// GetSetting returns one of the user's settings.
func (s *Store) GetSetting(ctx context.Context, userID, key string) (*model.Setting, error) {
	var st model.Setting
	var value sql.NullString
	err := s.conn.QueryRowContext(ctx,
		`SELECT key, value FROM settings WHERE user_id = ? AND key = ?`,
		userID, key).Scan(&st.Key, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get remote setting %s: %w", key, err)
	}
	st.Value = value.String
	return &st, nil
}

// UpsertSetting inserts or updates a setting row for the user.
func (s *Store) UpsertSetting(ctx context.Context, userID string, st model.Setting) error {
	_, err := s.conn.ExecContext(ctx, `
	INSERT INTO settings (key, user_id, value)
	VALUES (?, ?, ?)
	ON CONFLICT(key, user_id) DO UPDATE SET
		value = excluded.value
	`, st.Key, userID, st.Value)
	if err != nil {
		return fmt.Errorf("failed to upsert remote setting %s: %w", st.Key, err)
	}
	return nil
}

// scanRemoteNote reads one note row from a Scan function shared by
// QueryRow and Rows.
func scanRemoteNote(scan func(...interface{}) error) (*model.Note, error) {
	var n model.Note
	var content, folderID, typ, spreadsheetJSON sql.NullString

	err := scan(&n.ID, &n.Title, &content, &n.UpdatedAt, &n.WorkspaceID,
		&folderID, &n.Order, &typ, &spreadsheetJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan remote note: %w", err)
	}

	n.ContentHTML = content.String
	n.FolderID = folderID.String
	n.Type = model.NoteType(typ.String)
	if n.Type != model.NoteSpreadsheet {
		n.Type = model.NoteText
	}
	if spreadsheetJSON.Valid && spreadsheetJSON.String != "" {
		var sheet model.Spreadsheet
		if err := json.Unmarshal([]byte(spreadsheetJSON.String), &sheet); err != nil {
			return nil, fmt.Errorf("failed to unmarshal remote spreadsheet: %w", err)
		}
		n.Spreadsheet = &sheet
	}
	return &n, nil
}

// scanRemoteEvent reads one calendar event row.
func scanRemoteEvent(scan func(...interface{}) error) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var evTime, repeat, repeatOnJSON, repeatEnd, exceptionsJSON, color sql.NullString

	err := scan(&e.ID, &e.Date, &e.Title, &evTime, &e.WorkspaceID,
		&repeat, &repeatOnJSON, &repeatEnd, &exceptionsJSON, &color)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan remote calendar event: %w", err)
	}

	e.Time = evTime.String
	e.Repeat = repeat.String
	e.RepeatEnd = repeatEnd.String
	e.Color = color.String
	if repeatOnJSON.Valid && repeatOnJSON.String != "" {
		if err := json.Unmarshal([]byte(repeatOnJSON.String), &e.RepeatOn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal remote repeat_on: %w", err)
		}
	}
	if exceptionsJSON.Valid && exceptionsJSON.String != "" {
		if err := json.Unmarshal([]byte(exceptionsJSON.String), &e.Exceptions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal remote exceptions: %w", err)
		}
	}
	return &e, nil
}

// marshalNullableJSON serializes a slice to JSON, mapping empty to NULL.
func marshalNullableJSON(v interface{}) (sql.NullString, error) {
	switch x := v.(type) {
	case []int:
		if len(x) == 0 {
			return sql.NullString{}, nil
		}
	case []string:
		if len(x) == 0 {
			return sql.NullString{}, nil
		}
	case nil:
		return sql.NullString{}, nil
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
