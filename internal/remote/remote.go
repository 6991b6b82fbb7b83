// Package remote provides the shared backend store for the neuronotes
// dataset, backed by a libSQL (Turso) database.
//
// Every row is scoped by the owning user. Note content is stored
// out-of-line in a note_contents table in addition to the legacy inline
// column. A changes oplog table, populated by triggers on every entity
// table, provides the row-level change feed that Subscribe polls.
//
// The store is written only by the sync engine's push path and read
// only by its pull and subscribe paths; it is never the target of
// direct user mutations.
package remote

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

// Store wraps the remote libSQL connection plus the authenticated
// user's identity.
type Store struct {
	conn   *sql.DB
	userID string
	logger *log.Logger

	// FeedPollInterval is how often Subscribe polls the changes oplog.
	// Zero means the default of 500ms.
	FeedPollInterval time.Duration
}

// Open connects to a remote libSQL database.
//
// The URL is a Turso database URL (libsql://name.turso.io); the auth
// token is appended as a query parameter. The caller MUST call Close()
// when done.
//
// Example:
//
//	store, err := remote.Open(cfg.RemoteURL, cfg.AuthToken, cfg.UserID)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(dbURL, authToken, userID string) (*Store, error) {
	dsn := dbURL
	if authToken != "" {
		dsn = dbURL + "?authToken=" + url.QueryEscape(authToken)
	}

	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping remote database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return &Store{
		conn:   conn,
		userID: userID,
		logger: log.New(os.Stderr, "[remote] ", log.LstdFlags),
	}, nil
}

// New wraps an existing database connection. Tests use this to run the
// remote store against a plain SQLite database.
func New(conn *sql.DB, userID string) *Store {
	return &Store{
		conn:   conn,
		userID: userID,
		logger: log.New(os.Stderr, "[remote] ", log.LstdFlags),
	}
}

// CurrentUserID returns the identity all remote rows are scoped by.
// An empty user means the session is not authenticated.
func (s *Store) CurrentUserID() string {
	return s.userID
}

// Close closes the remote connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close remote database: %w", err)
	}
	s.conn = nil
	return nil
}

// InitSchema creates the remote schema and change-feed triggers if they
// don't exist. Safe to call multiple times.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS workspaces (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		"order" INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS folders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		workspace_id TEXT NOT NULL,
		"order" INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		content_html TEXT,
		updated_at INTEGER NOT NULL,
		workspace_id TEXT NOT NULL,
		folder_id TEXT,
		"order" INTEGER NOT NULL DEFAULT 0,
		type TEXT NOT NULL DEFAULT 'text',
		spreadsheet TEXT
	);

	CREATE TABLE IF NOT EXISTS note_contents (
		note_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		content_html TEXT
	);

	CREATE TABLE IF NOT EXISTS calendar_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		title TEXT NOT NULL,
		time TEXT,
		workspace_id TEXT NOT NULL,
		repeat TEXT,
		repeat_on TEXT,
		repeat_end TEXT,
		exceptions TEXT,
		color TEXT
	);

	CREATE TABLE IF NOT EXISTS kanban (
		workspace_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		columns TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT NOT NULL,
		user_id TEXT NOT NULL,
		value TEXT,
		PRIMARY KEY (key, user_id)
	);

	CREATE TABLE IF NOT EXISTS changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		table_name TEXT NOT NULL,
		row_id TEXT NOT NULL,
		op TEXT NOT NULL,
		user_id TEXT NOT NULL,
		occurred_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_workspaces_user ON workspaces(user_id);
	CREATE INDEX IF NOT EXISTS idx_folders_user_ws ON folders(user_id, workspace_id);
	CREATE INDEX IF NOT EXISTS idx_notes_user_ws ON notes(user_id, workspace_id);
	CREATE INDEX IF NOT EXISTS idx_events_user_ws ON calendar_events(user_id, workspace_id);
	CREATE INDEX IF NOT EXISTS idx_changes_user ON changes(user_id, id);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize remote schema: %w", err)
	}

	if err := s.initTriggers(ctx); err != nil {
		return err
	}
	return nil
}

// initTriggers creates the oplog triggers feeding the changes table.
// One insert/update/delete trio per entity table.
func (s *Store) initTriggers(ctx context.Context) error {
	type tableKey struct {
		table string
		idCol string
	}
	tables := []tableKey{
		{"workspaces", "id"},
		{"folders", "id"},
		{"notes", "id"},
		{"note_contents", "note_id"},
		{"calendar_events", "id"},
		{"kanban", "workspace_id"},
		{"settings", "key"},
	}

	for _, tk := range tables {
		stmts := []string{
			fmt.Sprintf(`
			CREATE TRIGGER IF NOT EXISTS trg_%[1]s_insert AFTER INSERT ON %[1]s
			BEGIN
				INSERT INTO changes (table_name, row_id, op, user_id)
				VALUES ('%[1]s', NEW.%[2]s, 'insert', NEW.user_id);
			END`, tk.table, tk.idCol),
			fmt.Sprintf(`
			CREATE TRIGGER IF NOT EXISTS trg_%[1]s_update AFTER UPDATE ON %[1]s
			BEGIN
				INSERT INTO changes (table_name, row_id, op, user_id)
				VALUES ('%[1]s', NEW.%[2]s, 'update', NEW.user_id);
			END`, tk.table, tk.idCol),
			fmt.Sprintf(`
			CREATE TRIGGER IF NOT EXISTS trg_%[1]s_delete AFTER DELETE ON %[1]s
			BEGIN
				INSERT INTO changes (table_name, row_id, op, user_id)
				VALUES ('%[1]s', OLD.%[2]s, 'delete', OLD.user_id);
			END`, tk.table, tk.idCol),
		}
		for _, stmt := range stmts {
			if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create trigger on %s: %w", tk.table, err)
			}
		}
	}
	return nil
}
