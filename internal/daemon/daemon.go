// Package daemon provides the long-running sync process.
//
// The daemon:
// 1. Bootstraps the account (bulk upload or full sync)
// 2. Watches the local database file and pushes debounced local changes
// 3. Runs a periodic full sync
// 4. Merges the remote change feed as it arrives
// 5. Handles graceful shutdown
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/neuronotes/neurosync/internal/dashboard"
	syncpkg "github.com/neuronotes/neurosync/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// SyncInterval is how often a full sync runs regardless of
	// activity
	SyncInterval time.Duration

	// DebounceInterval is how long to wait after the last local
	// write before pushing. This batches rapid edits together
	DebounceInterval time.Duration

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:     5 * time.Minute,
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates the sync engine around the local database file.
type Daemon struct {
	engine *syncpkg.Engine
	remote syncpkg.RemoteStore
	dbPath string
	config *Config

	dash *dashboard.Server

	watcher *fsnotify.Watcher

	pendingMu  gosync.Mutex
	pendingAt  time.Time
	quietUntil time.Time

	statusUnsub func()
	rtUnsub     func()
	feedUnsub   func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     gosync.WaitGroup
}

// New creates a new Daemon instance.
//
// The daemon requires:
//   - engine: the sync engine over the local and remote stores
//   - remote: the remote store, used for dashboard event mirroring
//   - dbPath: path of the local SQLite database file to watch
//
// Use Start() to begin syncing.
func New(engine *syncpkg.Engine, remote syncpkg.RemoteStore, dbPath string) (*Daemon, error) {
	return NewWithConfig(engine, remote, dbPath, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(engine *syncpkg.Engine, remote syncpkg.RemoteStore, dbPath string, config *Config) (*Daemon, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		engine:  engine,
		remote:  remote,
		dbPath:  dbPath,
		config:  config,
		watcher: watcher,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// SetDashboard attaches a dashboard server. Status transitions and
// remote change events are broadcast to it once the daemon starts.
// Must be called before Start.
func (d *Daemon) SetDashboard(s *dashboard.Server) {
	d.dash = s
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Bootstrap the account (migration or full sync)
// 2. Subscribe to the remote change feed
// 3. Watch the local database file for edits
// 4. Push debounced local changes and run periodic full syncs
//
// This blocks until ctx is cancelled or an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := d.engine.MigrateIfNeeded(ctx); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}

	if d.dash != nil {
		d.statusUnsub = d.engine.SubscribeStatus(d.dash.BroadcastStatus)
		if d.remote != nil {
			unsub, err := d.remote.Subscribe(d.ctx, d.remote.CurrentUserID(), d.dash.BroadcastChange)
			if err != nil {
				d.config.Logger.Printf("Warning: dashboard feed unavailable: %v", err)
			} else {
				d.feedUnsub = unsub
			}
		}
	}

	rtUnsub, err := d.engine.SetupRealtime(d.ctx, d.muteWatcher)
	if err != nil {
		d.config.Logger.Printf("Warning: realtime merge unavailable: %v", err)
	} else {
		d.rtUnsub = rtUnsub
	}

	// SQLite writes land in the -wal file, so watch the directory and
	// filter on the database file name.
	if err := d.watcher.Add(filepath.Dir(d.dbPath)); err != nil {
		return fmt.Errorf("failed to watch database directory: %w", err)
	}
	d.config.Logger.Printf("Watching: %s", d.dbPath)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.syncLoop()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if d.rtUnsub != nil {
		d.rtUnsub()
	}
	if d.feedUnsub != nil {
		d.feedUnsub()
	}
	if d.statusUnsub != nil {
		d.statusUnsub()
	}

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// watchFileEvents monitors filesystem events and queues a push.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	base := filepath.Base(d.dbPath)

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			// The journal files share the database file's name.
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			d.queueChange()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange records a local write for the debounce loop. Writes
// arriving inside the quiet window are the engine's own and are not
// queued.
func (d *Daemon) queueChange() {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	now := time.Now()
	if now.Before(d.quietUntil) {
		return
	}
	d.pendingAt = now
}

// muteWatcher opens a quiet window after an engine write to the local
// database, so the file watcher does not turn a pull or a realtime
// apply into a redundant push.
func (d *Daemon) muteWatcher() {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	d.quietUntil = time.Now().Add(d.config.DebounceInterval)
}

// takePending consumes the pending change if its debounce interval has
// elapsed.
func (d *Daemon) takePending() bool {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	if d.pendingAt.IsZero() || time.Since(d.pendingAt) < d.config.DebounceInterval {
		return false
	}
	d.pendingAt = time.Time{}
	return true
}

// syncLoop pushes debounced local changes and runs the periodic full
// sync.
func (d *Daemon) syncLoop() {
	defer d.wg.Done()

	debounce := time.NewTicker(d.config.DebounceInterval)
	defer debounce.Stop()
	full := time.NewTicker(d.config.SyncInterval)
	defer full.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-debounce.C:
			if !d.takePending() {
				continue
			}
			// Local edits go up before the next pull so a freshly
			// created row can't be deleted by set difference.
			if err := d.engine.PushFirst(d.ctx); err != nil {
				d.config.Logger.Printf("Warning: push failed: %v", err)
			}

		case <-full.C:
			d.runFullSync()
		}
	}
}

// runFullSync runs one full sync pass and reports it to the dashboard.
func (d *Daemon) runFullSync() {
	start := time.Now()
	d.muteWatcher()
	err := d.engine.FullSync(d.ctx)
	d.muteWatcher()
	if err != nil {
		d.config.Logger.Printf("Warning: periodic sync failed: %v", err)
	}
	if d.dash == nil {
		return
	}
	data := dashboard.SyncCompleteData{Duration: time.Since(start)}
	if err != nil {
		data.Err = err.Error()
	}
	payload, merr := json.Marshal(data)
	if merr != nil {
		return
	}
	d.dash.Broadcast(dashboard.Message{Type: dashboard.MessageTypeSyncComplete, Data: payload})
}
