package sync

import (
	"context"
	"log"
	"os"
	gosync "sync"
	"time"
)

// graceWindow is how long after a local write the push path keeps
// favoring the local value even when the remote copy looks narrowly
// newer. Without it, a keystroke saved milliseconds after a remote
// write would be thrown away by the timestamp comparison.
const graceWindow = 5000 * time.Millisecond

// Engine reconciles the local store with the remote store and applies
// the remote change feed. One long-lived Engine per authenticated
// session is sufficient; its entry points are serialized internally so
// two sync passes never interleave.
type Engine struct {
	local  LocalStore
	remote RemoteStore
	logger *log.Logger

	// now is the clock used for grace-window decisions and
	// LastSyncAt stamps. Tests substitute it.
	now   func() time.Time
	grace time.Duration

	// mu serializes FullSync, PushFirst and MigrateIfNeeded.
	mu gosync.Mutex

	statusMu   gosync.Mutex
	status     Status
	statusSubs map[int]func(Status)
	nextSubID  int

	rtMu    gosync.Mutex
	rtUnsub func()
}

// New creates an Engine over the given stores.
//
// remote may be nil when the backend is not configured; every sync
// operation then short-circuits with ErrNotConfigured. If logger is
// nil, a default logger writing to stderr is used.
//
// Example:
//
//	engine := sync.New(localStore, remoteStore, nil)
//	if err := engine.FullSync(ctx); err != nil {
//	    return err
//	}
func New(local LocalStore, remote RemoteStore, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Engine{
		local:      local,
		remote:     remote,
		logger:     logger,
		now:        time.Now,
		grace:      graceWindow,
		statusSubs: make(map[int]func(Status)),
	}
}

// requireUser returns the authenticated user the pass is scoped to, or
// the short-circuit error when sync cannot run at all.
func (e *Engine) requireUser() (string, error) {
	if e.remote == nil {
		return "", ErrNotConfigured
	}
	userID := e.remote.CurrentUserID()
	if userID == "" {
		return "", ErrNotAuthenticated
	}
	return userID, nil
}

// FullSync reconciles both directions: pull, then push.
//
// This ordering is the safe default. Pulling first gives the device the
// latest remote state before it decides what to overwrite, and the push
// step re-asserts anything that survived the pull. Returns the first
// failure; already-applied writes are not rolled back.
func (e *Engine) FullSync(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.beginPass()
	err := e.pull(ctx)
	if err == nil {
		err = e.push(ctx)
	}
	e.endPass(err)
	if err != nil {
		e.logger.Printf("Full sync failed: %v", err)
	}
	return err
}

// PushFirst uploads local state without a preceding pull.
//
// Call it immediately after a local structural mutation (entity
// creation, deletion, move, reorder). Deletions are inferred by set
// difference, so a row created locally but not yet pushed would be
// destroyed by a concurrent pull; pushing first closes that window.
// The general push conflict policy applies.
func (e *Engine) PushFirst(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.beginPass()
	err := e.push(ctx)
	e.endPass(err)
	if err != nil {
		e.logger.Printf("Push-first failed: %v", err)
	}
	return err
}
