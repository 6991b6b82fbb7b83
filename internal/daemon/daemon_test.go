package daemon

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	syncpkg "github.com/neuronotes/neurosync/internal/sync"
)

func testConfig() *Config {
	return &Config{
		SyncInterval:     time.Hour,
		DebounceInterval: 20 * time.Millisecond,
		Logger:           log.New(io.Discard, "", 0),
	}
}

func TestNew(t *testing.T) {
	engine := syncpkg.New(nil, nil, log.New(io.Discard, "", 0))

	if _, err := New(nil, nil, "/tmp/db"); err == nil {
		t.Error("expected error for nil engine")
	}
	if _, err := New(engine, nil, ""); err == nil {
		t.Error("expected error for empty db path")
	}

	d, err := New(engine, nil, filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Stop()
	if d.config.SyncInterval == 0 || d.config.DebounceInterval == 0 {
		t.Errorf("defaults not applied: %+v", d.config)
	}
}

func TestDebounce(t *testing.T) {
	engine := syncpkg.New(nil, nil, log.New(io.Discard, "", 0))
	d, err := NewWithConfig(engine, nil, filepath.Join(t.TempDir(), "local.db"), testConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	if d.takePending() {
		t.Error("pending with no change queued")
	}

	d.queueChange()
	if d.takePending() {
		t.Error("change consumed before the debounce interval elapsed")
	}

	time.Sleep(30 * time.Millisecond)
	if !d.takePending() {
		t.Error("change not consumed after the debounce interval")
	}
	if d.takePending() {
		t.Error("change consumed twice")
	}

	// A second write resets the clock.
	d.queueChange()
	time.Sleep(30 * time.Millisecond)
	d.queueChange()
	if d.takePending() {
		t.Error("rapid successive writes were not batched")
	}
}

func TestQuietWindowSwallowsEngineWrites(t *testing.T) {
	engine := syncpkg.New(nil, nil, log.New(io.Discard, "", 0))
	d, err := NewWithConfig(engine, nil, filepath.Join(t.TempDir(), "local.db"), testConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	// File events caused by the engine's own writes must not queue a
	// push.
	d.muteWatcher()
	d.queueChange()
	time.Sleep(30 * time.Millisecond)
	if d.takePending() {
		t.Error("engine write echoed back as a pending push")
	}

	// Once the window closes, user writes queue normally again.
	d.queueChange()
	time.Sleep(30 * time.Millisecond)
	if !d.takePending() {
		t.Error("quiet window outlived its interval")
	}
}

func TestStartFailsWithoutRemote(t *testing.T) {
	engine := syncpkg.New(nil, nil, log.New(io.Discard, "", 0))
	d, err := NewWithConfig(engine, nil, filepath.Join(t.TempDir(), "local.db"), testConfig())
	if err != nil {
		t.Fatal(err)
	}

	err = d.Start(context.Background())
	if !errors.Is(err, syncpkg.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	engine := syncpkg.New(nil, nil, log.New(io.Discard, "", 0))
	d, err := NewWithConfig(engine, nil, filepath.Join(t.TempDir(), "local.db"), testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Stop(); err != nil {
		t.Errorf("stop before start failed: %v", err)
	}
}
