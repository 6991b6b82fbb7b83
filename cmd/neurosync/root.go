package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/neuronotes/neurosync/internal/config"
	"github.com/neuronotes/neurosync/internal/local"
	"github.com/neuronotes/neurosync/internal/remote"
	syncpkg "github.com/neuronotes/neurosync/internal/sync"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "neurosync",
	Short: "Sync engine for NeuroNotes workspaces",
	Long: `neurosync keeps a local NeuroNotes database in sync with its
remote backend.

It reconciles workspaces, folders, notes, calendar events, kanban
boards and settings in both directions, resolving conflicts by
last-write-wins with a short grace window for in-flight local edits.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.neurosync.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves configuration for a command run.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newLogger builds a component logger, rotating to the configured log
// file when one is set.
func newLogger(cfg *config.Config, prefix string) *log.Logger {
	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	}
	return log.New(out, prefix, log.LstdFlags)
}

// openLocal opens the local database and ensures its schema.
func openLocal(cfg *config.Config) *local.Store {
	store, err := local.Open(cfg.LocalDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening local database: %v\n", err)
		os.Exit(1)
	}
	if err := store.InitSchema(); err != nil {
		store.Close()
		fmt.Fprintf(os.Stderr, "Error initializing local schema: %v\n", err)
		os.Exit(1)
	}
	return store
}

// openRemote connects to the remote backend and ensures its schema.
// Exits when the backend is not configured or not authenticated.
func openRemote(ctx context.Context, cfg *config.Config) *remote.Store {
	if !cfg.Configured() {
		fmt.Fprintf(os.Stderr, "Error: no remote backend configured (set %s)\n", config.KeyRemoteURL)
		os.Exit(1)
	}
	if !cfg.Authenticated() {
		fmt.Fprintf(os.Stderr, "Error: remote credentials missing (set %s and %s)\n",
			config.KeyRemoteAuthToken, config.KeyRemoteUserID)
		os.Exit(1)
	}

	store, err := remote.Open(cfg.RemoteURL, cfg.RemoteAuthToken, cfg.RemoteUserID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to remote backend: %v\n", err)
		os.Exit(1)
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		fmt.Fprintf(os.Stderr, "Error initializing remote schema: %v\n", err)
		os.Exit(1)
	}
	if cfg.FeedPollInterval > 0 {
		store.FeedPollInterval = cfg.FeedPollInterval
	}
	return store
}

// newEngine wires an engine over freshly opened stores.
func newEngine(ctx context.Context, cfg *config.Config) (*syncpkg.Engine, *local.Store, *remote.Store) {
	localStore := openLocal(cfg)
	remoteStore := openRemote(ctx, cfg)
	engine := syncpkg.New(localStore, remoteStore, newLogger(cfg, "[sync] "))
	return engine, localStore, remoteStore
}
