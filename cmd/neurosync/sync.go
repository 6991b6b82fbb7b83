package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/neuronotes/neurosync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one full sync pass",
	Long: `Reconcile the local database with the remote backend once.

This pulls remote changes first (remote deletions and newer edits are
applied locally), then pushes local state up (local deletions and
edits, subject to the conflict policy).`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()

		engine, localStore, remoteStore := newEngine(ctx, cfg)
		defer localStore.Close()
		defer remoteStore.Close()

		fmt.Printf("%s Syncing %s...\n", ui.RenderAccent("::"), cfg.LocalDBPath)
		start := time.Now()

		if err := engine.FullSync(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "%s Sync failed: %v\n", ui.RenderError("!!"), err)
			os.Exit(1)
		}

		workspaces, err := localStore.ListWorkspaces(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading local state: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Synced %d workspaces in %v\n",
			ui.RenderSuccess("ok"), len(workspaces), time.Since(start).Round(time.Millisecond))
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
