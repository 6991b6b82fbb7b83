package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neuronotes/neurosync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and local database state",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()

		fmt.Println(ui.RenderHeader("Configuration"))
		fmt.Printf("  Local database:  %s\n", cfg.LocalDBPath)
		if cfg.Configured() {
			fmt.Printf("  Remote backend:  %s\n", cfg.RemoteURL)
		} else {
			fmt.Printf("  Remote backend:  %s\n", ui.RenderMuted("not configured"))
		}
		if cfg.Authenticated() {
			fmt.Printf("  Account:         %s\n", cfg.RemoteUserID)
		} else {
			fmt.Printf("  Account:         %s\n", ui.RenderMuted("not signed in"))
		}

		if _, err := os.Stat(cfg.LocalDBPath); err != nil {
			fmt.Printf("\n%s Local database does not exist yet\n", ui.RenderMuted("--"))
			return
		}

		store := openLocal(cfg)
		defer store.Close()

		workspaces, err := store.ListWorkspaces(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading local state: %v\n", err)
			os.Exit(1)
		}

		noteCount := 0
		eventCount := 0
		for _, w := range workspaces {
			notes, err := store.ListNotes(ctx, w.ID)
			if err == nil {
				noteCount += len(notes)
			}
			events, err := store.ListCalendarEvents(ctx, w.ID)
			if err == nil {
				eventCount += len(events)
			}
		}

		fmt.Println()
		fmt.Println(ui.RenderHeader("Local data"))
		fmt.Printf("  Workspaces:      %d\n", len(workspaces))
		fmt.Printf("  Notes:           %d\n", noteCount)
		fmt.Printf("  Calendar events: %d\n", eventCount)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
