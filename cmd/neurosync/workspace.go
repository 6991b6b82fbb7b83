package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/neuronotes/neurosync/internal/ui"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Workspace helpers",
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local workspaces",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()

		store := openLocal(cfg)
		defer store.Close()

		workspaces, err := store.ListWorkspaces(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing workspaces: %v\n", err)
			os.Exit(1)
		}
		if len(workspaces) == 0 {
			fmt.Println(ui.RenderMuted("No workspaces"))
			return
		}

		rows := make([][]string, 0, len(workspaces))
		for _, w := range workspaces {
			updated := "-"
			if w.UpdatedAt > 0 {
				updated = time.UnixMilli(w.UpdatedAt).Format("2006-01-02 15:04")
			}
			rows = append(rows, []string{
				w.ID,
				ui.Truncate(w.Name, 40),
				strconv.Itoa(w.Order),
				updated,
			})
		}
		fmt.Print(ui.Table([]string{"ID", "NAME", "ORDER", "UPDATED"}, rows))
	},
}

func init() {
	workspaceCmd.AddCommand(workspaceListCmd)
	rootCmd.AddCommand(workspaceCmd)
}
