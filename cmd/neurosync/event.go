package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/neuronotes/neurosync/internal/model"
	"github.com/neuronotes/neurosync/internal/ui"
)

var eventWorkspace string

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Calendar event helpers",
}

var eventAddCmd = &cobra.Command{
	Use:   "add <when> <title>",
	Short: "Add a calendar event using a natural-language date",
	Long: `Create a calendar event and push it to the remote backend.

The first argument is a natural-language date ("tomorrow 3pm", "next
friday"), the rest is the event title.

Example:
  neurosync event add "tomorrow 15:00" "Dentist"`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()

		w := when.New(nil)
		w.Add(en.All...)
		w.Add(common.All...)

		result, err := w.Parse(args[0], time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			os.Exit(1)
		}
		if result == nil {
			fmt.Fprintf(os.Stderr, "Error: could not understand %q as a date\n", args[0])
			os.Exit(1)
		}

		engine, localStore, remoteStore := newEngine(ctx, cfg)
		defer localStore.Close()
		defer remoteStore.Close()

		workspaceID := eventWorkspace
		if workspaceID == "" {
			workspaceID, err = localStore.GetSetting(ctx, model.ActiveWorkspaceKey)
			if err != nil && !errors.Is(err, model.ErrNotFound) {
				fmt.Fprintf(os.Stderr, "Error reading active workspace: %v\n", err)
				os.Exit(1)
			}
			if workspaceID == "" {
				fmt.Fprintf(os.Stderr, "Error: no active workspace, pass --workspace\n")
				os.Exit(1)
			}
		}

		event := model.CalendarEvent{
			ID:          model.NewID(),
			Date:        result.Time.Format("2006-01-02"),
			Time:        result.Time.Format("15:04"),
			Title:       strings.Join(args[1:], " "),
			WorkspaceID: workspaceID,
		}
		if err := localStore.UpsertCalendarEvent(ctx, event); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving event: %v\n", err)
			os.Exit(1)
		}

		// Push straight away so the new row can't be wiped by a pull
		// on another device racing this one.
		if err := engine.PushFirst(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "%s Event saved locally but push failed: %v\n", ui.RenderError("!!"), err)
			os.Exit(1)
		}

		fmt.Printf("%s %s at %s %s\n", ui.RenderSuccess("ok"), event.Title, event.Date, event.Time)
	},
}

func init() {
	eventAddCmd.Flags().StringVarP(&eventWorkspace, "workspace", "w", "", "workspace to add the event to (default: active workspace)")
	eventCmd.AddCommand(eventAddCmd)
	rootCmd.AddCommand(eventCmd)
}
