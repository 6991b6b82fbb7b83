package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/neuronotes/neurosync/internal/ui"
)

var migrateYes bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bootstrap the remote account from local data",
	Long: `Upload local data to an empty remote account.

If the remote already holds data for this user, a normal full sync runs
instead so nothing is clobbered.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()

		engine, localStore, remoteStore := newEngine(ctx, cfg)
		defer localStore.Close()
		defer remoteStore.Close()

		needed, err := engine.NeedsMigration(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error checking remote state: %v\n", err)
			os.Exit(1)
		}

		if !needed {
			fmt.Printf("%s Remote account already has data, running a full sync instead\n", ui.RenderMuted("--"))
		} else if !migrateYes {
			var confirmed bool
			prompt := huh.NewConfirm().
				Title("Upload all local data to the remote account?").
				Description("The remote account is empty. Everything in " + cfg.LocalDBPath + " will be uploaded.").
				Value(&confirmed)
			if err := prompt.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if !confirmed {
				fmt.Println(ui.RenderMuted("Aborted"))
				return
			}
		}

		if err := engine.MigrateIfNeeded(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "%s Migration failed: %v\n", ui.RenderError("!!"), err)
			os.Exit(1)
		}
		fmt.Printf("%s Migration complete\n", ui.RenderSuccess("ok"))
	},
}

func init() {
	migrateCmd.Flags().BoolVarP(&migrateYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(migrateCmd)
}
