package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neuronotes/neurosync/internal/daemon"
	"github.com/neuronotes/neurosync/internal/dashboard"
	"github.com/neuronotes/neurosync/internal/ui"
)

var daemonWithDashboard bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sync daemon",
	Long: `Run the long-lived sync process.

The daemon bootstraps the account, merges the remote change feed as it
arrives, pushes debounced local edits, and runs a periodic full sync.
With --dashboard it also serves a WebSocket endpoint broadcasting sync
activity for live monitoring.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, localStore, remoteStore := newEngine(ctx, cfg)
		defer localStore.Close()
		defer remoteStore.Close()

		dcfg := daemon.DefaultConfig()
		dcfg.Logger = newLogger(cfg, "[daemon] ")
		if cfg.SyncInterval > 0 {
			dcfg.SyncInterval = cfg.SyncInterval
		}
		if cfg.DebounceInterval > 0 {
			dcfg.DebounceInterval = cfg.DebounceInterval
		}

		d, err := daemon.NewWithConfig(engine, remoteStore, localStore.Path(), dcfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
			os.Exit(1)
		}

		if daemonWithDashboard {
			server := dashboard.NewServer(&dashboard.Config{
				Port:   cfg.DashboardPort,
				Logger: newLogger(cfg, "[dashboard] "),
			})
			if err := server.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error starting dashboard: %v\n", err)
				os.Exit(1)
			}
			defer server.Stop()
			d.SetDashboard(server)
			fmt.Printf("%s Dashboard on ws://%s/ws\n", ui.RenderAccent("::"), server.Addr())
		}

		fmt.Printf("%s Daemon running (ctrl-c to stop)\n", ui.RenderAccent("::"))
		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "%s Daemon failed: %v\n", ui.RenderError("!!"), err)
			os.Exit(1)
		}
	},
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonWithDashboard, "dashboard", false, "serve the monitoring dashboard")
	rootCmd.AddCommand(daemonCmd)
}
