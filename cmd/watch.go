package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/internal/outwriter"
	"github.com/spf13/cobra"
)

// watchCmd runs the refresh engine until interrupted.
var watchCmd = &cobra.Command{
	Use:   "watch [project-id...]",
	Short: "Run the background refresh service until interrupted.",
	Long: `Keep the repository cache fresh in the background.

Starts the staleness scheduler, which periodically rescans the oldest cache
entries in limited batches. Any project ids given as arguments are loaded
into memory up front and, when auto-refresh is enabled, re-checked on their
own per-project timers.

Runs until SIGINT/SIGTERM, then prints the refresh statistics collected
while running.

Examples:
  # Watch everything with the default 60 minute interval
  repowatch watch

  # Watch two projects with a tighter schedule
  repowatch watch proj-a proj-b --refresh-interval-minutes 15

  # Watch without per-project timers
  repowatch watch proj-a --auto-refresh=false`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		for _, projectID := range args {
			if err := engine.Manager.InitializeProject(rootCtx, projectID, cfg.EnableAutoRefresh, cfg.RefreshInterval); err != nil {
				contract.LogWarn(fmt.Sprintf("Cannot initialize project %s", projectID), err)
			}
		}

		engine.Scheduler.Start()
		fmt.Fprintf(os.Stderr, "Watching %d project(s); refresh interval %v. Press Ctrl+C to stop.\n", len(args), cfg.RefreshInterval)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		engine.Scheduler.Stop()
		engine.Manager.StopAll()

		ow := outwriter.NewOutWriter()
		if err := ow.WriteRefreshStats(engine.Scheduler.Stats(), cfg); err != nil {
			contract.LogFatal("Cannot write refresh stats", err)
		}
	},
}
