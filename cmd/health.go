package cmd

import (
	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/internal/outwriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// healthCmd reports cache health for one project.
var healthCmd = &cobra.Command{
	Use:   "health <project-id>",
	Short: "Report cache health for a project's repositories.",
	Long: `Summarize the durable cache state of one project.

Classifies each registered repository as healthy, stale or errored against
the staleness threshold and reports cache age statistics. Also prints the
merged project snapshot when cached data is present.

Examples:
  # Health report for one project
  repowatch health proj-backend

  # Health with a 6 hour staleness threshold, as JSON
  repowatch health proj-backend --stale-threshold-hours 6 --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		projectID := args[0]

		health, err := engine.Manager.Health(rootCtx, projectID, cfg.StaleThreshold)
		if err != nil {
			contract.LogFatal("Cannot compute project health", err)
		}

		ow := outwriter.NewOutWriter()
		if err := ow.WriteHealth(health, cfg); err != nil {
			contract.LogFatal("Cannot write health report", err)
		}

		// Show the cached snapshot when the project has data
		if found, err := engine.Manager.LoadFromDurableCache(rootCtx, projectID); err == nil && found {
			snapshot := engine.Manager.GetCachedData(projectID)
			if err := ow.WriteSnapshot(snapshot, cfg, viper.GetInt("limit")); err != nil {
				contract.LogFatal("Cannot write project snapshot", err)
			}
		}
	},
}
