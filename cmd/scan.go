package cmd

import (
	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/internal/outwriter"
	"github.com/repowatch/repowatch/schema"
	"github.com/spf13/cobra"
)

// scanCmd performs a one-off batch scan over registered repositories.
var scanCmd = &cobra.Command{
	Use:   "scan [project-id]",
	Short: "Scan registered repositories and refresh their cache entries.",
	Long: `Run a batch scan over registered repositories and persist the results.

Each repository is probed and its commit history read up to the configured
depth. Results are written to the durable store so later reads are instant.
Repositories scanned within the last 6 hours are skipped unless
--force-refresh is set.

With a project-id argument only that project's repositories are scanned;
without one, every registered repository is scanned.

Examples:
  # Scan everything that is due
  repowatch scan

  # Scan one project, ignoring the skip window
  repowatch scan proj-backend --force-refresh

  # Scan with more parallelism and export the result
  repowatch scan --concurrency 8 --output json --output-file result.json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		var mappings []schema.RepositoryMapping
		var err error
		if len(args) == 1 {
			mappings, err = engine.Store.ListMappingsByProject(rootCtx, args[0])
		} else {
			mappings, err = engine.Store.ListMappings(rootCtx)
		}
		if err != nil {
			contract.LogFatal("Cannot list repository mappings", err)
		}

		result := engine.Coordinator.ScanAll(rootCtx, mappings, cfg.BatchOptions())

		ow := outwriter.NewOutWriter()
		if err := ow.WriteBatchResult(result, cfg, result.Duration); err != nil {
			contract.LogFatal("Cannot write scan results", err)
		}
	},
}
