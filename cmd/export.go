package cmd

import (
	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/internal/repostore"
	"github.com/spf13/cobra"
)

// exportCmd exports cached repository data to Parquet files.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export cached repository data to Parquet for BI tools and analytics",
	Long: `Export all cached repository data to Parquet format for use with analytics tools.

Exports two datasets:
- Commits - every cached commit with author, date and line stats
- Contributors - per-repository contributor aggregates

Parquet format enables:
- Fast querying with DuckDB, Apache Spark, pandas
- Efficient storage with columnar compression
- Direct import into BI tools (Tableau, Metabase, etc.)

Requires: --output-file parameter

Examples:
  # Export all data
  repowatch export --output-file repowatch-data

  # Use with DuckDB for analysis
  repowatch export --output-file data
  duckdb -c "SELECT * FROM read_parquet('data.commits.parquet') LIMIT 10"`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := repostore.ExecuteExport(rootCtx, engine.Store, cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export cached data", err)
		}
	},
}
