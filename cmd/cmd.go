// Package cmd defines the command-line interface for repowatch.
package cmd

import (
	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(mappingCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the mapping subcommands to the parent mapping command
	mappingCmd.AddCommand(mappingAddCmd)
	mappingCmd.AddCommand(mappingListCmd)
	mappingCmd.AddCommand(mappingRemoveCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().Int("max-commits", schema.DefaultMaxCommits, "Maximum commits read per repository scan")
	rootCmd.PersistentFlags().Bool("include-branches", true, "Collect branch records during scans")
	rootCmd.PersistentFlags().Bool("include-remotes", true, "Collect remote names and URLs during scans")
	rootCmd.PersistentFlags().Bool("include-stats", true, "Collect per-commit line stats during scans")
	rootCmd.PersistentFlags().IntP("concurrency", "c", schema.DefaultScanConcurrency, "Number of repositories scanned at once in a batch")
	rootCmd.PersistentFlags().Bool("force-refresh", false, "Ignore the skip window and always rescan")
	rootCmd.PersistentFlags().Int("stale-threshold-hours", schema.DefaultStaleThresholdHours, "Cache entry age in hours past which a rescan is due")
	rootCmd.PersistentFlags().Int("max-batch", schema.DefaultMaxRepositoriesPerBatch, "Stale repositories rescanned per scheduler tick")
	rootCmd.PersistentFlags().Int("refresh-interval-minutes", schema.DefaultRefreshIntervalMinutes, "Scheduler tick interval in minutes")
	rootCmd.PersistentFlags().Bool("auto-refresh", true, "Drive per-project auto-refresh timers while watching")
	rootCmd.PersistentFlags().String("store-backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of snapshot output commands to Viper
	healthCmd.Flags().Int("limit", 0, "Limit the number of commits displayed (0 = no limit)")
	if err := viper.BindPFlags(healthCmd.Flags()); err != nil {
		contract.LogFatal("Error binding health flags", err)
	}

	// Bind all flags of mappingAddCmd to Viper
	mappingAddCmd.Flags().String("mapping-id", "", "Mapping identifier (defaults to the repository folder name)")
	mappingAddCmd.Flags().String("project", "", "Project the repository belongs to")
	mappingAddCmd.Flags().String("user", "", "User who registered the repository")
	if err := viper.BindPFlags(mappingAddCmd.Flags()); err != nil {
		contract.LogFatal("Error binding mapping add flags", err)
	}

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}
}
