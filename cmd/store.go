package cmd

import (
	"fmt"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/internal/outwriter"
	"github.com/repowatch/repowatch/internal/repostore"
	"github.com/repowatch/repowatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeSetup loads minimal configuration needed for store operations.
// This is used by commands that need store access without full shared setup.
func storeSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get store-related config values
	backend := schema.DatabaseBackend(viper.GetString("store-backend"))
	connStr := viper.GetString("store-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr
	cfg.Output = schema.OutputMode(viper.GetString("output"))
	cfg.OutputFile = viper.GetString("output-file")
	cfg.UseColors = viper.GetString("color") == "yes" || viper.GetString("color") == "true"

	return nil
}

// storeSetupWrapper wraps storeSetup to provide PreRunE for store commands.
func storeSetupWrapper(_ *cobra.Command, _ []string) error {
	return storeSetup()
}

// storeCmd focused on durable store management.
//
// Note: Store subcommands use minimal initialization (storeSetup) instead of
// the full sharedSetup used by scan commands. This avoids wiring the whole
// engine for simple store operations.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the durable repository cache store",
	Long: `Manage the durable store holding repository mappings and cache entries.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show store statistics and connection info
  clear   - Remove all stored data
  migrate - Run schema migrations

Examples:
  # Check store status
  repowatch store status

  # Clear the store after repository history rewrites
  repowatch store clear`,
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display store statistics and connection details",
	Long: `Show detailed information about the durable store.

Displays:
- Backend type and connection status
- Total mappings and cache entries
- Newest and oldest entry timestamps
- Store database size

Examples:
  # Check store status
  repowatch store status`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store, err := repostore.NewStore(cfg.StoreBackend, cfg.StoreDBConnect)
		if err != nil {
			contract.LogFatal("Failed to initialize store", err)
		}
		defer func() { _ = store.Close() }()

		status, err := store.Status(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to get store status", err)
		}

		ow := outwriter.NewOutWriter()
		if err := ow.WriteStoreStatus(status, cfg); err != nil {
			contract.LogFatal("Failed to write store status", err)
		}
	},
}

// storeClearCmd clears the store.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored mappings and cache entries",
	Long: `Delete all stored data from the configured backend.

Use this when:
- Repository history was rewritten (rebase, force push)
- The cache may be stale or corrupted
- Starting over with a fresh registry

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the store tables

Examples:
  # Clear SQLite store (default)
  repowatch store clear

  # Clear MySQL store (set connection string via env variable)
  REPOWATCH_STORE_BACKEND=mysql REPOWATCH_STORE_DB_CONNECT="..." repowatch store clear`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := repostore.Clear(cfg.StoreBackend, contract.GetStoreDBFilePath(), cfg.StoreDBConnect); err != nil {
			contract.LogFatal("Failed to clear store", err)
		}
		fmt.Println("Store cleared successfully.")
	},
}

// storeMigrateCmd runs database migrations for the store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the durable store.

Migrations allow:
- Upgrading to new schema versions when repowatch is updated
- Safely modifying database structure without data loss
- Rolling back schema changes if needed

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  repowatch store migrate

  # Migrate to specific version
  repowatch store migrate --target-version 1

  # Rollback to initial state
  repowatch store migrate --target-version 0`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := repostore.Migrate(cfg.StoreBackend, cfg.StoreDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
