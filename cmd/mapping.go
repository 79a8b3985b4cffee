package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/internal/outwriter"
	"github.com/repowatch/repowatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// mappingCmd groups the repository mapping registry commands.
var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Manage the registry of watched repositories",
	Long: `Manage the registry of local repositories watched by repowatch.

A mapping links a local repository path to a project. Scans, refreshes and
health reports all operate on registered mappings.

Subcommands:
  add    - Register a local repository with a project
  list   - Show registered mappings
  remove - Unlink a mapping and drop its cache entry

Examples:
  # Register a repository
  repowatch mapping add ~/code/backend --project proj-backend

  # List a project's repositories
  repowatch mapping list proj-backend

  # Remove a mapping
  repowatch mapping remove backend`,
}

// mappingAddCmd registers a local repository.
var mappingAddCmd = &cobra.Command{
	Use:   "add <local-path>",
	Short: "Register a local repository with a project",
	Long: `Register a local repository path with a project.

The mapping id defaults to the repository folder name; pass --mapping-id to
override it. Re-adding an existing id updates its path and project while
keeping the original registration time.

Examples:
  # Register with defaults
  repowatch mapping add ~/code/backend --project proj-backend

  # Register with an explicit id and user
  repowatch mapping add /srv/repos/api --project proj-backend --mapping-id api --user sam`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		localPath, err := filepath.Abs(args[0])
		if err != nil {
			contract.LogFatal("Cannot resolve repository path", err)
		}

		id := viper.GetString("mapping-id")
		if id == "" {
			id = schema.RepoNameFromPath(localPath)
		}

		mapping := schema.RepositoryMapping{
			ID:        id,
			LocalPath: localPath,
			ProjectID: viper.GetString("project"),
			UserID:    viper.GetString("user"),
			CreatedAt: time.Now(),
		}
		if mapping.ProjectID == "" {
			contract.LogFatal("Cannot add mapping", errors.New("--project is required"))
		}

		if err := engine.Store.AddMapping(rootCtx, mapping); err != nil {
			contract.LogFatal("Cannot add mapping", err)
		}
		fmt.Printf("Registered %s (%s) with project %s.\n", mapping.ID, mapping.LocalPath, mapping.ProjectID)
	},
}

// mappingListCmd lists registered mappings.
var mappingListCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "Show registered mappings",
	Long: `List registered repository mappings, oldest first.

With a project-id argument only that project's mappings are shown.

Examples:
  # All mappings
  repowatch mapping list

  # One project's mappings as CSV
  repowatch mapping list proj-backend --output csv`,
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
			contract.LogFatal("Cannot list mappings", err)
		}

		ow := outwriter.NewOutWriter()
		if err := ow.WriteMappings(mappings, cfg); err != nil {
			contract.LogFatal("Cannot write mappings", err)
		}
	},
}

// mappingRemoveCmd unlinks a mapping.
var mappingRemoveCmd = &cobra.Command{
	Use:   "remove <mapping-id>",
	Short: "Unlink a mapping and drop its cache entry",
	Long: `Remove a repository mapping from the registry.

The mapping's cache entry is deleted along with it. The repository on disk
is not touched.

Examples:
  repowatch mapping remove backend`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		if err := engine.Store.RemoveMapping(rootCtx, args[0]); err != nil {
			contract.LogFatal("Cannot remove mapping", err)
		}
		fmt.Printf("Removed mapping %s.\n", args[0])
	},
}
