package repostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/internal/parquet"
	"github.com/repowatch/repowatch/schema"
)

// ExecuteExport performs the actual export of cached repository data to
// Parquet files.
func ExecuteExport(ctx context.Context, store contract.Store, outputFile string) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	mappings, err := store.ListMappings(ctx)
	if err != nil {
		return fmt.Errorf("failed to list mappings: %w", err)
	}
	if len(mappings) == 0 {
		return errors.New("no cached data found to export")
	}

	// Collect entries across all projects, one project at a time
	seen := make(map[string]bool)
	var entries []*schema.CacheEntry
	for _, m := range mappings {
		if seen[m.ProjectID] {
			continue
		}
		seen[m.ProjectID] = true

		projectEntries, err := store.ListByProject(ctx, m.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to load entries for project %s: %w", m.ProjectID, err)
		}
		entries = append(entries, projectEntries...)
	}

	// Convert to Parquet format
	commitRows := parquet.ConvertCommits(entries)
	contributorRows := parquet.ConvertContributors(entries)

	fmt.Printf("Exporting %d commits and %d contributors from %d repositories...\n",
		len(commitRows), len(contributorRows), len(entries))

	// Write commits to Parquet
	commitsFile := outputFile + ".commits.parquet"
	if err := parquet.WriteCommitsParquet(commitRows, commitsFile); err != nil {
		return fmt.Errorf("failed to write commits parquet: %w", err)
	}
	fmt.Printf("Wrote %s\n", commitsFile)

	// Write contributors to Parquet
	contributorsFile := outputFile + ".contributors.parquet"
	if err := parquet.WriteContributorsParquet(contributorRows, contributorsFile); err != nil {
		return fmt.Errorf("failed to write contributors parquet: %w", err)
	}
	fmt.Printf("Wrote %s\n", contributorsFile)

	return nil
}
