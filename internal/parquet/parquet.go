// Package parquet provides data structures and functions for exporting
// cached repository data to Parquet files using
// github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/repowatch/repowatch/schema"
)

// CommitRow represents one cached commit flattened for analytical export.
type CommitRow struct {
	// MappingID identifies the repository mapping the commit came from
	MappingID string `parquet:"mapping_id,snappy"`

	// ProjectID is the owning project
	ProjectID string `parquet:"project_id,snappy"`

	// RepoName is the short repository display name
	RepoName string `parquet:"repo_name,snappy"`

	// LocalPath is the repository's path on disk
	LocalPath string `parquet:"local_path,snappy"`

	// SHA is the commit hash
	SHA string `parquet:"sha,snappy"`

	// Message is the full commit message
	Message string `parquet:"message,snappy"`

	// AuthorName and AuthorEmail identify the commit author
	AuthorName  string `parquet:"author_name,snappy"`
	AuthorEmail string `parquet:"author_email,snappy"`

	// CommitTime is the author date (stored as TIMESTAMP with nanosecond precision)
	CommitTime time.Time `parquet:"commit_time,snappy"`

	// Additions/Deletions/FilesChanged are nullable; they are only present
	// when the scan collected stats
	Additions    *int32 `parquet:"additions,optional,snappy"`
	Deletions    *int32 `parquet:"deletions,optional,snappy"`
	FilesChanged *int32 `parquet:"files_changed,optional,snappy"`
}

// ContributorRow represents one repository contributor aggregate for export.
type ContributorRow struct {
	// MappingID identifies the repository mapping
	MappingID string `parquet:"mapping_id,snappy"`

	// ProjectID is the owning project
	ProjectID string `parquet:"project_id,snappy"`

	// RepoName is the short repository display name
	RepoName string `parquet:"repo_name,snappy"`

	// Email and Name identify the contributor
	Email string `parquet:"email,snappy"`
	Name  string `parquet:"name,snappy"`

	// CommitCount is how many commits the contributor authored
	CommitCount int32 `parquet:"commit_count,snappy"`

	// LastCommitDate is the contributor's most recent commit time
	LastCommitDate time.Time `parquet:"last_commit_date,snappy"`

	// TotalAdditions/TotalDeletions are line change aggregates
	TotalAdditions int32 `parquet:"total_additions,snappy"`
	TotalDeletions int32 `parquet:"total_deletions,snappy"`
}

// WriteCommitsParquet writes a slice of CommitRow structs to a Parquet file.
func WriteCommitsParquet(data []CommitRow, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the CommitRow struct tags
	writer := parquet.NewGenericWriter[CommitRow](file)
	defer func() { _ = writer.Close() }()

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

// WriteContributorsParquet writes a slice of ContributorRow structs to a
// Parquet file.
func WriteContributorsParquet(data []ContributorRow, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the ContributorRow struct tags
	writer := parquet.NewGenericWriter[ContributorRow](file)
	defer func() { _ = writer.Close() }()

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

// ConvertCommits flattens cache entries into commit rows for export.
func ConvertCommits(entries []*schema.CacheEntry) []CommitRow {
	var rows []CommitRow
	for _, entry := range entries {
		repoName := schema.RepoNameFromPath(entry.LocalPath)
		for _, commit := range entry.Commits {
			row := CommitRow{
				MappingID:   entry.MappingID,
				ProjectID:   entry.ProjectID,
				RepoName:    repoName,
				LocalPath:   entry.LocalPath,
				SHA:         commit.SHA,
				Message:     commit.Message,
				AuthorName:  commit.Author.Name,
				AuthorEmail: commit.Author.Email,
				CommitTime:  commit.Date,
			}
			if commit.Stats != nil {
				additions := int32(commit.Stats.Additions)
				deletions := int32(commit.Stats.Deletions)
				filesChanged := int32(commit.Stats.FilesChanged)
				row.Additions = &additions
				row.Deletions = &deletions
				row.FilesChanged = &filesChanged
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// ConvertContributors flattens cache entries into contributor rows for export.
func ConvertContributors(entries []*schema.CacheEntry) []ContributorRow {
	var rows []ContributorRow
	for _, entry := range entries {
		repoName := schema.RepoNameFromPath(entry.LocalPath)
		for _, contributor := range entry.Contributors {
			rows = append(rows, ContributorRow{
				MappingID:      entry.MappingID,
				ProjectID:      entry.ProjectID,
				RepoName:       repoName,
				Email:          contributor.Email,
				Name:           contributor.Name,
				CommitCount:    int32(contributor.CommitCount),
				LastCommitDate: contributor.LastCommitDate,
				TotalAdditions: int32(contributor.TotalAdditions),
				TotalDeletions: int32(contributor.TotalDeletions),
			})
		}
	}
	return rows
}
