package parquet

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repowatch/repowatch/schema"
)

func sampleEntries() []*schema.CacheEntry {
	date := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return []*schema.CacheEntry{
		{
			MappingID: "map-1",
			ProjectID: "proj-a",
			LocalPath: "/repos/alpha",
			Commits: []schema.CommitRecord{
				{
					SHA:     "aaa111",
					Message: "Add alpha feature\n\nLonger body",
					Author:  schema.CommitAuthor{Name: "Alice", Email: "alice@example.com"},
					Date:    date,
					Stats:   &schema.CommitStats{Additions: 10, Deletions: 2, FilesChanged: 3},
				},
				{
					SHA:     "bbb222",
					Message: "Fix alpha bug",
					Author:  schema.CommitAuthor{Name: "Bob", Email: "bob@example.com"},
					Date:    date.Add(-time.Hour),
				},
			},
			Contributors: []schema.ContributorSummary{
				{
					Email:          "alice@example.com",
					Name:           "Alice",
					CommitCount:    1,
					LastCommitDate: date,
					TotalAdditions: 10,
					TotalDeletions: 2,
				},
			},
		},
	}
}

func TestCommitRowSchema(t *testing.T) {
	s := parquet.SchemaOf(new(CommitRow))
	for _, col := range []string{
		"mapping_id", "project_id", "repo_name", "local_path",
		"sha", "message", "author_name", "author_email",
		"commit_time", "additions", "deletions", "files_changed",
	} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "missing column %s", col)
	}
}

func TestContributorRowSchema(t *testing.T) {
	s := parquet.SchemaOf(new(ContributorRow))
	for _, col := range []string{
		"mapping_id", "project_id", "repo_name", "email", "name",
		"commit_count", "last_commit_date", "total_additions", "total_deletions",
	} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "missing column %s", col)
	}
}

func TestConvertCommits(t *testing.T) {
	rows := ConvertCommits(sampleEntries())
	require.Len(t, rows, 2)

	assert.Equal(t, "alpha", rows[0].RepoName)
	assert.Equal(t, "aaa111", rows[0].SHA)
	assert.Equal(t, "alice@example.com", rows[0].AuthorEmail)
	require.NotNil(t, rows[0].Additions)
	assert.Equal(t, int32(10), *rows[0].Additions)

	// Stats were not collected for the second commit
	assert.Nil(t, rows[1].Additions)
	assert.Nil(t, rows[1].FilesChanged)
}

func TestConvertContributors(t *testing.T) {
	rows := ConvertContributors(sampleEntries())
	require.Len(t, rows, 1)
	assert.Equal(t, "alpha", rows[0].RepoName)
	assert.Equal(t, int32(1), rows[0].CommitCount)
	assert.Equal(t, int32(10), rows[0].TotalAdditions)
}

func TestWriteCommitsParquetRoundTrip(t *testing.T) {
	rows := ConvertCommits(sampleEntries())
	path := filepath.Join(t.TempDir(), "commits.parquet")

	require.NoError(t, WriteCommitsParquet(rows, path))

	got, err := parquet.ReadFile[CommitRow](path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rows[0].SHA, got[0].SHA)
	assert.Equal(t, rows[1].AuthorName, got[1].AuthorName)
}

func TestWriteContributorsParquet(t *testing.T) {
	rows := ConvertContributors(sampleEntries())
	path := filepath.Join(t.TempDir(), "contributors.parquet")

	require.NoError(t, WriteContributorsParquet(rows, path))
	assert.FileExists(t, path)
}
