package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *contract.Config {
	return &contract.Config{Output: schema.TextOut, Width: 120}
}

func sampleSnapshot() *schema.ProjectSnapshot {
	date := time.Date(2026, 5, 14, 10, 30, 0, 0, time.UTC)
	return &schema.ProjectSnapshot{
		ProjectID: "p1",
		Commits: []schema.SnapshotCommit{
			{
				CommitRecord: schema.CommitRecord{
					SHA:     "abcdef1234567890",
					Message: "Add retry logic\n\nLonger body",
					Author:  schema.CommitAuthor{Name: "Alice", Email: "alice@example.com"},
					Date:    date,
				},
				RepoName: "api",
				RepoPath: "/repos/api",
			},
		},
		Branches: []schema.SnapshotBranch{
			{BranchRecord: schema.BranchRecord{Name: "main", IsLocal: true}, RepoName: "api", RepoPath: "/repos/api"},
		},
		Users: []schema.ContributorSummary{
			{Email: "alice@example.com", Name: "Alice", CommitCount: 1, LastCommitDate: date},
		},
		UncommittedChanges: []schema.UncommittedChange{
			{RepoName: "api", RepoPath: "/repos/api", Branch: "main", Files: []string{"main.go", "go.mod"}},
		},
		LastUpdated: date,
	}
}

func TestWriteBatchCSV(t *testing.T) {
	result := schema.BatchResult{
		Successful:        2,
		Failed:            1,
		Skipped:           3,
		TotalCommits:      7,
		TotalBranches:     4,
		TotalContributors: 2,
		Errors: []schema.BatchError{
			{MappingID: "bad", LocalPath: "/repos/bad", Reason: "Not a Git repository"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeBatchCSV(&buf, result))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 8) // header + 6 metrics + 1 error

	assert.Equal(t, []string{"metric", "value", "mapping_id", "local_path", "error"}, rows[0])
	assert.Equal(t, []string{"successful", "2", "", "", ""}, rows[1])
	assert.Equal(t, []string{"error", "", "bad", "/repos/bad", "Not a Git repository"}, rows[7])
}

func TestWriteBatchTable(t *testing.T) {
	result := schema.BatchResult{
		Successful:   2,
		Failed:       1,
		TotalCommits: 7,
		Errors: []schema.BatchError{
			{MappingID: "bad", LocalPath: "/repos/bad", Reason: "Not a Git repository"},
		},
		Duration: 250 * time.Millisecond,
	}

	var buf bytes.Buffer
	require.NoError(t, writeBatchTable(&buf, result, testConfig(), 250*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "Not a Git repository")
	assert.Contains(t, out, "Batch FAIL: 3 repositories")
}

func TestWriteSnapshotCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSnapshotCSV(&buf, sampleSnapshot()))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"repo", "sha", "author", "email", "date", "message"}, rows[0])
	assert.Equal(t, "api", rows[1][0])
	assert.Equal(t, "abcdef1234567890", rows[1][1])
	assert.Equal(t, "alice@example.com", rows[1][3])
}

func TestWriteSnapshotTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSnapshotTable(&buf, sampleSnapshot(), testConfig(), 10))

	out := buf.String()
	assert.Contains(t, out, "abcdef12")          // Shortened SHA
	assert.Contains(t, out, "Add retry logic")   // Subject only
	assert.NotContains(t, out, "Longer body")    // Body dropped
	assert.Contains(t, out, "Project p1 [OK]: 1 commits, 1 branches, 1 contributors")
}

func TestWriteSnapshotJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, sampleSnapshot()))

	var decoded schema.ProjectSnapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "p1", decoded.ProjectID)
	require.Len(t, decoded.Commits, 1)
	assert.Equal(t, "api", decoded.Commits[0].RepoName)
	assert.Equal(t, "/repos/api", decoded.Commits[0].RepoPath)
}

func TestWriteHealthTable(t *testing.T) {
	health := schema.ProjectCacheHealth{
		ProjectID:           "p1",
		TotalRepositories:   5,
		HealthyRepositories: 3,
		StaleRepositories:   1,
		ErroredRepositories: 1,
		AverageCacheAge:     90 * time.Minute,
	}

	var buf bytes.Buffer
	require.NoError(t, writeHealthTable(&buf, health, testConfig()))

	out := buf.String()
	assert.Contains(t, out, "STALE")
	assert.Contains(t, out, "Project p1: 5 repositories")
	assert.Contains(t, out, "1h30m0s")
}

func TestCommitSubject(t *testing.T) {
	assert.Equal(t, "short", commitSubject("short"))
	assert.Equal(t, "first line", commitSubject("first line\nsecond line"))

	long := strings.Repeat("x", 100)
	subject := commitSubject(long)
	assert.Len(t, subject, maxCommitSubject)
	assert.True(t, strings.HasSuffix(subject, "..."))
}

func TestFormatMaybeTime(t *testing.T) {
	assert.Equal(t, "-", formatMaybeTime(time.Time{}))
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, ts.Format(contract.DateTimeFormat), formatMaybeTime(ts))
}

func TestGetMaxTablePathWidth(t *testing.T) {
	narrow := &contract.Config{Width: 50}
	assert.Equal(t, 15, getMaxTablePathWidth(narrow))

	wide := &contract.Config{Width: 300}
	assert.Equal(t, 70, getMaxTablePathWidth(wide))

	medium := &contract.Config{Width: 100}
	assert.Equal(t, 55, getMaxTablePathWidth(medium))
}
