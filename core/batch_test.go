package core

import (
	"context"
	"testing"
	"time"

	"github.com/repowatch/repowatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchMapping(id, path, projectID string) schema.RepositoryMapping {
	return schema.RepositoryMapping{ID: id, LocalPath: path, ProjectID: projectID}
}

func TestCoordinator_MixedOutcomes(t *testing.T) {
	git := newFakeGit()
	git.addRepo("/repos/a", 5)
	git.addRepo("/repos/b", 2)
	store := newFakeStore()
	coordinator := NewCoordinator(NewScanner(git), store)

	mappings := []schema.RepositoryMapping{
		batchMapping("a", "/repos/a", "p1"),
		batchMapping("b", "/repos/b", "p1"),
		batchMapping("bad", "/repos/bad", "p1"),
	}

	result := coordinator.ScanAll(context.Background(), mappings, schema.BatchOptions{})
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 7, result.TotalCommits)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bad", result.Errors[0].MappingID)
	assert.Equal(t, "/repos/bad", result.Errors[0].LocalPath)
	assert.Equal(t, ReasonNotARepository, result.Errors[0].Reason)

	// The bad path's entry is marked invalid; the good ones carry history.
	ctx := context.Background()
	badEntry, err := store.GetEntry(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, badEntry.IsValidRepository)
	assert.Equal(t, ReasonNotARepository, badEntry.ScanError)

	goodEntry, err := store.GetEntry(ctx, "a")
	require.NoError(t, err)
	assert.True(t, goodEntry.IsValidRepository)
	assert.Len(t, goodEntry.Commits, 5)
}

func TestCoordinator_EmptyRepositoryKeepsState(t *testing.T) {
	git := newFakeGit()
	git.addRepo("/repos/empty", 0)
	store := newFakeStore()
	coordinator := NewCoordinator(NewScanner(git), store)

	result := coordinator.ScanAll(context.Background(),
		[]schema.RepositoryMapping{batchMapping("e", "/repos/empty", "p1")}, schema.BatchOptions{})
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ReasonEmptyHistory, result.Errors[0].Reason)

	entry, err := store.GetEntry(context.Background(), "e")
	require.NoError(t, err)
	assert.True(t, entry.IsValidRepository)
	require.NotNil(t, entry.State)
	assert.Equal(t, "main", entry.State.Branch)
}

func TestCoordinator_SkipWindowIdempotence(t *testing.T) {
	git := newFakeGit()
	git.addRepo("/repos/a", 3)
	git.addRepo("/repos/b", 4)
	store := newFakeStore()
	coordinator := NewCoordinator(NewScanner(git), store)

	mappings := []schema.RepositoryMapping{
		batchMapping("a", "/repos/a", "p1"),
		batchMapping("b", "/repos/b", "p1"),
	}

	ctx := context.Background()
	first := coordinator.ScanAll(ctx, mappings, schema.BatchOptions{})
	require.Equal(t, 2, first.Successful)

	entryBefore, err := store.GetEntry(ctx, "a")
	require.NoError(t, err)

	// An immediate second pass skips every mapping and writes nothing.
	second := coordinator.ScanAll(ctx, mappings, schema.BatchOptions{})
	assert.Equal(t, 0, second.Successful)
	assert.Equal(t, len(mappings), second.Skipped)

	entryAfter, err := store.GetEntry(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, entryBefore.LastUpdatedAt, entryAfter.LastUpdatedAt)

	// forceRefresh ignores the skip window.
	third := coordinator.ScanAll(ctx, mappings, schema.BatchOptions{ForceRefresh: true})
	assert.Equal(t, 2, third.Successful)
}

func TestCoordinator_ConcurrencyBound(t *testing.T) {
	git := newFakeGit()
	store := newFakeStore()
	coordinator := NewCoordinator(NewScanner(git), store)

	var mappings []schema.RepositoryMapping
	for _, id := range []string{"r1", "r2", "r3", "r4", "r5", "r6", "r7"} {
		path := "/repos/" + id
		git.addRepo(path, 1)
		mappings = append(mappings, batchMapping(id, path, "p1"))
	}

	// Gate history reads so each chunk's scans overlap deterministically;
	// release the gate once the first chunk is saturated.
	gate := make(chan struct{})
	git.readGate = gate
	done := make(chan schema.BatchResult, 1)
	go func() {
		done <- coordinator.ScanAll(context.Background(), mappings, schema.BatchOptions{Concurrency: 3})
	}()

	require.Eventually(t, func() bool { return git.peakConcurrency() == 3 }, time.Second, time.Millisecond)
	close(gate)

	result := <-done
	assert.Equal(t, 7, result.Successful)
	// Chunks of 3 never exceed 3 scans in flight.
	assert.Equal(t, 3, git.peakConcurrency())
	assert.Equal(t, 7, git.readCount())
}

func TestCoordinator_DefaultsApplied(t *testing.T) {
	git := newFakeGit()
	git.addRepo("/repos/a", 2)
	store := newFakeStore()
	coordinator := NewCoordinator(NewScanner(git), store)

	// Zero-value options fall back to defaults rather than failing.
	result := coordinator.ScanAll(context.Background(),
		[]schema.RepositoryMapping{batchMapping("a", "/repos/a", "p1")}, schema.BatchOptions{})
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 2, result.TotalCommits)
}
