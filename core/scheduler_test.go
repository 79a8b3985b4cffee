package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/repowatch/repowatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(store *fakeStore, git *fakeGit, opts SchedulerOptions) *Scheduler {
	return NewScheduler(store, NewCoordinator(NewScanner(git), store), opts)
}

func TestScheduler_RunOnceRefreshesStale(t *testing.T) {
	git := newFakeGit()
	git.addRepo("/repos/stale", 3)
	git.addRepo("/repos/never", 2)
	store := newFakeStore()
	ctx := context.Background()

	require.NoError(t, store.AddMapping(ctx, batchMapping("stale", "/repos/stale", "p1")))
	require.NoError(t, store.AddMapping(ctx, batchMapping("never", "/repos/never", "p1")))
	require.NoError(t, store.AddMapping(ctx, batchMapping("fresh", "/repos/fresh", "p1")))
	git.addRepo("/repos/fresh", 1)

	// One entry well past the threshold, one fresh, one never scanned.
	staleEntry := &schema.CacheEntry{MappingID: "stale", ProjectID: "p1", LocalPath: "/repos/stale", IsValidRepository: true, LastUpdatedAt: time.Now().Add(-48 * time.Hour)}
	freshEntry := &schema.CacheEntry{MappingID: "fresh", ProjectID: "p1", LocalPath: "/repos/fresh", IsValidRepository: true, LastUpdatedAt: time.Now()}
	require.NoError(t, store.UpsertEntry(ctx, staleEntry))
	require.NoError(t, store.UpsertEntry(ctx, freshEntry))

	scheduler := newTestScheduler(store, git, SchedulerOptions{StaleThreshold: 24 * time.Hour, MaxPerBatch: 5})
	scheduler.RunOnce(ctx)

	stats := scheduler.Stats()
	assert.Equal(t, 3, stats.TotalRepositories)
	assert.Equal(t, 2, stats.StaleRepositories)
	assert.Equal(t, 2, stats.RefreshedRepositories)
	assert.Equal(t, 0, stats.FailedRepositories)
	assert.False(t, stats.LastRefreshTime.IsZero())
	assert.True(t, stats.NextRefreshTime.After(stats.LastRefreshTime))

	// The stale entries were rescanned; the fresh one was untouched.
	got, err := store.GetEntry(ctx, "stale")
	require.NoError(t, err)
	assert.Len(t, got.Commits, 3)
	got, err = store.GetEntry(ctx, "never")
	require.NoError(t, err)
	assert.Len(t, got.Commits, 2)
	got, err = store.GetEntry(ctx, "fresh")
	require.NoError(t, err)
	assert.Empty(t, got.Commits)
}

func TestScheduler_BatchLimitDefersRemainder(t *testing.T) {
	git := newFakeGit()
	store := newFakeStore()
	ctx := context.Background()

	ids := []string{"r1", "r2", "r3", "r4", "r5", "r6", "r7"}
	for _, id := range ids {
		path := "/repos/" + id
		git.addRepo(path, 1)
		require.NoError(t, store.AddMapping(ctx, batchMapping(id, path, "p1")))
	}

	scheduler := newTestScheduler(store, git, SchedulerOptions{StaleThreshold: 24 * time.Hour, MaxPerBatch: 5})
	scheduler.RunOnce(ctx)

	stats := scheduler.Stats()
	assert.Equal(t, 7, stats.StaleRepositories)
	assert.Equal(t, 5, stats.RefreshedRepositories)
	assert.Equal(t, 5, git.readCount())

	// The remainder lands in the next tick.
	scheduler.RunOnce(ctx)
	stats = scheduler.Stats()
	assert.Equal(t, 2, stats.StaleRepositories)
	assert.Equal(t, 2, stats.RefreshedRepositories)
	assert.Equal(t, 7, git.readCount())
}

func TestScheduler_OverlappingTickSkipped(t *testing.T) {
	git := newFakeGit()
	git.addRepo("/repos/a", 1)
	store := newFakeStore()
	ctx := context.Background()
	require.NoError(t, store.AddMapping(ctx, batchMapping("a", "/repos/a", "p1")))

	scheduler := newTestScheduler(store, git, SchedulerOptions{StaleThreshold: time.Hour, MaxPerBatch: 5})

	gate := make(chan struct{})
	git.readGate = gate

	var wg sync.WaitGroup
	wg.Go(func() { scheduler.RunOnce(ctx) })

	require.Eventually(t, func() bool { return git.readCount() == 1 }, time.Second, time.Millisecond)

	// A tick arriving while the first cycle is in flight does nothing.
	scheduler.RunOnce(ctx)
	assert.Equal(t, 1, git.readCount())

	close(gate)
	wg.Wait()
	assert.Equal(t, 1, scheduler.Stats().RefreshedRepositories)
}

func TestScheduler_QueryFailureStillAdvancesClock(t *testing.T) {
	git := newFakeGit()
	store := newFakeStore()
	ctx := context.Background()

	store.mu.Lock()
	store.listOlderThanErr = errors.New("store offline")
	store.mu.Unlock()

	scheduler := newTestScheduler(store, git, SchedulerOptions{
		StaleThreshold: time.Hour,
		MaxPerBatch:    5,
		Interval:       30 * time.Minute,
	})
	before := time.Now()
	scheduler.RunOnce(ctx)

	// The failed cycle is still recorded so the next tick is scheduled
	// in the future rather than reported as overdue.
	stats := scheduler.Stats()
	assert.False(t, stats.LastRefreshTime.Before(before))
	assert.True(t, stats.NextRefreshTime.After(time.Now()))
	assert.Equal(t, 0, git.readCount())
}

func TestScheduler_StartStop(t *testing.T) {
	git := newFakeGit()
	store := newFakeStore()
	scheduler := newTestScheduler(store, git, SchedulerOptions{
		StaleThreshold: time.Hour,
		MaxPerBatch:    5,
		Interval:       time.Hour,
		WarmupDelay:    time.Hour, // Never fires during the test
	})

	assert.False(t, scheduler.IsRunning())
	scheduler.Start()
	assert.True(t, scheduler.IsRunning())
	scheduler.Start() // Idempotent
	assert.True(t, scheduler.IsRunning())

	scheduler.Stop()
	assert.False(t, scheduler.IsRunning())
	scheduler.Stop() // Idempotent
	assert.False(t, scheduler.IsRunning())
}

func TestScheduler_WarmupTickFires(t *testing.T) {
	git := newFakeGit()
	git.addRepo("/repos/a", 2)
	store := newFakeStore()
	ctx := context.Background()
	require.NoError(t, store.AddMapping(ctx, batchMapping("a", "/repos/a", "p1")))

	scheduler := newTestScheduler(store, git, SchedulerOptions{
		StaleThreshold: time.Hour,
		MaxPerBatch:    5,
		Interval:       time.Hour,
		WarmupDelay:    5 * time.Millisecond,
	})
	scheduler.Start()
	defer scheduler.Stop()

	require.Eventually(t, func() bool {
		return scheduler.Stats().RefreshedRepositories == 1
	}, time.Second, time.Millisecond)
}
