package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"
)

// Listener receives a project's snapshot after each update.
type Listener func(*schema.ProjectSnapshot)

type subscription struct {
	id       int
	listener Listener
}

type autoRefreshTimer struct {
	stop chan struct{}
}

// Manager is the process-wide authority for what is currently known about
// each project's repositories. It serves instantaneous in-memory reads,
// coalesces concurrent refresh requests per project, drives optional
// per-project auto-refresh timers and publishes updates to subscribers.
//
// Construct one Manager at process start and pass it by reference; it is
// the sole writer of the snapshot cache.
type Manager struct {
	store       contract.Store
	client      contract.GitClient
	coordinator *Coordinator
	scanOpts    schema.ScanOptions

	freshWindow  time.Duration
	initialDelay time.Duration

	mu          sync.Mutex
	snapshots   map[string]*schema.ProjectSnapshot
	subscribers map[string][]subscription
	nextSubID   int
	inflight    map[string]bool
	autoTimers  map[string]*autoRefreshTimer
}

// NewManager returns a manager with an empty snapshot cache. The scan
// options apply to every rescan the manager dispatches.
func NewManager(store contract.Store, client contract.GitClient, coordinator *Coordinator, scan schema.ScanOptions) *Manager {
	return &Manager{
		store:        store,
		client:       client,
		coordinator:  coordinator,
		scanOpts:     scan,
		freshWindow:  schema.DefaultFreshWindow,
		initialDelay: 2 * time.Second,
		snapshots:    make(map[string]*schema.ProjectSnapshot),
		subscribers:  make(map[string][]subscription),
		inflight:     make(map[string]bool),
		autoTimers:   make(map[string]*autoRefreshTimer),
	}
}

// GetCachedData returns the project's current in-memory snapshot, or nil if
// nothing is cached yet. It never blocks on I/O and never triggers a refresh.
func (m *Manager) GetCachedData(projectID string) *schema.ProjectSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[projectID]
}

// Subscribe registers a listener for a project's snapshot updates and
// returns its unsubscribe function. Listeners are invoked synchronously and
// in subscription order after every update.
func (m *Manager) Subscribe(projectID string, listener Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSubID++
	id := m.nextSubID
	m.subscribers[projectID] = append(m.subscribers[projectID], subscription{id: id, listener: listener})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.subscribers[projectID]
		for i, sub := range subs {
			if sub.id == id {
				m.subscribers[projectID] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// notify calls every subscriber for a project in subscription order. The
// subscriber list is snapshotted before iterating so listeners can
// unsubscribe during notification.
func (m *Manager) notify(projectID string, snapshot *schema.ProjectSnapshot) {
	m.mu.Lock()
	subs := make([]subscription, len(m.subscribers[projectID]))
	copy(subs, m.subscribers[projectID])
	m.mu.Unlock()

	for _, sub := range subs {
		sub.listener(snapshot)
	}
}

func (m *Manager) setSnapshot(projectID string, snapshot *schema.ProjectSnapshot) {
	m.mu.Lock()
	m.snapshots[projectID] = snapshot
	m.mu.Unlock()
	m.notify(projectID, snapshot)
}

// LoadFromDurableCache assembles a snapshot from the durable cache entries
// of every mapping in the project and reports whether any usable entry was
// found. It never invokes a repository scan.
func (m *Manager) LoadFromDurableCache(ctx context.Context, projectID string) (bool, error) {
	entries, err := m.store.ListByProject(ctx, projectID)
	if err != nil {
		return false, fmt.Errorf("failed to load durable cache for project %s: %w", projectID, err)
	}

	usable := 0
	for _, e := range entries {
		if e.IsValidRepository || len(e.Commits) > 0 {
			usable++
		}
	}
	if usable == 0 {
		return false, nil
	}

	m.setSnapshot(projectID, buildSnapshot(projectID, entries))
	return true, nil
}

// RefreshGitData refreshes a project's snapshot. If a refresh for this
// project is already in flight the call returns immediately without
// starting another one.
//
// The synchronous part probes each mapping's lightweight state, merges the
// entries that are still fresh into the snapshot and returns. Mappings that
// need a rescan are dispatched in the background; the snapshot is updated
// again and subscribers re-notified when those scans complete.
func (m *Manager) RefreshGitData(ctx context.Context, projectID string, silent bool) error {
	m.mu.Lock()
	if m.inflight[projectID] {
		m.mu.Unlock()
		return nil
	}
	m.inflight[projectID] = true
	m.mu.Unlock()

	clearInflight := func() {
		m.mu.Lock()
		delete(m.inflight, projectID)
		m.mu.Unlock()
	}

	mappings, err := m.store.ListMappingsByProject(ctx, projectID)
	if err != nil {
		clearInflight()
		// Cached data survives a failed refresh; the snapshot records the
		// error so subscribers can surface it.
		m.publishError(projectID, err)
		return fmt.Errorf("failed to list mappings for project %s: %w", projectID, err)
	}

	if !silent {
		m.publishLoading(projectID, true)
	}

	if len(mappings) == 0 {
		snapshot := buildSnapshot(projectID, nil)
		m.setSnapshot(projectID, snapshot)
		clearInflight()
		return nil
	}

	now := timeNow()
	var known []*schema.CacheEntry
	var rescans []schema.RepositoryMapping

	for _, mapping := range mappings {
		entry, err := m.store.GetEntry(ctx, mapping.ID)
		state, probeErr := m.client.ProbeState(ctx, mapping.LocalPath)
		if err != nil || probeErr != nil || entryNeedsRescan(entry, state, now, m.freshWindow) {
			if entry != nil && err == nil {
				// Show the stale data while the rescan runs.
				known = append(known, withProbedState(entry, state))
			}
			rescans = append(rescans, mapping)
			continue
		}
		known = append(known, withProbedState(entry, state))
	}

	snapshot := buildSnapshot(projectID, known)
	if len(rescans) > 0 && !silent {
		snapshot.Loading = true
	}
	m.setSnapshot(projectID, snapshot)

	if len(rescans) == 0 {
		clearInflight()
		return nil
	}

	// Rescans are not awaited; the refresh call has already returned the
	// known-good data. There is no mid-scan cancellation, so the dispatch
	// context outlives the caller's.
	go func() {
		defer clearInflight()
		bgCtx := context.WithoutCancel(ctx)
		m.coordinator.ScanAll(bgCtx, rescans, schema.BatchOptions{ForceRefresh: true, Scan: m.scanOpts})

		entries, err := m.store.ListByProject(bgCtx, projectID)
		if err != nil {
			contract.LogWarn(fmt.Sprintf("reloading project %s after rescan", projectID), err)
			m.publishError(projectID, err)
			return
		}
		m.setSnapshot(projectID, buildSnapshot(projectID, entries))
	}()
	return nil
}

// publishLoading flips the loading flag on the current snapshot, creating
// an empty one when the project has never been cached.
func (m *Manager) publishLoading(projectID string, loading bool) {
	m.mu.Lock()
	snapshot := m.snapshots[projectID]
	if snapshot == nil {
		snapshot = &schema.ProjectSnapshot{ProjectID: projectID}
	} else {
		clone := *snapshot
		snapshot = &clone
	}
	snapshot.Loading = loading
	if loading {
		snapshot.Error = ""
	}
	m.snapshots[projectID] = snapshot
	m.mu.Unlock()
	m.notify(projectID, snapshot)
}

// publishError republishes the current snapshot with the refresh error
// recorded. Cached commit data is left intact.
func (m *Manager) publishError(projectID string, refreshErr error) {
	m.mu.Lock()
	snapshot := m.snapshots[projectID]
	if snapshot == nil {
		snapshot = &schema.ProjectSnapshot{ProjectID: projectID}
	} else {
		clone := *snapshot
		snapshot = &clone
	}
	snapshot.Loading = false
	snapshot.Error = refreshErr.Error()
	m.snapshots[projectID] = snapshot
	m.mu.Unlock()
	m.notify(projectID, snapshot)
}

// StartAutoRefresh arms a per-project timer driving silent refreshes, with
// one initial delayed tick. Starting an already-running project is a no-op.
func (m *Manager) StartAutoRefresh(projectID string, interval time.Duration) {
	if interval <= 0 {
		interval = schema.DefaultRefreshIntervalMinutes * time.Minute
	}

	m.mu.Lock()
	if _, ok := m.autoTimers[projectID]; ok {
		m.mu.Unlock()
		return
	}
	timer := &autoRefreshTimer{stop: make(chan struct{})}
	m.autoTimers[projectID] = timer
	m.mu.Unlock()

	go func() {
		initial := time.NewTimer(m.initialDelay)
		defer initial.Stop()
		select {
		case <-initial.C:
			_ = m.RefreshGitData(context.Background(), projectID, true)
		case <-timer.stop:
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = m.RefreshGitData(context.Background(), projectID, true)
			case <-timer.stop:
				return
			}
		}
	}()
}

// StopAutoRefresh detaches a project's auto-refresh timer. Work already
// dispatched runs to completion.
func (m *Manager) StopAutoRefresh(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if timer, ok := m.autoTimers[projectID]; ok {
		close(timer.stop)
		delete(m.autoTimers, projectID)
	}
}

// IsAutoRefreshRunning reports whether a project has an auto-refresh timer.
func (m *Manager) IsAutoRefreshRunning(projectID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.autoTimers[projectID]
	return ok
}

// StopAll detaches every auto-refresh timer. Used at process shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for projectID, timer := range m.autoTimers {
		close(timer.stop)
		delete(m.autoTimers, projectID)
	}
}

// InitializeProject is the composite entry point for a project becoming
// active: load the durable cache for instant display, refresh to catch
// changes since the last durable write, and optionally start auto-refresh.
func (m *Manager) InitializeProject(ctx context.Context, projectID string, autoRefresh bool, interval time.Duration) error {
	found, err := m.LoadFromDurableCache(ctx, projectID)
	if err != nil {
		return err
	}

	if !found {
		if err := m.RefreshGitData(ctx, projectID, false); err != nil {
			return err
		}
	} else {
		// The durable data displays immediately; catch up in the background.
		go func() {
			time.Sleep(m.initialDelay)
			_ = m.RefreshGitData(context.WithoutCancel(ctx), projectID, true)
		}()
	}

	if autoRefresh {
		m.StartAutoRefresh(projectID, interval)
	}
	return nil
}

// Health reports the project's durable cache health on demand.
func (m *Manager) Health(ctx context.Context, projectID string, staleThreshold time.Duration) (schema.ProjectCacheHealth, error) {
	if staleThreshold <= 0 {
		staleThreshold = schema.DefaultStaleThresholdHours * time.Hour
	}
	return m.store.ProjectHealth(ctx, projectID, staleThreshold)
}

// entryNeedsRescan decides whether a mapping's durable entry can be reused
// as-is. Fresh means updated inside the window, with no head movement and
// no new uncommitted changes since the entry was written.
func entryNeedsRescan(entry *schema.CacheEntry, state *schema.RepoState, now time.Time, window time.Duration) bool {
	if entry == nil || !entry.IsFresh(now, window) {
		return true
	}
	if entry.State == nil {
		// No stored state to compare the probe against.
		return true
	}
	if state == nil {
		return false
	}
	if state.Head != entry.State.Head {
		return true
	}
	if state.IsDirty && !entry.State.IsDirty {
		return true
	}
	return false
}

// withProbedState returns a copy of the entry carrying the just-probed
// state, so the snapshot reflects the current branch and dirty files even
// when the history itself is reused.
func withProbedState(entry *schema.CacheEntry, state *schema.RepoState) *schema.CacheEntry {
	if state == nil {
		return entry
	}
	clone := *entry
	clone.State = state
	return &clone
}

// buildSnapshot derives a project snapshot by concatenating cache entries.
// Commits and branches are tagged with their originating repository name
// and path; contributors are merged across repositories by email.
func buildSnapshot(projectID string, entries []*schema.CacheEntry) *schema.ProjectSnapshot {
	snapshot := &schema.ProjectSnapshot{ProjectID: projectID}

	userByEmail := make(map[string]*schema.ContributorSummary)
	userOrder := make([]string, 0)

	for _, entry := range entries {
		repoName := schema.RepoNameFromPath(entry.LocalPath)

		for _, commit := range entry.Commits {
			snapshot.Commits = append(snapshot.Commits, schema.SnapshotCommit{
				CommitRecord: commit,
				RepoName:     repoName,
				RepoPath:     entry.LocalPath,
			})
		}
		for _, branch := range entry.Branches {
			snapshot.Branches = append(snapshot.Branches, schema.SnapshotBranch{
				BranchRecord: branch,
				RepoName:     repoName,
				RepoPath:     entry.LocalPath,
			})
		}
		for _, contributor := range entry.Contributors {
			user, ok := userByEmail[contributor.Email]
			if !ok {
				clone := contributor
				userByEmail[contributor.Email] = &clone
				userOrder = append(userOrder, contributor.Email)
				continue
			}
			user.CommitCount += contributor.CommitCount
			user.TotalAdditions += contributor.TotalAdditions
			user.TotalDeletions += contributor.TotalDeletions
			if contributor.LastCommitDate.After(user.LastCommitDate) {
				user.LastCommitDate = contributor.LastCommitDate
				user.Name = contributor.Name
			}
		}
		if entry.State != nil && entry.State.IsDirty {
			snapshot.UncommittedChanges = append(snapshot.UncommittedChanges, schema.UncommittedChange{
				RepoName: repoName,
				RepoPath: entry.LocalPath,
				Branch:   entry.State.Branch,
				Files:    entry.State.UncommittedFiles,
			})
		}
		if entry.LastUpdatedAt.After(snapshot.LastUpdated) {
			snapshot.LastUpdated = entry.LastUpdatedAt
		}
	}

	sort.SliceStable(snapshot.Commits, func(i, j int) bool {
		return snapshot.Commits[i].Date.After(snapshot.Commits[j].Date)
	})

	snapshot.Users = make([]schema.ContributorSummary, 0, len(userOrder))
	for _, email := range userOrder {
		snapshot.Users = append(snapshot.Users, *userByEmail[email])
	}
	sort.SliceStable(snapshot.Users, func(i, j int) bool {
		if snapshot.Users[i].CommitCount != snapshot.Users[j].CommitCount {
			return snapshot.Users[i].CommitCount > snapshot.Users[j].CommitCount
		}
		return snapshot.Users[i].Email < snapshot.Users[j].Email
	})

	return snapshot
}
