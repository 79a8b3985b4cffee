package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"
)

// fakeStore is an in-memory contract.Store for engine tests.
type fakeStore struct {
	mu       sync.Mutex
	mappings map[string]schema.RepositoryMapping
	entries  map[string]*schema.CacheEntry
	upserts  int
	failures int

	// Error injection for specific list queries.
	listMappingsByProjectErr error
	listByProjectErr         error
	listOlderThanErr         error
}

var _ contract.Store = &fakeStore{}

func newFakeStore() *fakeStore {
	return &fakeStore{
		mappings: make(map[string]schema.RepositoryMapping),
		entries:  make(map[string]*schema.CacheEntry),
	}
}

func (f *fakeStore) GetEntry(_ context.Context, mappingID string) (*schema.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[mappingID]
	if !ok {
		return nil, contract.ErrEntryNotFound
	}
	clone := *entry
	return &clone, nil
}

func (f *fakeStore) UpsertEntry(_ context.Context, entry *schema.CacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if existing, ok := f.entries[entry.MappingID]; ok {
		if !existing.LastUpdatedAt.IsZero() && entry.LastUpdatedAt.Before(existing.LastUpdatedAt) {
			return nil
		}
	}
	clone := *entry
	f.entries[entry.MappingID] = &clone
	return nil
}

func (f *fakeStore) RecordScanFailure(ctx context.Context, mapping schema.RepositoryMapping, scanErr string, valid bool, state *schema.RepoState, at time.Time) error {
	entry, err := f.GetEntry(ctx, mapping.ID)
	if errors.Is(err, contract.ErrEntryNotFound) {
		entry = &schema.CacheEntry{
			MappingID: mapping.ID,
			ProjectID: mapping.ProjectID,
			LocalPath: mapping.LocalPath,
		}
	} else if err != nil {
		return err
	}
	entry.ScanError = scanErr
	entry.IsValidRepository = valid
	entry.LastUpdatedAt = at
	if state != nil {
		entry.State = state
	}
	f.mu.Lock()
	f.failures++
	f.mu.Unlock()
	return f.UpsertEntry(ctx, entry)
}

func (f *fakeStore) ListOlderThan(_ context.Context, threshold time.Duration) ([]schema.StaleEntryRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listOlderThanErr != nil {
		return nil, f.listOlderThanErr
	}
	cutoff := time.Now().Add(-threshold)
	var refs []schema.StaleEntryRef
	for _, m := range f.mappings {
		entry, ok := f.entries[m.ID]
		if !ok || entry.LastUpdatedAt.IsZero() {
			refs = append(refs, schema.StaleEntryRef{MappingID: m.ID, LocalPath: m.LocalPath, ProjectID: m.ProjectID})
			continue
		}
		if entry.LastUpdatedAt.Before(cutoff) {
			ts := entry.LastUpdatedAt
			refs = append(refs, schema.StaleEntryRef{MappingID: m.ID, LocalPath: m.LocalPath, ProjectID: m.ProjectID, LastUpdatedAt: &ts})
		}
	}
	// Oldest first, never-scanned before everything else.
	for i := 0; i < len(refs); i++ {
		for j := i + 1; j < len(refs); j++ {
			less := refs[j].LastUpdatedAt == nil && refs[i].LastUpdatedAt != nil
			if refs[i].LastUpdatedAt != nil && refs[j].LastUpdatedAt != nil {
				less = refs[j].LastUpdatedAt.Before(*refs[i].LastUpdatedAt)
			}
			if less {
				refs[i], refs[j] = refs[j], refs[i]
			}
		}
	}
	return refs, nil
}

func (f *fakeStore) ListByProject(_ context.Context, projectID string) ([]*schema.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listByProjectErr != nil {
		return nil, f.listByProjectErr
	}
	var entries []*schema.CacheEntry
	for _, entry := range f.entries {
		if entry.ProjectID == projectID {
			clone := *entry
			entries = append(entries, &clone)
		}
	}
	return entries, nil
}

func (f *fakeStore) ProjectHealth(_ context.Context, projectID string, staleThreshold time.Duration) (schema.ProjectCacheHealth, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	health := schema.ProjectCacheHealth{ProjectID: projectID}
	cutoff := time.Now().Add(-staleThreshold)
	for _, m := range f.mappings {
		if m.ProjectID != projectID {
			continue
		}
		health.TotalRepositories++
		entry, ok := f.entries[m.ID]
		switch {
		case ok && (!entry.IsValidRepository || entry.ScanError != ""):
			health.ErroredRepositories++
		case !ok || entry.LastUpdatedAt.IsZero() || entry.LastUpdatedAt.Before(cutoff):
			health.StaleRepositories++
		default:
			health.HealthyRepositories++
		}
	}
	return health, nil
}

func (f *fakeStore) Status(context.Context) (schema.StoreStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return schema.StoreStatus{
		Backend:       "fake",
		Connected:     true,
		TotalMappings: len(f.mappings),
		TotalEntries:  len(f.entries),
	}, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) AddMapping(_ context.Context, mapping schema.RepositoryMapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mappings[mapping.ID] = mapping
	return nil
}

func (f *fakeStore) RemoveMapping(_ context.Context, mappingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.mappings[mappingID]; !ok {
		return contract.ErrMappingNotFound
	}
	delete(f.mappings, mappingID)
	delete(f.entries, mappingID)
	return nil
}

func (f *fakeStore) ListMappings(context.Context) ([]schema.RepositoryMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mappings []schema.RepositoryMapping
	for _, m := range f.mappings {
		mappings = append(mappings, m)
	}
	return mappings, nil
}

func (f *fakeStore) ListMappingsByProject(_ context.Context, projectID string) ([]schema.RepositoryMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listMappingsByProjectErr != nil {
		return nil, f.listMappingsByProjectErr
	}
	var mappings []schema.RepositoryMapping
	for _, m := range f.mappings {
		if m.ProjectID == projectID {
			mappings = append(mappings, m)
		}
	}
	return mappings, nil
}

func (f *fakeStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

func (f *fakeStore) failureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures
}

// fakeGit is a scripted contract.GitClient. Paths without a registered
// state behave as non-repositories. It tracks the peak number of
// concurrent history reads and can gate them on a channel.
type fakeGit struct {
	mu        sync.Mutex
	states    map[string]*schema.RepoState
	histories map[string]*schema.RepoHistory
	probeErrs map[string]error
	readGate  chan struct{}

	active    int
	maxActive int
	reads     int
}

var _ contract.GitClient = &fakeGit{}

func newFakeGit() *fakeGit {
	return &fakeGit{
		states:    make(map[string]*schema.RepoState),
		histories: make(map[string]*schema.RepoHistory),
		probeErrs: make(map[string]error),
	}
}

// addRepo registers a repository with n synthetic commits at the path.
func (g *fakeGit) addRepo(path string, n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	commits := make([]schema.CommitRecord, 0, n)
	for i := range n {
		commits = append(commits, schema.CommitRecord{
			SHA:     fmt.Sprintf("%s-sha-%d-of-%d", schema.RepoNameFromPath(path), i, n),
			Message: fmt.Sprintf("commit %d", i),
			Author:  schema.CommitAuthor{Name: "Dev", Email: "dev@example.com"},
			Date:    time.Now().Add(-time.Duration(i) * time.Hour),
		})
	}
	head := ""
	if n > 0 {
		head = commits[0].SHA
	}
	g.states[path] = &schema.RepoState{Branch: "main", Head: head}
	g.histories[path] = &schema.RepoHistory{
		Commits:  commits,
		Branches: []schema.BranchRecord{{Name: "main", IsLocal: true, Head: head}},
		Remotes:  map[string]string{"origin": "git@example.com:" + schema.RepoNameFromPath(path) + ".git"},
	}
}

func (g *fakeGit) Run(context.Context, string, ...string) ([]byte, error) {
	return nil, nil
}

func (g *fakeGit) ProbeState(_ context.Context, repoPath string) (*schema.RepoState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.probeErrs[repoPath]; ok {
		return nil, err
	}
	state, ok := g.states[repoPath]
	if !ok {
		return nil, fmt.Errorf("reading state of %s: %w", repoPath, contract.ErrNotARepository)
	}
	clone := *state
	return &clone, nil
}

func (g *fakeGit) ReadHistory(_ context.Context, repoPath string, opts schema.HistoryOptions) (*schema.RepoHistory, error) {
	g.mu.Lock()
	g.active++
	g.reads++
	if g.active > g.maxActive {
		g.maxActive = g.active
	}
	gate := g.readGate
	history, ok := g.histories[repoPath]
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}

	defer func() {
		g.mu.Lock()
		g.active--
		g.mu.Unlock()
	}()

	if !ok {
		return nil, fmt.Errorf("reading history of %s: %w", repoPath, contract.ErrNotARepository)
	}

	clone := *history
	if opts.MaxCommits > 0 && len(clone.Commits) > opts.MaxCommits {
		clone.Commits = clone.Commits[:opts.MaxCommits]
	}
	return &clone, nil
}

func (g *fakeGit) peakConcurrency() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxActive
}

func (g *fakeGit) readCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reads
}
