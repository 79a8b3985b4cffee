// Package contract provides interfaces and shared utilities for repowatch's
// internal architecture.
package contract

import (
	"context"
	"errors"
	"time"

	"github.com/repowatch/repowatch/schema"
)

// ErrNotARepository is returned by probe and history calls when the path
// exists but carries no Git metadata.
var ErrNotARepository = errors.New("not a git repository")

// ErrEntryNotFound is returned by the durable store when no cache entry
// exists for a mapping.
var ErrEntryNotFound = errors.New("cache entry not found")

// ErrMappingNotFound is returned by the durable store when no mapping
// exists for an id.
var ErrMappingNotFound = errors.New("mapping not found")

// GitClient defines the version-control capabilities the engine consumes.
// The tool itself is a black box; this interface allows the scanning logic
// to be tested without a real git executable.
type GitClient interface {
	// Run executes a git command in the given repository and returns its
	// output. Its use should be minimized in favor of the explicit methods
	// below.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// ProbeState captures a repository's lightweight current state: branch,
	// head, dirty flag, ahead/behind counts, branch lists and remotes.
	// Returns ErrNotARepository when the path has no Git metadata.
	ProbeState(ctx context.Context, repoPath string) (*schema.RepoState, error)

	// ReadHistory reads the repository's commit history up to the configured
	// depth, plus branches, remotes and tags when requested.
	ReadHistory(ctx context.Context, repoPath string, opts schema.HistoryOptions) (*schema.RepoHistory, error)
}

// EntryStore is the durable row store for per-mapping cache entries.
// Each row is updated independently; no cross-row transaction is assumed.
type EntryStore interface {
	// GetEntry returns the cache entry for a mapping, or ErrEntryNotFound.
	GetEntry(ctx context.Context, mappingID string) (*schema.CacheEntry, error)

	// UpsertEntry inserts or replaces a mapping's cache entry. The write
	// wins only if the incoming LastUpdatedAt is not older than the stored
	// one, so a slow stale scan cannot clobber a fresher result.
	UpsertEntry(ctx context.Context, entry *schema.CacheEntry) error

	// RecordScanFailure updates a mapping's entry after a failed scan. Any
	// previously scanned commit data is preserved; only the error, validity
	// flag, optional probed state and timestamp change. An entry is created
	// if none exists.
	RecordScanFailure(ctx context.Context, mapping schema.RepositoryMapping, scanErr string, valid bool, state *schema.RepoState, at time.Time) error

	// ListOlderThan returns refs for entries whose LastUpdatedAt is null or
	// older than the threshold, oldest first.
	ListOlderThan(ctx context.Context, threshold time.Duration) ([]schema.StaleEntryRef, error)

	// ListByProject returns all cache entries for a project's mappings.
	ListByProject(ctx context.Context, projectID string) ([]*schema.CacheEntry, error)

	// ProjectHealth summarizes the cache state of one project's entries,
	// computed on demand.
	ProjectHealth(ctx context.Context, projectID string, staleThreshold time.Duration) (schema.ProjectCacheHealth, error)

	// Status returns connection and volume information for the store.
	Status(ctx context.Context) (schema.StoreStatus, error)

	// Close closes the underlying connection.
	Close() error
}

// MappingStore manages the registry of repository mappings.
type MappingStore interface {
	// AddMapping registers a local path with a project and user.
	AddMapping(ctx context.Context, m schema.RepositoryMapping) error

	// RemoveMapping unlinks a mapping and drops its cache entry.
	RemoveMapping(ctx context.Context, id string) error

	// ListMappings returns all registered mappings.
	ListMappings(ctx context.Context) ([]schema.RepositoryMapping, error)

	// ListMappingsByProject returns the mappings belonging to one project.
	ListMappingsByProject(ctx context.Context, projectID string) ([]schema.RepositoryMapping, error)
}

// Store is the full durable store surface: cache entries plus the mapping
// registry, both keyed rows in the same backend.
type Store interface {
	EntryStore
	MappingStore
}
