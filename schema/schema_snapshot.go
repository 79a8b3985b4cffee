package schema

import "time"

// SnapshotCommit is a commit tagged with the repository it came from, as
// served to snapshot readers.
type SnapshotCommit struct {
	CommitRecord
	RepoName string `json:"repo_name"`
	RepoPath string `json:"repo_path"`
}

// SnapshotBranch is a branch tagged with its originating repository.
type SnapshotBranch struct {
	BranchRecord
	RepoName string `json:"repo_name"`
	RepoPath string `json:"repo_path"`
}

// UncommittedChange describes dirty working-tree state in one repository.
type UncommittedChange struct {
	RepoName string   `json:"repo_name"`
	RepoPath string   `json:"repo_path"`
	Branch   string   `json:"branch"`
	Files    []string `json:"files"`
}

// ProjectSnapshot is the in-memory, per-project aggregation of all its
// mappings' cache entries. It is derived deterministically from the entries
// that belong to the project at aggregation time, never persisted, and
// rebuilt on every refresh.
type ProjectSnapshot struct {
	ProjectID          string               `json:"project_id"`
	Branches           []SnapshotBranch     `json:"branches"`
	Commits            []SnapshotCommit     `json:"commits"`
	Users              []ContributorSummary `json:"users"`
	UncommittedChanges []UncommittedChange  `json:"uncommitted_changes"`
	LastUpdated        time.Time            `json:"last_updated"`
	Loading            bool                 `json:"loading"`
	Error              string               `json:"error,omitempty"`
}

// RefreshStats is the observability state of the staleness scheduler.
// One instance exists per scheduler.
type RefreshStats struct {
	TotalRepositories     int       `json:"total_repositories"`
	StaleRepositories     int       `json:"stale_repositories"`
	RefreshedRepositories int       `json:"refreshed_repositories"`
	FailedRepositories    int       `json:"failed_repositories"`
	LastRefreshTime       time.Time `json:"last_refresh_time"`
	NextRefreshTime       time.Time `json:"next_refresh_time"`
}

// ProjectCacheHealth summarizes the durable cache state of one project.
// It is computed on demand from the durable store and never cached.
type ProjectCacheHealth struct {
	ProjectID           string        `json:"project_id"`
	TotalRepositories   int           `json:"total_repositories"`
	HealthyRepositories int           `json:"healthy_repositories"`
	StaleRepositories   int           `json:"stale_repositories"`
	ErroredRepositories int           `json:"errored_repositories"`
	AverageCacheAge     time.Duration `json:"average_cache_age"`
	OldestCacheTime     time.Time     `json:"oldest_cache_time"`
	NewestCacheTime     time.Time     `json:"newest_cache_time"`
}

// StoreStatus reports connection and volume information for the durable
// store backing the engine.
type StoreStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalMappings   int       `json:"total_mappings"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}
