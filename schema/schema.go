// Package schema has configs, models and shared types for all parts of repowatch.
package schema

import "time"

// RepositoryMapping binds one local repository path to one project and one user.
// Mappings are created when a user links a folder and removed when it is
// unlinked; re-association is modeled as delete followed by create.
type RepositoryMapping struct {
	ID        string    `json:"id"`         // Unique mapping identifier
	LocalPath string    `json:"local_path"` // Absolute path to the repository on disk
	ProjectID string    `json:"project_id"` // Owning project
	UserID    string    `json:"user_id"`    // User who linked the folder
	CreatedAt time.Time `json:"created_at"` // When the folder was linked
}

// RepoName returns a short display name for the mapping, derived from the
// last element of its local path.
func (m RepositoryMapping) RepoName() string {
	return RepoNameFromPath(m.LocalPath)
}

// RepoNameFromPath derives a short repository display name from a local path.
func RepoNameFromPath(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

// CommitAuthor identifies the author of a commit.
type CommitAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CommitStats holds per-commit line and file change counts. Only populated
// when stats collection is enabled for the scan.
type CommitStats struct {
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
	FilesChanged int `json:"files_changed"`
}

// CommitRecord is one commit from a repository's history. Records are
// produced only by the scanner and are immutable once produced.
type CommitRecord struct {
	SHA     string       `json:"sha"`
	Message string       `json:"message"`
	Author  CommitAuthor `json:"author"`
	Date    time.Time    `json:"date"`
	Stats   *CommitStats `json:"stats,omitempty"`
}

// BranchRecord is one branch known to a repository.
type BranchRecord struct {
	Name     string `json:"name"`
	IsLocal  bool   `json:"is_local"`
	IsRemote bool   `json:"is_remote"`
	Head     string `json:"head"` // SHA the branch points at, when known
}

// ContributorSummary aggregates one author's activity in a repository.
// It is derived from commit history and recomputed on every scan.
type ContributorSummary struct {
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	CommitCount    int       `json:"commit_count"`
	LastCommitDate time.Time `json:"last_commit_date"`
	TotalAdditions int       `json:"total_additions"`
	TotalDeletions int       `json:"total_deletions"`
}

// RepoState is the lightweight current state of a repository, captured by a
// cheap probe without reading full history.
type RepoState struct {
	Branch           string            `json:"branch"`            // Currently checked out branch
	Head             string            `json:"head"`              // Current HEAD commit SHA
	IsDirty          bool              `json:"is_dirty"`          // Whether the working tree has uncommitted changes
	Ahead            int               `json:"ahead"`             // Commits ahead of the tracking branch
	Behind           int               `json:"behind"`            // Commits behind the tracking branch
	LocalBranches    []string          `json:"local_branches"`    // Names of local branches
	RemoteBranches   []string          `json:"remote_branches"`   // Names of remote-tracking branches
	RemoteURLs       map[string]string `json:"remote_urls"`       // Remote name to fetch URL
	UncommittedFiles []string          `json:"uncommitted_files"` // Paths with uncommitted changes
}

// RepoHistory is the full normalized history read from a repository.
type RepoHistory struct {
	Commits  []CommitRecord    `json:"commits"`
	Branches []BranchRecord    `json:"branches"`
	Remotes  map[string]string `json:"remotes"`
	Tags     []string          `json:"tags"`
}

// ActivitySummary holds repository-wide aggregates derived from one scan.
type ActivitySummary struct {
	TotalCommits    int       `json:"total_commits"`
	TotalAdditions  int       `json:"total_additions"`
	TotalDeletions  int       `json:"total_deletions"`
	RecentCommits   int       `json:"recent_commits"` // Commits within the recent-activity window
	FirstCommitDate time.Time `json:"first_commit_date"`
	LastCommitDate  time.Time `json:"last_commit_date"`
}

// CacheEntry is the durable, per-mapping record of the most recent scan.
// LastUpdatedAt is monotonically non-decreasing across successful scans of
// the same mapping; a failed scan never clears previously scanned commit
// data, it only updates ScanError and LastUpdatedAt.
type CacheEntry struct {
	MappingID         string               `json:"mapping_id"`
	ProjectID         string               `json:"project_id"`
	LocalPath         string               `json:"local_path"`
	Commits           []CommitRecord       `json:"commits"`
	Branches          []BranchRecord       `json:"branches"`
	Remotes           map[string]string    `json:"remotes"`
	Contributors      []ContributorSummary `json:"contributors"`
	Summary           ActivitySummary      `json:"summary"`
	State             *RepoState           `json:"state,omitempty"` // Last probed lightweight state
	LastUpdatedAt     time.Time            `json:"last_updated_at"`
	IsValidRepository bool                 `json:"is_valid_repository"`
	ScanError         string               `json:"scan_error,omitempty"`
}

// Age returns how long ago the entry was last updated, relative to now.
// Entries that have never been updated report a zero age.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	if e.LastUpdatedAt.IsZero() {
		return 0
	}
	return now.Sub(e.LastUpdatedAt)
}

// IsFresh reports whether the entry was updated within the given window.
// Entries that never completed a scan are never fresh.
func (e *CacheEntry) IsFresh(now time.Time, window time.Duration) bool {
	if e.LastUpdatedAt.IsZero() {
		return false
	}
	return now.Sub(e.LastUpdatedAt) < window
}

// StaleEntryRef identifies one stale cache entry returned by the durable
// store's staleness query. LastUpdatedAt is nil for entries that have never
// been scanned.
type StaleEntryRef struct {
	MappingID     string     `json:"mapping_id"`
	LocalPath     string     `json:"local_path"`
	ProjectID     string     `json:"project_id"`
	LastUpdatedAt *time.Time `json:"last_updated_at"`
}
