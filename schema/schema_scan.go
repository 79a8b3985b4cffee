package schema

import "time"

// ScanOutcomeKind tags the closed set of results a single repository scan
// can produce. Every consumer of a ScanOutcome must handle all four kinds.
type ScanOutcomeKind string

// All scan outcome kinds.
const (
	// ScanNotARepository means the path exists but carries no Git metadata.
	ScanNotARepository ScanOutcomeKind = "not_a_repository"

	// ScanEmptyRepository means the repository is valid but has zero commits.
	// The outcome still carries the probed current state.
	ScanEmptyRepository ScanOutcomeKind = "empty_repository"

	// ScanSuccess means history was read and normalized.
	ScanSuccess ScanOutcomeKind = "success"

	// ScanFailed means the underlying tool invocation raised an error
	// (transient I/O, permissions, or a broken repository).
	ScanFailed ScanOutcomeKind = "scan_error"
)

// ScanOptions controls how much of a repository's history a scan reads.
type ScanOptions struct {
	MaxCommits      int  // History depth cap; <= 0 falls back to DefaultMaxCommits
	IncludeBranches bool // Collect branch records
	IncludeRemotes  bool // Collect remote names and URLs
	IncludeStats    bool // Collect per-commit addition/deletion stats
}

// DefaultScanOptions returns the scan options used when a caller passes the
// zero value.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		MaxCommits:      DefaultMaxCommits,
		IncludeBranches: true,
		IncludeRemotes:  true,
		IncludeStats:    true,
	}
}

// HistoryOptions is the subset of scan options forwarded to the version
// control history capability.
type HistoryOptions struct {
	MaxCommits      int
	IncludeBranches bool
	IncludeRemotes  bool
	IncludeStats    bool
}

// ScanOutcome is the tagged result of scanning one repository path.
// Which fields are set depends on Kind:
//
//   - ScanNotARepository: no payload.
//   - ScanEmptyRepository: State.
//   - ScanSuccess: State, History, Contributors, Summary.
//   - ScanFailed: Err.
type ScanOutcome struct {
	Kind         ScanOutcomeKind      `json:"kind"`
	State        *RepoState           `json:"state,omitempty"`
	History      *RepoHistory         `json:"history,omitempty"`
	Contributors []ContributorSummary `json:"contributors,omitempty"`
	Summary      ActivitySummary      `json:"summary"`
	Err          string               `json:"error,omitempty"`
}

// IsSuccess reports whether the scan produced usable history.
func (o ScanOutcome) IsSuccess() bool { return o.Kind == ScanSuccess }

// BatchOptions controls one coordinator pass over a list of mappings.
type BatchOptions struct {
	Concurrency  int           // Scans in flight at once; <= 0 falls back to DefaultScanConcurrency
	ForceRefresh bool          // Scan even when the durable entry is inside the skip window
	SkipWindow   time.Duration // Entries newer than this are skipped; <= 0 falls back to DefaultSkipWindow
	Scan         ScanOptions   // Per-repository scan options
}

// BatchError records one mapping's failure inside a batch.
type BatchError struct {
	MappingID string `json:"mapping_id"`
	LocalPath string `json:"local_path"`
	Reason    string `json:"error"`
}

// BatchResult aggregates the outcome of one bounded-concurrency pass over a
// list of mappings. A mapping is counted in exactly one of Successful,
// Failed or Skipped.
type BatchResult struct {
	Successful        int           `json:"successful"`
	Failed            int           `json:"failed"`
	Skipped           int           `json:"skipped"`
	TotalCommits      int           `json:"total_commits"`
	TotalBranches     int           `json:"total_branches"`
	TotalContributors int           `json:"total_contributors"`
	Errors            []BatchError  `json:"errors,omitempty"`
	Duration          time.Duration `json:"duration"`
}

// Total returns the number of mappings the batch visited.
func (r BatchResult) Total() int { return r.Successful + r.Failed + r.Skipped }
