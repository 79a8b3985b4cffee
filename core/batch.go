package core

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"
)

// Failure reasons recorded in batch errors and durable entries.
const (
	ReasonNotARepository = "Not a Git repository"
	ReasonEmptyHistory   = "No commit history found"
)

// Coordinator runs scans over many mappings with bounded concurrency and
// persists each outcome. It owns no state beyond the lifetime of one
// ScanAll call.
type Coordinator struct {
	scanner *Scanner
	store   contract.EntryStore
}

// NewCoordinator returns a coordinator persisting scan outcomes to the store.
func NewCoordinator(scanner *Scanner, store contract.EntryStore) *Coordinator {
	return &Coordinator{scanner: scanner, store: store}
}

// ScanAll partitions the mappings into chunks of opts.Concurrency, runs one
// chunk fully in parallel before starting the next, and aggregates the
// outcomes. Every mapping lands in exactly one of successful, failed or
// skipped; a failure in one mapping never aborts its siblings.
func (c *Coordinator) ScanAll(ctx context.Context, mappings []schema.RepositoryMapping, opts schema.BatchOptions) schema.BatchResult {
	start := timeNow()
	if opts.Concurrency <= 0 {
		opts.Concurrency = schema.DefaultScanConcurrency
	}
	if opts.SkipWindow <= 0 {
		opts.SkipWindow = schema.DefaultSkipWindow
	}
	if opts.Scan.MaxCommits <= 0 {
		opts.Scan = schema.DefaultScanOptions()
	}

	var mu sync.Mutex
	var result schema.BatchResult

	for chunk := range slices.Chunk(mappings, opts.Concurrency) {
		var wg sync.WaitGroup
		for _, mapping := range chunk {
			wg.Go(func() {
				outcome := c.scanOne(ctx, mapping, opts)
				mu.Lock()
				defer mu.Unlock()
				switch outcome.kind {
				case scanOneSuccess:
					result.Successful++
					result.TotalCommits += outcome.commits
					result.TotalBranches += outcome.branches
					result.TotalContributors += outcome.contributors
				case scanOneSkipped:
					result.Skipped++
				case scanOneFailed:
					result.Failed++
					result.Errors = append(result.Errors, schema.BatchError{
						MappingID: mapping.ID,
						LocalPath: mapping.LocalPath,
						Reason:    outcome.reason,
					})
				}
			})
		}
		wg.Wait()
	}

	result.Duration = timeNow().Sub(start)
	return result
}

type scanOneKind int

const (
	scanOneSuccess scanOneKind = iota
	scanOneSkipped
	scanOneFailed
)

type scanOneOutcome struct {
	kind         scanOneKind
	reason       string
	commits      int
	branches     int
	contributors int
}

// scanOne scans a single mapping and persists the result. Panics are
// contained here so one broken mapping cannot take down the batch.
func (c *Coordinator) scanOne(ctx context.Context, mapping schema.RepositoryMapping, opts schema.BatchOptions) (outcome scanOneOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = scanOneOutcome{kind: scanOneFailed, reason: fmt.Sprintf("panic during scan: %v", r)}
		}
	}()

	now := timeNow()

	if !opts.ForceRefresh {
		entry, err := c.store.GetEntry(ctx, mapping.ID)
		if err == nil && entry.IsFresh(now, opts.SkipWindow) {
			return scanOneOutcome{kind: scanOneSkipped}
		}
	}

	scanned := c.scanner.Scan(ctx, mapping.LocalPath, opts.Scan)

	switch scanned.Kind {
	case schema.ScanNotARepository:
		c.recordFailure(ctx, mapping, ReasonNotARepository, false, nil, now)
		return scanOneOutcome{kind: scanOneFailed, reason: ReasonNotARepository}

	case schema.ScanEmptyRepository:
		// The repository is real; keep its probed branch and head so the
		// snapshot can still show it.
		c.recordFailure(ctx, mapping, ReasonEmptyHistory, true, scanned.State, now)
		return scanOneOutcome{kind: scanOneFailed, reason: ReasonEmptyHistory}

	case schema.ScanFailed:
		c.recordFailure(ctx, mapping, scanned.Err, true, scanned.State, now)
		return scanOneOutcome{kind: scanOneFailed, reason: scanned.Err}
	}

	entry := &schema.CacheEntry{
		MappingID:         mapping.ID,
		ProjectID:         mapping.ProjectID,
		LocalPath:         mapping.LocalPath,
		Commits:           scanned.History.Commits,
		Branches:          scanned.History.Branches,
		Remotes:           scanned.History.Remotes,
		Contributors:      scanned.Contributors,
		Summary:           scanned.Summary,
		State:             scanned.State,
		IsValidRepository: true,
		LastUpdatedAt:     now,
	}
	if err := c.store.UpsertEntry(ctx, entry); err != nil {
		// The scan itself succeeded; the staleness detector retries the
		// durable write on its next pass.
		contract.LogWarn(fmt.Sprintf("persisting scan for %s", mapping.LocalPath), err)
	}

	return scanOneOutcome{
		kind:         scanOneSuccess,
		commits:      len(entry.Commits),
		branches:     len(entry.Branches),
		contributors: len(entry.Contributors),
	}
}

func (c *Coordinator) recordFailure(ctx context.Context, mapping schema.RepositoryMapping, reason string, valid bool, state *schema.RepoState, now time.Time) {
	if err := c.store.RecordScanFailure(ctx, mapping, reason, valid, state, now); err != nil {
		contract.LogWarn(fmt.Sprintf("recording scan failure for %s", mapping.LocalPath), err)
	}
}
