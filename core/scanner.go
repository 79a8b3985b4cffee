package core

import (
	"context"
	"errors"
	"sort"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"
)

// Scanner reads one repository's state and history through a Git client and
// normalizes the result into a tagged ScanOutcome. It owns no state and is
// safe for concurrent use.
type Scanner struct {
	client contract.GitClient
}

// NewScanner returns a scanner backed by the given Git client.
func NewScanner(client contract.GitClient) *Scanner {
	return &Scanner{client: client}
}

// Scan probes the path and, when it is a valid repository, reads its full
// history up to opts.MaxCommits. The outcome kind is always one of
// NotARepository, EmptyRepository, Success or ScanFailed; errors from the
// underlying tool never propagate as Go errors.
func (s *Scanner) Scan(ctx context.Context, path string, opts schema.ScanOptions) schema.ScanOutcome {
	if opts.MaxCommits <= 0 {
		opts.MaxCommits = schema.DefaultMaxCommits
	}

	state, err := s.client.ProbeState(ctx, path)
	if err != nil {
		if errors.Is(err, contract.ErrNotARepository) {
			return schema.ScanOutcome{Kind: schema.ScanNotARepository}
		}
		return schema.ScanOutcome{Kind: schema.ScanFailed, Err: err.Error()}
	}

	history, err := s.client.ReadHistory(ctx, path, schema.HistoryOptions{
		MaxCommits:      opts.MaxCommits,
		IncludeBranches: opts.IncludeBranches,
		IncludeRemotes:  opts.IncludeRemotes,
		IncludeStats:    opts.IncludeStats,
	})
	if err != nil {
		if errors.Is(err, contract.ErrNotARepository) {
			return schema.ScanOutcome{Kind: schema.ScanNotARepository}
		}
		return schema.ScanOutcome{Kind: schema.ScanFailed, State: state, Err: err.Error()}
	}

	if len(history.Commits) == 0 {
		return schema.ScanOutcome{Kind: schema.ScanEmptyRepository, State: state}
	}

	// The client caps history depth itself; this guard holds when a backend
	// returns more than asked for.
	if len(history.Commits) > opts.MaxCommits {
		history.Commits = history.Commits[:opts.MaxCommits]
	}

	contributors := buildContributors(history.Commits)
	summary := summarizeActivity(history.Commits)

	return schema.ScanOutcome{
		Kind:         schema.ScanSuccess,
		State:        state,
		History:      history,
		Contributors: contributors,
		Summary:      summary,
	}
}

// buildContributors groups commits by author email and aggregates per-author
// counts, ordered by commit count descending with email as tiebreaker.
func buildContributors(commits []schema.CommitRecord) []schema.ContributorSummary {
	byEmail := make(map[string]*schema.ContributorSummary)
	order := make([]string, 0)

	for _, c := range commits {
		email := c.Author.Email
		summary, ok := byEmail[email]
		if !ok {
			summary = &schema.ContributorSummary{Email: email, Name: c.Author.Name}
			byEmail[email] = summary
			order = append(order, email)
		}
		summary.CommitCount++
		if c.Date.After(summary.LastCommitDate) {
			summary.LastCommitDate = c.Date
			summary.Name = c.Author.Name // Latest spelling of the name wins
		}
		if c.Stats != nil {
			summary.TotalAdditions += c.Stats.Additions
			summary.TotalDeletions += c.Stats.Deletions
		}
	}

	contributors := make([]schema.ContributorSummary, 0, len(order))
	for _, email := range order {
		contributors = append(contributors, *byEmail[email])
	}
	sort.SliceStable(contributors, func(i, j int) bool {
		if contributors[i].CommitCount != contributors[j].CommitCount {
			return contributors[i].CommitCount > contributors[j].CommitCount
		}
		return contributors[i].Email < contributors[j].Email
	})
	return contributors
}

// summarizeActivity computes repository-wide aggregates from one history
// read, including commit counts within the recent-activity window.
func summarizeActivity(commits []schema.CommitRecord) schema.ActivitySummary {
	summary := schema.ActivitySummary{TotalCommits: len(commits)}
	if len(commits) == 0 {
		return summary
	}

	cutoff := timeNow().Add(-schema.RecentActivityWindow)
	summary.FirstCommitDate = commits[0].Date
	summary.LastCommitDate = commits[0].Date

	for _, c := range commits {
		if c.Date.Before(summary.FirstCommitDate) {
			summary.FirstCommitDate = c.Date
		}
		if c.Date.After(summary.LastCommitDate) {
			summary.LastCommitDate = c.Date
		}
		if c.Date.After(cutoff) {
			summary.RecentCommits++
		}
		if c.Stats != nil {
			summary.TotalAdditions += c.Stats.Additions
			summary.TotalDeletions += c.Stats.Deletions
		}
	}
	return summary
}
