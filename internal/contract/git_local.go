package contract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/repowatch/repowatch/schema"
)

// logHeaderPrefix marks commit header lines in the scanner's log format.
const logHeaderPrefix = "--"

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command and returns its stdout output.
// A path without Git metadata yields ErrNotARepository.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		if strings.Contains(stderr, "not a git repository") {
			return nil, fmt.Errorf("%w: %s", ErrNotARepository, repoPath)
		}
		return nil, fmt.Errorf("git command failed in %q: %s", repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// ProbeState implements the GitClient interface. It captures the current
// branch, head, dirty state, ahead/behind counts, branch lists and remotes
// without reading commit history.
func (c *LocalGitClient) ProbeState(ctx context.Context, repoPath string) (*schema.RepoState, error) {
	branchOut, err := c.Run(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, err
	}

	state := &schema.RepoState{
		Branch:     strings.TrimSpace(string(branchOut)),
		RemoteURLs: map[string]string{},
	}

	// HEAD resolution fails on a repository with no commits yet; the probe
	// still succeeds with an empty head.
	if headOut, err := c.Run(ctx, repoPath, "rev-parse", "HEAD"); err == nil {
		state.Head = strings.TrimSpace(string(headOut))
	}

	statusOut, err := c.Run(ctx, repoPath, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	state.UncommittedFiles = ParsePorcelainStatus(statusOut)
	state.IsDirty = len(state.UncommittedFiles) > 0

	// No upstream configured is not an error; ahead/behind stay zero.
	if abOut, err := c.Run(ctx, repoPath, "rev-list", "--left-right", "--count", "@{upstream}...HEAD"); err == nil {
		state.Behind, state.Ahead = ParseAheadBehind(abOut)
	}

	if localOut, err := c.Run(ctx, repoPath, "for-each-ref", "--format=%(refname:short)", "refs/heads"); err == nil {
		state.LocalBranches = splitNonEmptyLines(localOut)
	}
	if remoteOut, err := c.Run(ctx, repoPath, "for-each-ref", "--format=%(refname:short)", "refs/remotes"); err == nil {
		state.RemoteBranches = splitNonEmptyLines(remoteOut)
	}

	if remotesOut, err := c.Run(ctx, repoPath, "remote", "-v"); err == nil {
		state.RemoteURLs = ParseRemotes(remotesOut)
	}

	return state, nil
}

// ReadHistory implements the GitClient interface. It reads up to
// opts.MaxCommits commits plus branches, remotes and tags when requested.
// A valid repository with zero commits yields a history with an empty
// commit list, not an error.
func (c *LocalGitClient) ReadHistory(ctx context.Context, repoPath string, opts schema.HistoryOptions) (*schema.RepoHistory, error) {
	history := &schema.RepoHistory{Remotes: map[string]string{}}

	maxCommits := opts.MaxCommits
	if maxCommits <= 0 {
		maxCommits = schema.DefaultMaxCommits
	}

	// An unborn HEAD means the repository has no commits yet; skip the log
	// call entirely rather than parsing its failure message.
	if _, err := c.Run(ctx, repoPath, "rev-parse", "--verify", "HEAD"); err == nil {
		args := []string{
			"log",
			"-n", strconv.Itoa(maxCommits),
			"--pretty=format:" + logHeaderPrefix + "%H|%an|%ae|%ad|%s",
			"--date=iso-strict",
		}
		if opts.IncludeStats {
			args = append(args, "--numstat")
		}
		out, err := c.Run(ctx, repoPath, args...)
		if err != nil {
			return nil, err
		}
		history.Commits = ParseLogOutput(out, opts.IncludeStats)
	} else if errors.Is(err, ErrNotARepository) {
		return nil, err
	}

	if opts.IncludeBranches {
		out, err := c.Run(ctx, repoPath, "for-each-ref",
			"--format=%(refname:short)|%(objectname)|%(refname)",
			"refs/heads", "refs/remotes")
		if err != nil {
			return nil, err
		}
		history.Branches = ParseBranchRefs(out)
	}

	if opts.IncludeRemotes {
		out, err := c.Run(ctx, repoPath, "remote", "-v")
		if err != nil {
			return nil, err
		}
		history.Remotes = ParseRemotes(out)
	}

	if tagsOut, err := c.Run(ctx, repoPath, "tag", "--list"); err == nil {
		history.Tags = splitNonEmptyLines(tagsOut)
	}

	return history, nil
}

// ParseLogOutput parses the scanner's git log format into commit records.
// Header lines look like "--<sha>|<author>|<email>|<date>|<subject>"; when
// stats are enabled each header is followed by numstat lines of the form
// "<additions>\t<deletions>\t<path>".
func ParseLogOutput(out []byte, includeStats bool) []schema.CommitRecord {
	var commits []schema.CommitRecord
	var current *schema.CommitRecord

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.Trim(line, " \r'")

		if strings.HasPrefix(line, logHeaderPrefix) {
			if current != nil {
				commits = append(commits, *current)
			}
			current = parseCommitHeader(line)
			if current != nil && includeStats {
				current.Stats = &schema.CommitStats{}
			}
			continue
		}
		if line == "" || current == nil || current.Stats == nil {
			continue
		}

		add, del, ok := parseNumstatLine(line)
		if !ok {
			continue
		}
		current.Stats.Additions += add
		current.Stats.Deletions += del
		current.Stats.FilesChanged++
	}
	if current != nil {
		commits = append(commits, *current)
	}

	return commits
}

// parseCommitHeader extracts one commit record from a header line, or nil
// when the line is malformed.
func parseCommitHeader(line string) *schema.CommitRecord {
	parts := strings.SplitN(strings.TrimPrefix(line, logHeaderPrefix), "|", 5)
	if len(parts) != 5 {
		return nil
	}
	record := &schema.CommitRecord{
		SHA:     parts[0],
		Message: parts[4],
		Author: schema.CommitAuthor{
			Name:  parts[1],
			Email: parts[2],
		},
	}
	if date, err := time.Parse(time.RFC3339, parts[3]); err == nil {
		record.Date = date
	}
	return record
}

// parseNumstatLine parses "<add>\t<del>\t<path>". Binary files report "-"
// for both columns and count as zero churn.
func parseNumstatLine(line string) (add, del int, ok bool) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) < 3 {
		return 0, 0, false
	}
	return parseChurnValue(parts[0]), parseChurnValue(parts[1]), true
}

// parseChurnValue converts a churn string to int, handling "-" as 0.
func parseChurnValue(s string) int {
	if s == "-" {
		return 0
	}
	if val, err := strconv.Atoi(s); err == nil && val >= 0 {
		return val
	}
	return 0
}

// ParsePorcelainStatus extracts the changed paths from `git status
// --porcelain` output.
func ParsePorcelainStatus(out []byte) []string {
	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if len(line) < 4 {
			continue
		}
		// Two status columns, a space, then the path.
		path := strings.TrimSpace(line[3:])
		if path != "" {
			files = append(files, path)
		}
	}
	return files
}

// ParseAheadBehind parses `git rev-list --left-right --count
// @{upstream}...HEAD` output: "<behind>\t<ahead>".
func ParseAheadBehind(out []byte) (behind, ahead int) {
	parts := strings.Fields(strings.TrimSpace(string(out)))
	if len(parts) != 2 {
		return 0, 0
	}
	behind, _ = strconv.Atoi(parts[0])
	ahead, _ = strconv.Atoi(parts[1])
	return behind, ahead
}

// ParseRemotes parses `git remote -v` output into a remote-name to
// fetch-URL map.
func ParseRemotes(out []byte) map[string]string {
	remotes := map[string]string{}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		// Fetch and push lines repeat the pair; first one wins.
		if _, seen := remotes[fields[0]]; !seen {
			remotes[fields[0]] = fields[1]
		}
	}
	return remotes
}

// ParseBranchRefs parses for-each-ref output over refs/heads and
// refs/remotes: "<short>|<sha>|<full-ref>".
func ParseBranchRefs(out []byte) []schema.BranchRecord {
	var branches []schema.BranchRecord
	for _, line := range strings.Split(string(out), "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "|", 3)
		if len(parts) != 3 {
			continue
		}
		branches = append(branches, schema.BranchRecord{
			Name:     parts[0],
			Head:     parts[1],
			IsLocal:  strings.HasPrefix(parts[2], "refs/heads/"),
			IsRemote: strings.HasPrefix(parts[2], "refs/remotes/"),
		})
	}
	return branches
}

// splitNonEmptyLines splits command output into trimmed, non-empty lines.
func splitNonEmptyLines(out []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
