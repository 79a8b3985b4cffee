package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"

	"github.com/olekukonko/tablewriter"
)

const maxCommitSubject = 60

// WriteSnapshot outputs a project snapshot, dispatching based on the output
// format configured. The table view shows the most recent commits up to
// limit, newest first.
func (ow *OutWriter) WriteSnapshot(snapshot *schema.ProjectSnapshot, cfg *contract.Config, limit int) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, snapshot)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSnapshotCSV(w, snapshot)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSnapshotTable(w, snapshot, cfg, limit)
		}, "Wrote table")
	}
}

func writeSnapshotCSV(w io.Writer, snapshot *schema.ProjectSnapshot) error {
	header := []string{"repo", "sha", "author", "email", "date", "message"}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, c := range snapshot.Commits {
			row := []string{
				c.RepoName,
				c.SHA,
				c.Author.Name,
				c.Author.Email,
				c.Date.Format(contract.DateTimeFormat),
				c.Message,
			}
			if err := csvWriter.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeSnapshotTable(w io.Writer, snapshot *schema.ProjectSnapshot, cfg *contract.Config, limit int) error {
	commits := snapshot.Commits
	if limit > 0 && len(commits) > limit {
		commits = commits[:limit]
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Repo", "SHA", "Author", "Date", "Message"})
	for _, c := range commits {
		sha := c.SHA
		if len(sha) > 8 {
			sha = sha[:8]
		}
		subject := commitSubject(c.Message)
		if err := table.Append([]string{c.RepoName, sha, c.Author.Name, c.Date.Format("2006-01-02 15:04"), subject}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(snapshot.UncommittedChanges) > 0 {
		dirty := tablewriter.NewWriter(w)
		dirty.Header([]string{"Repo", "Branch", "Dirty Files"})
		for _, u := range snapshot.UncommittedChanges {
			if err := dirty.Append([]string{u.RepoName, u.Branch, strconv.Itoa(len(u.Files))}); err != nil {
				return err
			}
		}
		if err := dirty.Render(); err != nil {
			return err
		}
	}

	status := contract.OKValue
	if snapshot.Error != "" {
		status = contract.FailValue
	}
	_, err := fmt.Fprintf(w, "Project %s [%s]: %d commits, %d branches, %d contributors (updated %s)\n",
		snapshot.ProjectID,
		contract.ColorLabel(status, cfg.UseColors),
		len(snapshot.Commits),
		len(snapshot.Branches),
		len(snapshot.Users),
		snapshot.LastUpdated.Format(contract.DateTimeFormat))
	return err
}

// commitSubject returns the first line of a commit message, truncated for
// table display.
func commitSubject(message string) string {
	subject, _, _ := strings.Cut(message, "\n")
	if len(subject) > maxCommitSubject {
		return subject[:maxCommitSubject-3] + "..."
	}
	return subject
}
