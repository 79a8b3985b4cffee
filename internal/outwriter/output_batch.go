package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteBatchResult outputs one coordinator pass, dispatching based on the
// output format configured.
func (ow *OutWriter) WriteBatchResult(result schema.BatchResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBatchCSV(w, result)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBatchTable(w, result, cfg, duration)
		}, "Wrote table")
	}
}

// writeBatchCSV emits one row per visited mapping outcome class plus per
// failure detail rows.
func writeBatchCSV(w io.Writer, result schema.BatchResult) error {
	header := []string{"metric", "value", "mapping_id", "local_path", "error"}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		rows := [][]string{
			{"successful", strconv.Itoa(result.Successful), "", "", ""},
			{"failed", strconv.Itoa(result.Failed), "", "", ""},
			{"skipped", strconv.Itoa(result.Skipped), "", "", ""},
			{"total_commits", strconv.Itoa(result.TotalCommits), "", "", ""},
			{"total_branches", strconv.Itoa(result.TotalBranches), "", "", ""},
			{"total_contributors", strconv.Itoa(result.TotalContributors), "", "", ""},
		}
		for _, e := range result.Errors {
			rows = append(rows, []string{"error", "", e.MappingID, e.LocalPath, e.Reason})
		}
		for _, row := range rows {
			if err := csvWriter.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeBatchTable generates the human-readable summary and failure tables.
func writeBatchTable(w io.Writer, result schema.BatchResult, cfg *contract.Config, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Scanned", "Failed", "Skipped", "Commits", "Branches", "Contributors"})
	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.Global = tw.AlignRight
	})

	label := contract.OKValue
	if result.Failed > 0 {
		label = contract.FailValue
	}
	row := []string{
		strconv.Itoa(result.Successful),
		strconv.Itoa(result.Failed),
		strconv.Itoa(result.Skipped),
		strconv.Itoa(result.TotalCommits),
		strconv.Itoa(result.TotalBranches),
		strconv.Itoa(result.TotalContributors),
	}
	if err := table.Append(row); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(result.Errors) > 0 {
		errTable := tablewriter.NewWriter(w)
		errTable.Header([]string{"Path", "Error"})
		maxPath := getMaxTablePathWidth(cfg)
		for _, e := range result.Errors {
			if err := errTable.Append([]string{contract.TruncatePath(e.LocalPath, maxPath), e.Reason}); err != nil {
				return err
			}
		}
		if err := errTable.Render(); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "Batch %s: %d repositories in %v\n",
		contract.ColorLabel(label, cfg.UseColors), result.Total(), duration)
	return err
}
