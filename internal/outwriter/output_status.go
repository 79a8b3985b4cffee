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
)

// WriteHealth outputs a project's cache health summary.
func (ow *OutWriter) WriteHealth(health schema.ProjectCacheHealth, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, health)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			header := []string{"project_id", "total", "healthy", "stale", "errored", "avg_age_seconds"}
			return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
				return csvWriter.Write([]string{
					health.ProjectID,
					strconv.Itoa(health.TotalRepositories),
					strconv.Itoa(health.HealthyRepositories),
					strconv.Itoa(health.StaleRepositories),
					strconv.Itoa(health.ErroredRepositories),
					strconv.FormatInt(int64(health.AverageCacheAge/time.Second), 10),
				})
			})
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHealthTable(w, health, cfg)
		}, "Wrote table")
	}
}

func writeHealthTable(w io.Writer, health schema.ProjectCacheHealth, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Status", "Repositories"})

	rows := []struct {
		label string
		count int
	}{
		{contract.OKValue, health.HealthyRepositories},
		{"STALE", health.StaleRepositories},
		{contract.FailValue, health.ErroredRepositories},
	}
	for _, r := range rows {
		if err := table.Append([]string{contract.ColorLabel(r.label, cfg.UseColors), strconv.Itoa(r.count)}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Project %s: %d repositories, average cache age %v (oldest %s, newest %s)\n",
		health.ProjectID,
		health.TotalRepositories,
		health.AverageCacheAge.Round(time.Second),
		formatMaybeTime(health.OldestCacheTime),
		formatMaybeTime(health.NewestCacheTime))
	return err
}

// WriteRefreshStats outputs the staleness scheduler's observability state.
func (ow *OutWriter) WriteRefreshStats(stats schema.RefreshStats, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, stats)
		}, "Wrote JSON")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			table := tablewriter.NewWriter(w)
			table.Header([]string{"Total", "Stale", "Refreshed", "Failed"})
			row := []string{
				strconv.Itoa(stats.TotalRepositories),
				strconv.Itoa(stats.StaleRepositories),
				strconv.Itoa(stats.RefreshedRepositories),
				strconv.Itoa(stats.FailedRepositories),
			}
			if err := table.Append(row); err != nil {
				return err
			}
			if err := table.Render(); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "Last refresh %s, next refresh %s\n",
				formatMaybeTime(stats.LastRefreshTime), formatMaybeTime(stats.NextRefreshTime))
			return err
		}, "Wrote table")
	}
}

// WriteMappings outputs the registered repository mappings.
func (ow *OutWriter) WriteMappings(mappings []schema.RepositoryMapping, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, mappings)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			header := []string{"id", "project_id", "user_id", "local_path", "created_at"}
			return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
				for _, m := range mappings {
					row := []string{m.ID, m.ProjectID, m.UserID, m.LocalPath, m.CreatedAt.Format(contract.DateTimeFormat)}
					if err := csvWriter.Write(row); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			table := tablewriter.NewWriter(w)
			table.Header([]string{"ID", "Project", "Path", "Created"})
			maxPath := getMaxTablePathWidth(cfg)
			for _, m := range mappings {
				row := []string{
					m.ID,
					m.ProjectID,
					contract.TruncatePath(m.LocalPath, maxPath),
					m.CreatedAt.Format("2006-01-02"),
				}
				if err := table.Append(row); err != nil {
					return err
				}
			}
			if err := table.Render(); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "%d mappings\n", len(mappings))
			return err
		}, "Wrote table")
	}
}

// WriteStoreStatus outputs durable store connection and volume information.
func (ow *OutWriter) WriteStoreStatus(status schema.StoreStatus, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, status)
		}, "Wrote JSON")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			connected := contract.FailValue
			if status.Connected {
				connected = contract.OKValue
			}
			table := tablewriter.NewWriter(w)
			table.Header([]string{"Backend", "Connected", "Mappings", "Entries", "Size (bytes)"})
			row := []string{
				status.Backend,
				contract.ColorLabel(connected, cfg.UseColors),
				strconv.Itoa(status.TotalMappings),
				strconv.Itoa(status.TotalEntries),
				strconv.FormatInt(status.TableSizeBytes, 10),
			}
			if err := table.Append(row); err != nil {
				return err
			}
			if err := table.Render(); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "Newest entry %s, oldest entry %s\n",
				formatMaybeTime(status.LastEntryTime), formatMaybeTime(status.OldestEntryTime))
			return err
		}, "Wrote table")
	}
}

// formatMaybeTime renders a timestamp, or a dash when it was never set.
func formatMaybeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(contract.DateTimeFormat)
}
