// Package csvexport writes the displayed runs as CSV.
package csvexport

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/imishinist/mlflow-runs/internal/models"
)

// RunColumns are the leading columns of a runs export.
var RunColumns = []string{"Run ID", "Name", "Source Type", "Source Name", "User", "Status"}

// Escape quotes s when it contains a comma, a double quote, or a line
// break. Embedded double quotes are doubled.
func Escape(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// TableToCSV renders a header row and data rows. Every row, the last one
// included, ends with a newline.
func TableToCSV(columns []string, rows [][]string) string {
	var b strings.Builder
	// strings.Builder never fails
	_ = writeTable(&b, columns, rows)
	return b.String()
}

func writeTable(w io.Writer, columns []string, rows [][]string) error {
	if err := writeRow(w, columns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writeRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(w io.Writer, row []string) error {
	cells := make([]string, len(row))
	for i, cell := range row {
		cells[i] = Escape(cell)
	}
	_, err := io.WriteString(w, strings.Join(cells, ",")+"\n")
	return err
}

// RunsToCSV renders runIDs from set with one column per param and metric
// key. Values a run doesn't report are left empty.
func RunsToCSV(set *models.RunSet, runIDs, paramKeys, metricKeys []string) string {
	columns, rows := runsTable(set, runIDs, paramKeys, metricKeys)
	return TableToCSV(columns, rows)
}

// WriteRunsCSV streams the same document RunsToCSV builds.
func WriteRunsCSV(w io.Writer, set *models.RunSet, runIDs, paramKeys, metricKeys []string) error {
	columns, rows := runsTable(set, runIDs, paramKeys, metricKeys)
	if err := writeTable(w, columns, rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func runsTable(set *models.RunSet, runIDs, paramKeys, metricKeys []string) ([]string, [][]string) {
	columns := make([]string, 0, len(RunColumns)+len(paramKeys)+len(metricKeys))
	columns = append(columns, RunColumns...)
	columns = append(columns, paramKeys...)
	columns = append(columns, metricKeys...)

	rows := make([][]string, 0, len(runIDs))
	for _, id := range runIDs {
		info := set.Infos[id]
		tags := set.Tags[id]
		row := make([]string, 0, len(columns))
		row = append(row,
			id,
			firstNonEmpty(info.RunName, tags[models.TagRunName]),
			firstNonEmpty(tags[models.TagSourceType], info.SourceType),
			firstNonEmpty(tags[models.TagSourceName], info.SourceName),
			firstNonEmpty(tags[models.TagUser], info.UserID),
			string(info.Status),
		)
		params := set.Params[id]
		for _, k := range paramKeys {
			row = append(row, params[k].Value)
		}
		metrics := set.Metrics[id]
		for _, k := range metricKeys {
			m, ok := metrics[k]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, FormatMetric(m.Value))
		}
		rows = append(rows, row)
	}
	return columns, rows
}

// FormatMetric prints a metric value in its shortest exact form.
func FormatMetric(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
