package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/charmbracelet/lipgloss"

	"github.com/imishinist/mlflow-runs/internal/csvexport"
	"github.com/imishinist/mlflow-runs/internal/models"
	timeutils "github.com/imishinist/mlflow-runs/internal/time"
	"github.com/imishinist/mlflow-runs/internal/viewutil"
)

var titleStyle = lipgloss.NewStyle().Bold(true)

// RunDetail draws the detail page of one run of set: metadata, the command
// that reproduces a project run, then its params, metrics and tags.
func RunDetail(set *models.RunSet, runID string) string {
	info := set.Infos[runID]
	tags := set.Tags[runID]

	var b strings.Builder
	b.WriteString(titleStyle.Render(viewutil.RunDisplayName(info, tags)))
	b.WriteString("\n")
	b.WriteString(Table([]string{"Field", "Value"}, runMetadata(info, tags)))
	b.WriteString("\n")

	if cmd := RunCommand(info, set.Params[runID], tags); cmd != "" {
		section(&b, "Run Command")
		b.WriteString(cmd)
		b.WriteString("\n")
	}

	section(&b, "Parameters")
	var params [][]string
	for _, k := range sortedKeys(set.Params[runID]) {
		params = append(params, []string{k, set.Params[runID][k].Value})
	}
	b.WriteString(Table([]string{"Name", "Value"}, params))
	b.WriteString("\n")

	section(&b, "Metrics")
	var metrics [][]string
	for _, k := range sortedKeys(set.Metrics[runID]) {
		metrics = append(metrics, []string{k, csvexport.FormatMetric(set.Metrics[runID][k].Value)})
	}
	b.WriteString(Table([]string{"Name", "Value"}, metrics))
	b.WriteString("\n")

	section(&b, "Tags")
	var tagRows [][]string
	for _, k := range sortedKeys(tags) {
		tagRows = append(tagRows, []string{k, tags[k]})
	}
	b.WriteString(Table([]string{"Name", "Value"}, tagRows))
	return b.String()
}

func section(b *strings.Builder, title string) {
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
}

func runMetadata(info models.RunRecord, tags map[string]string) [][]string {
	date := timeutils.FormatMillis(info.StartTime)
	if date == "" {
		date = "(unknown)"
	}
	rows := [][]string{
		{"Date", date},
		{"Run ID", info.RunID},
		{"Source", firstNonEmpty(tags[models.TagSourceName], info.SourceName)},
	}
	if v := firstNonEmpty(tags[models.TagSourceVersion], info.SourceVersion); v != "" {
		rows = append(rows, []string{"Git Commit", v})
	}
	if sourceType(info, tags) == "PROJECT" {
		rows = append(rows, []string{"Entry Point", firstNonEmpty(tags[models.TagEntryPoint], "main")})
	}
	rows = append(rows, []string{"User", firstNonEmpty(tags[models.TagUser], info.UserID)})
	if d := timeutils.FormatDuration(info.StartTime, info.EndTime); d != "" {
		rows = append(rows, []string{"Duration", d})
	}
	rows = append(rows,
		[]string{"Status", string(info.Status)},
		[]string{"Lifecycle", string(info.LifecycleStage)},
	)
	if info.ParentRunID != "" {
		rows = append(rows, []string{"Parent Run", info.ParentRunID})
	}
	if info.ArtifactURI != "" {
		rows = append(rows, []string{"Artifacts", info.ArtifactURI})
	}
	if url := tags[models.TagJobOutputURL]; url != "" {
		rows = append(rows, []string{"Job Output", url})
	}
	return rows
}

// RunCommand returns the `mlflow run` invocation that reproduces a project
// run, or "" for other sources. Params are passed sorted by key.
func RunCommand(info models.RunRecord, params map[string]models.Param, tags map[string]string) string {
	if sourceType(info, tags) != "PROJECT" {
		return ""
	}
	parts := []string{"mlflow", "run", shellescape.Quote(firstNonEmpty(tags[models.TagSourceName], info.SourceName))}
	if v := firstNonEmpty(tags[models.TagSourceVersion], info.SourceVersion); v != "" && v != "latest" {
		parts = append(parts, "-v", shellescape.Quote(v))
	}
	if e := tags[models.TagEntryPoint]; e != "" && e != "main" {
		parts = append(parts, "-e", shellescape.Quote(e))
	}
	for _, k := range sortedKeys(params) {
		parts = append(parts, "-P", shellescape.Quote(fmt.Sprintf("%s=%s", k, params[k].Value)))
	}
	return strings.Join(parts, " ")
}

func sourceType(info models.RunRecord, tags map[string]string) string {
	return firstNonEmpty(tags[models.TagSourceType], info.SourceType)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
