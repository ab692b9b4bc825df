package viewutil

import (
	"strings"

	"github.com/imishinist/mlflow-runs/internal/models"
)

type valueKind int

const (
	kindUndefined valueKind = iota
	kindNumber
	kindText
)

// SortValue is the value a run is compared by under the current sort. The
// zero value is undefined, which orders before every defined value.
type SortValue struct {
	kind valueKind
	num  float64
	text string
}

func NumberValue(v float64) SortValue { return SortValue{kind: kindNumber, num: v} }
func TextValue(s string) SortValue    { return SortValue{kind: kindText, text: s} }

func (v SortValue) IsDefined() bool { return v.kind != kindUndefined }

// CompareSortValues returns -1, 0 or 1. Undefined sorts before defined, and
// numbers sort before text.
func CompareSortValues(a, b SortValue) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case kindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
	case kindText:
		return strings.Compare(a.text, b.text)
	}
	return 0
}

// ComputeSortValue resolves the value of the sort column for one run. Metric
// and param columns read their maps; anything else names a run metadata
// field or, failing that, a tag.
func ComputeSortValue(
	sort models.SortState,
	metrics map[string]models.Metric,
	params map[string]models.Param,
	info models.RunRecord,
	tags map[string]string,
) SortValue {
	switch {
	case sort.IsMetric:
		if m, ok := metrics[sort.Key]; ok {
			return NumberValue(m.Value)
		}
		return SortValue{}
	case sort.IsParam:
		if p, ok := params[sort.Key]; ok {
			return TextValue(p.Value)
		}
		return SortValue{}
	}

	switch sort.Key {
	case models.SortKeyStartTime:
		return millis(info.StartTime)
	case models.SortKeyEndTime:
		return millis(info.EndTime)
	case models.SortKeyUser:
		return text(info.UserID)
	case models.SortKeyStatus:
		return text(string(info.Status))
	case models.SortKeySource:
		return text(info.SourceName)
	case models.SortKeySourceVersion:
		return text(info.SourceVersion)
	case models.SortKeyRunID:
		return text(info.RunID)
	case models.SortKeyRunName:
		if info.RunName != "" {
			return TextValue(info.RunName)
		}
		return text(tags[models.TagRunName])
	}
	key := strings.TrimPrefix(sort.Key, "tags.")
	if v, ok := tags[key]; ok {
		return TextValue(v)
	}
	return SortValue{}
}

func millis(v int64) SortValue {
	if v == 0 {
		return SortValue{}
	}
	return NumberValue(float64(v))
}

func text(s string) SortValue {
	if s == "" {
		return SortValue{}
	}
	return TextValue(s)
}

// RunDisplayName is the label of a run: its name, the run name tag, or a
// placeholder built from the id.
func RunDisplayName(info models.RunRecord, tags map[string]string) string {
	if info.RunName != "" {
		return info.RunName
	}
	if name := tags[models.TagRunName]; name != "" {
		return name
	}
	return "Run " + info.RunID
}
