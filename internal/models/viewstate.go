package models

// Run metadata sort keys.
const (
	SortKeyStartTime     = "start_time"
	SortKeyEndTime       = "end_time"
	SortKeyUser          = "user_id"
	SortKeyStatus        = "status"
	SortKeyRunName       = "run_name"
	SortKeySource        = "source"
	SortKeySourceVersion = "source_version"
	SortKeyRunID         = "run_id"
)

// SortState names the single column the run table is sorted by. At most one
// of IsMetric and IsParam is set; when neither is, Key names a run metadata
// field.
type SortState struct {
	Key       string `json:"key" yaml:"key"`
	IsMetric  bool   `json:"isMetric" yaml:"isMetric"`
	IsParam   bool   `json:"isParam" yaml:"isParam"`
	Ascending bool   `json:"ascending" yaml:"ascending"`
}

// SameColumn reports whether s sorts by the given column, ignoring direction.
func (s SortState) SameColumn(isMetric, isParam bool, key string) bool {
	return s.IsMetric == isMetric && s.IsParam == isParam && s.Key == key
}

func DefaultSortState() SortState {
	return SortState{Key: SortKeyStartTime}
}

// ViewState is the part of the run table state that survives reloads.
type ViewState struct {
	Sort                 SortState       `json:"sort" yaml:"sort"`
	RunsExpanded         map[string]bool `json:"runsExpanded" yaml:"runsExpanded"`
	RunsHiddenByExpander map[string]bool `json:"runsHiddenByExpander" yaml:"runsHiddenByExpander"`
	// Unbagged columns are kept as ordered lists so that splitting out a new
	// column does not reorder the ones already split out.
	UnbaggedParams   []string `json:"unbaggedParams" yaml:"unbaggedParams"`
	UnbaggedMetrics  []string `json:"unbaggedMetrics" yaml:"unbaggedMetrics"`
	ShowMultiColumns bool     `json:"showMultiColumns" yaml:"showMultiColumns"`
}

func DefaultViewState() ViewState {
	return ViewState{
		Sort:                 DefaultSortState(),
		RunsExpanded:         map[string]bool{},
		RunsHiddenByExpander: map[string]bool{},
		UnbaggedParams:       []string{},
		UnbaggedMetrics:      []string{},
		ShowMultiColumns:     true,
	}
}

// Clone returns a deep copy.
func (v ViewState) Clone() ViewState {
	out := v
	out.RunsExpanded = cloneBoolMap(v.RunsExpanded)
	out.RunsHiddenByExpander = cloneBoolMap(v.RunsHiddenByExpander)
	out.UnbaggedParams = append([]string{}, v.UnbaggedParams...)
	out.UnbaggedMetrics = append([]string{}, v.UnbaggedMetrics...)
	return out
}

// PageState holds the committed search inputs of an experiment page.
type PageState struct {
	ParamKeyFilterString  string `json:"paramKeyFilterString" yaml:"paramKeyFilterString"`
	MetricKeyFilterString string `json:"metricKeyFilterString" yaml:"metricKeyFilterString"`
	SearchInput           string `json:"searchInput" yaml:"searchInput"`
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
