package models

import "strings"

// Tag keys the tracking server uses for run metadata.
const (
	TagRunName       = "mlflow.runName"
	TagParentRunID   = "mlflow.parentRunId"
	TagUser          = "mlflow.user"
	TagSourceType    = "mlflow.source.type"
	TagSourceName    = "mlflow.source.name"
	TagSourceVersion = "mlflow.source.git.commit"
	TagNote          = "mlflow.note.content"
	TagEntryPoint    = "mlflow.project.entryPoint"
	TagJobOutputURL  = "mlflow.databricks.runURL"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusScheduled RunStatus = "SCHEDULED"
	RunStatusFinished  RunStatus = "FINISHED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusKilled    RunStatus = "KILLED"
)

type LifecycleStage string

const (
	LifecycleActive  LifecycleStage = "active"
	LifecycleDeleted LifecycleStage = "deleted"
)

// ParseLifecycleStage accepts the lowercase stage names as well as the
// "Active"/"Deleted" labels shown in the lifecycle dropdown.
func ParseLifecycleStage(s string) (LifecycleStage, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active":
		return LifecycleActive, true
	case "deleted":
		return LifecycleDeleted, true
	default:
		return "", false
	}
}

type Experiment struct {
	ExperimentID     string         `json:"experiment_id"`
	Name             string         `json:"name"`
	ArtifactLocation string         `json:"artifact_location"`
	LifecycleStage   LifecycleStage `json:"lifecycle_stage"`
	CreationTime     int64          `json:"creation_time"`
}

// RunRecord is the metadata of a single run. Times are unix milliseconds; 0
// means unknown.
type RunRecord struct {
	RunID          string         `json:"run_id"`
	ExperimentID   string         `json:"experiment_id"`
	ParentRunID    string         `json:"parent_run_id,omitempty"`
	RunName        string         `json:"run_name"`
	UserID         string         `json:"user_id"`
	Status         RunStatus      `json:"status"`
	LifecycleStage LifecycleStage `json:"lifecycle_stage"`
	StartTime      int64          `json:"start_time"`
	EndTime        int64          `json:"end_time,omitempty"`
	SourceType     string         `json:"source_type,omitempty"`
	SourceName     string         `json:"source_name,omitempty"`
	SourceVersion  string         `json:"source_version,omitempty"`
	ArtifactURI    string         `json:"artifact_uri,omitempty"`
}

// RunSet holds the runs of one search result in a flat arena keyed by run
// id. Parent/child links are id lookups only.
type RunSet struct {
	Order    []string
	Infos    map[string]RunRecord
	Params   map[string]map[string]Param
	Metrics  map[string]map[string]Metric
	Tags     map[string]map[string]string
	Children map[string][]string

	// orphans holds children whose parent has not been added yet, keyed by
	// parent id, in insertion order.
	orphans map[string][]string
}

func NewRunSet() *RunSet {
	return &RunSet{
		Infos:    make(map[string]RunRecord),
		Params:   make(map[string]map[string]Param),
		Metrics:  make(map[string]map[string]Metric),
		Tags:     make(map[string]map[string]string),
		Children: make(map[string][]string),
		orphans:  make(map[string][]string),
	}
}

// Add stores a run and its data. Adding a run id twice replaces the earlier
// record and keeps its position.
func (s *RunSet) Add(info RunRecord, params []Param, metrics []Metric, tags map[string]string) {
	prev, exists := s.Infos[info.RunID]
	if !exists {
		s.Order = append(s.Order, info.RunID)
	}
	if info.ParentRunID == "" && tags != nil {
		info.ParentRunID = tags[TagParentRunID]
	}
	s.Infos[info.RunID] = info

	paramMap := make(map[string]Param, len(params))
	for _, p := range params {
		paramMap[p.Key] = p
	}
	s.Params[info.RunID] = paramMap

	metricMap := make(map[string]Metric, len(metrics))
	for _, m := range metrics {
		if prev, ok := metricMap[m.Key]; ok && !m.After(prev) {
			continue
		}
		metricMap[m.Key] = m
	}
	s.Metrics[info.RunID] = metricMap

	if tags == nil {
		tags = map[string]string{}
	}
	s.Tags[info.RunID] = tags

	switch {
	case !exists:
		s.link(info.RunID, info.ParentRunID)
	case prev.ParentRunID != info.ParentRunID:
		s.relink()
	}
}

// link records a newly added run in the parent -> children table. A child
// is linked once its parent is in the set; children keep insertion order.
func (s *RunSet) link(id, parent string) {
	if s.Children == nil {
		s.Children = make(map[string][]string)
	}
	if s.orphans == nil {
		s.orphans = make(map[string][]string)
	}
	if waiting, ok := s.orphans[id]; ok {
		s.Children[id] = append(s.Children[id], waiting...)
		delete(s.orphans, id)
	}
	if parent == "" || parent == id {
		return
	}
	if _, ok := s.Infos[parent]; ok {
		s.Children[parent] = append(s.Children[parent], id)
		return
	}
	s.orphans[parent] = append(s.orphans[parent], id)
}

// relink rebuilds the parent -> children table from scratch.
func (s *RunSet) relink() {
	s.Children = make(map[string][]string)
	s.orphans = make(map[string][]string)
	for _, id := range s.Order {
		parent := s.Infos[id].ParentRunID
		if parent == "" || parent == id {
			continue
		}
		if _, ok := s.Infos[parent]; !ok {
			s.orphans[parent] = append(s.orphans[parent], id)
			continue
		}
		s.Children[parent] = append(s.Children[parent], id)
	}
}

// Subset returns a set holding the given runs of s, in the order of s.
// Unknown ids are ignored. Data maps are shared with s.
func (s *RunSet) Subset(runIDs []string) *RunSet {
	keep := make(map[string]bool, len(runIDs))
	for _, id := range runIDs {
		keep[id] = true
	}
	out := NewRunSet()
	for _, id := range s.Order {
		if !keep[id] {
			continue
		}
		out.Order = append(out.Order, id)
		out.Infos[id] = s.Infos[id]
		out.Params[id] = s.Params[id]
		out.Metrics[id] = s.Metrics[id]
		out.Tags[id] = s.Tags[id]
	}
	out.relink()
	return out
}

func (s *RunSet) Has(runID string) bool {
	_, ok := s.Infos[runID]
	return ok
}

func (s *RunSet) Len() int {
	return len(s.Order)
}

// ParamKeys returns the sorted union of param keys across all runs.
func (s *RunSet) ParamKeys() []string {
	seen := make(map[string]struct{})
	for _, params := range s.Params {
		for k := range params {
			seen[k] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// MetricKeys returns the sorted union of metric keys across all runs.
func (s *RunSet) MetricKeys() []string {
	seen := make(map[string]struct{})
	for _, metrics := range s.Metrics {
		for k := range metrics {
			seen[k] = struct{}{}
		}
	}
	return sortedKeys(seen)
}
