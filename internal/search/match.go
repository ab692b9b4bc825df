package search

import "github.com/imishinist/mlflow-runs/internal/models"

// Target is the data of one run a clause is evaluated against.
type Target struct {
	Info    models.RunRecord
	Params  map[string]models.Param
	Metrics map[string]models.Metric
	Tags    map[string]string
}

// Matches reports whether the run satisfies every clause. A clause on a key
// the run does not report never matches.
func Matches(clauses []Clause, t Target) bool {
	for _, c := range clauses {
		if !matchClause(c, t) {
			return false
		}
	}
	return true
}

// FilterRuns keeps the runs of set matching clauses, preserving order.
func FilterRuns(set *models.RunSet, clauses []Clause) []string {
	var out []string
	for _, id := range set.Order {
		t := Target{Info: set.Infos[id], Params: set.Params[id], Metrics: set.Metrics[id], Tags: set.Tags[id]}
		if Matches(clauses, t) {
			out = append(out, id)
		}
	}
	return out
}

func matchClause(c Clause, t Target) bool {
	switch c.Type {
	case TypeMetric:
		m, ok := t.Metrics[c.Key]
		if !ok {
			return false
		}
		return compareNumbers(m.Value, c.Comparator, c.Number)
	case TypeParam:
		p, ok := t.Params[c.Key]
		if !ok {
			return false
		}
		return compareStrings(p.Value, c.Comparator, c.Value)
	case TypeTag:
		v, ok := t.Tags[c.Key]
		if !ok {
			return false
		}
		return compareStrings(v, c.Comparator, c.Value)
	case TypeAttribute:
		return compareStrings(attribute(t.Info, c.Key), c.Comparator, c.Value)
	}
	return false
}

func attribute(info models.RunRecord, key string) string {
	switch key {
	case "status":
		return string(info.Status)
	case "artifact_uri":
		return info.ArtifactURI
	case "user_id":
		return info.UserID
	case "run_name":
		return info.RunName
	case "run_id":
		return info.RunID
	}
	return ""
}

func compareNumbers(lhs float64, op string, rhs float64) bool {
	switch op {
	case ">":
		return lhs > rhs
	case ">=":
		return lhs >= rhs
	case "=":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	case "<=":
		return lhs <= rhs
	case "<":
		return lhs < rhs
	}
	return false
}

func compareStrings(lhs, op, rhs string) bool {
	switch op {
	case "=":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	}
	return false
}
