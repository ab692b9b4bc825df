package viewstate

import "github.com/imishinist/mlflow-runs/internal/models"

// AddBagged collapses a column back into the shared summary cell by removing
// it from the unbagged list. It is a no-op when the column is already
// bagged.
func AddBagged(state *models.ViewState, isParam bool, column string) {
	list := unbaggedList(state, isParam)
	out := (*list)[:0:0]
	for _, k := range *list {
		if k != column {
			out = append(out, k)
		}
	}
	*list = out
}

// RemoveBagged splits a column out into its own table column. A column
// already split out keeps its position.
func RemoveBagged(state *models.ViewState, isParam bool, column string) {
	list := unbaggedList(state, isParam)
	for _, k := range *list {
		if k == column {
			return
		}
	}
	*list = append(append([]string{}, *list...), column)
}

// IsUnbagged reports whether column has its own table column.
func IsUnbagged(state models.ViewState, isParam bool, column string) bool {
	list := state.UnbaggedMetrics
	if isParam {
		list = state.UnbaggedParams
	}
	for _, k := range list {
		if k == column {
			return true
		}
	}
	return false
}

func unbaggedList(state *models.ViewState, isParam bool) *[]string {
	if isParam {
		return &state.UnbaggedParams
	}
	return &state.UnbaggedMetrics
}
