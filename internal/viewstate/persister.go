package viewstate

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/imishinist/mlflow-runs/internal/models"
)

// Item keys inside an experiment scope.
const (
	ViewStateKey = "ExperimentView"
	PageStateKey = "ExperimentPage"
)

// Persister loads and saves the state of one experiment scope.
type Persister struct {
	store  Store
	scope  string
	logger zerolog.Logger
}

func NewPersister(store Store, scope string, logger zerolog.Logger) *Persister {
	return &Persister{store: store, scope: scope, logger: logger}
}

// LoadView returns the stored view state merged onto the defaults. Fields
// missing from the stored record keep their default values.
func (p *Persister) LoadView() models.ViewState {
	state := models.DefaultViewState()
	if !p.load(ViewStateKey, &state) {
		return models.DefaultViewState()
	}
	normalizeView(&state)
	return state
}

// SaveView stores the view state. Failures are logged, never returned.
func (p *Persister) SaveView(state models.ViewState) {
	p.save(ViewStateKey, state)
}

// LoadPage returns the stored page state, or the zero value.
func (p *Persister) LoadPage() models.PageState {
	var state models.PageState
	if !p.load(PageStateKey, &state) {
		return models.PageState{}
	}
	return state
}

func (p *Persister) SavePage(state models.PageState) {
	p.save(PageStateKey, state)
}

func (p *Persister) load(key string, into any) bool {
	if p == nil || p.store == nil {
		return false
	}
	data, err := p.store.GetItem(p.scope, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		p.logger.Debug().Err(err).Str("scope", p.scope).Str("key", key).Msg("can't read view state, using defaults")
		return false
	}
	if err := json.Unmarshal(data, into); err != nil {
		p.logger.Debug().Err(err).Str("scope", p.scope).Str("key", key).Msg("can't decode view state, using defaults")
		return false
	}
	return true
}

func (p *Persister) save(key string, value any) {
	if p == nil || p.store == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("can't encode view state")
		return
	}
	if err := p.store.SetItem(p.scope, key, data); err != nil {
		p.logger.Debug().Err(err).Str("scope", p.scope).Str("key", key).Msg("can't persist view state")
	}
}

// normalizeView repairs values a stored record may carry: explicit nulls
// and duplicate unbagged columns.
func normalizeView(state *models.ViewState) {
	if state.RunsExpanded == nil {
		state.RunsExpanded = map[string]bool{}
	}
	if state.RunsHiddenByExpander == nil {
		state.RunsHiddenByExpander = map[string]bool{}
	}
	state.UnbaggedParams = dedupe(state.UnbaggedParams)
	state.UnbaggedMetrics = dedupe(state.UnbaggedMetrics)
	if state.Sort.Key == "" {
		state.Sort = models.DefaultSortState()
	}
	if state.Sort.IsMetric && state.Sort.IsParam {
		state.Sort.IsParam = false
	}
}

func dedupe(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
