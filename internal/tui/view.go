package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/imishinist/mlflow-runs/internal/render"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#005f87", Dark: "#5fd7ff"})
)

func (m *Model) View() string {
	mode := "grid"
	if !m.ctrl.View().ShowMultiColumns {
		mode = "compact"
	}
	title := fmt.Sprintf("experiment %s · %s runs · %s view · %d selected",
		m.experimentID, m.ctrl.Lifecycle(), mode, len(m.ctrl.Selected()))
	if m.loading {
		title += " · loading…"
	}
	parts := []string{titleStyle.Render(title), faintStyle.Render(m.filterSummary())}

	if m.mode != inputNone {
		parts = append(parts, m.inputLabel()+" "+m.input.View())
	}
	if msg := m.ctrl.SearchError(); msg != "" {
		parts = append(parts, errStyle.Render(msg))
	}
	if m.err != nil {
		parts = append(parts, errStyle.Render("ERROR: "+m.err.Error()))
	}

	if len(m.grid.RunIDs) == 0 {
		parts = append(parts, faintStyle.Render("No runs."))
	} else {
		parts = append(parts, m.grid.Render(render.Cursor{Row: m.cursorRow, Column: m.cursorCol}))
	}
	if m.status != "" {
		parts = append(parts, statusStyle.Render(m.status))
	}
	parts = append(parts, m.help.View(keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) filterSummary() string {
	s := "search: " + orDash(m.ctrl.SearchInput())
	s += "  params: " + orDash(m.ctrl.ParamFilterInput())
	s += "  metrics: " + orDash(m.ctrl.MetricFilterInput())
	return s
}

func (m *Model) inputLabel() string {
	switch m.mode {
	case inputParams:
		return "params"
	case inputMetrics:
		return "metrics"
	default:
		return "search"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
