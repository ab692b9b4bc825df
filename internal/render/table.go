package render

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	borderColor   = lipgloss.AdaptiveColor{Light: "#555", Dark: "#555"}
	selectedColor = lipgloss.AdaptiveColor{Light: "0", Dark: "9"}
	hotColor      = lipgloss.AdaptiveColor{Light: "#005f87", Dark: "#5fd7ff"}

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	cursorStyle = cellStyle.Foreground(selectedColor).Bold(true)
	hotStyle    = cellStyle.Foreground(hotColor)
	activeStyle = headerStyle.Underline(true)
)

// Cursor marks the focused row and column of an interactive table. -1
// means none.
type Cursor struct {
	Row    int
	Column int
}

// NoCursor is the cursor of non-interactive output.
var NoCursor = Cursor{Row: -1, Column: -1}

// Render draws the grid as a bordered table.
func (g Grid) Render(cursor Cursor) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(g.Headers()...).
		Rows(g.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				if col == cursor.Column+PrefixColumns {
					return activeStyle
				}
				return headerStyle
			}
			if row == cursor.Row {
				return cursorStyle
			}
			if heat, ok := g.Heat[[2]int{row, col}]; ok && heat >= 0.5 {
				return hotStyle
			}
			return cellStyle
		})
	return t.Render()
}

// String draws the grid without a cursor.
func (g Grid) String() string {
	return g.Render(NoCursor)
}

// Table draws plain rows under headers, for listings that are not run grids.
func Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}
