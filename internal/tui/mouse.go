package tui

import (
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// Screen rows of the list layout, counted from the outer border.
const (
	inputRow       = 5
	tableHeaderRow = 7
)

// returns the column index at x pixels, or -1 if not found.
func getColumnAtX(x int, cols []table.Column) int {
	currentX := 0
	for i, col := range cols {
		colWidth := col.Width + 2
		if x >= currentX && x < currentX+colWidth {
			return i
		}
		currentX += colWidth
	}
	return -1
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.table.MoveUp(1)
		m.updateDetail()
	case tea.MouseButtonWheelDown:
		m.table.MoveDown(1)
		m.updateDetail()
	case tea.MouseButtonLeft:
		switch {
		case msg.Y == inputRow:
			m.input.Focus()
		case msg.Y == tableHeaderRow:
			m.input.Blur()
			m.handleHeaderClick(msg.X - 2)
		default:
			m.input.Blur()
		}
	}
	return m, nil
}

func (m *Model) handleHeaderClick(x int) {
	idx := getColumnAtX(x, m.table.Columns())
	if idx < 0 || idx >= len(columnSortKeys) || columnSortKeys[idx] == "" {
		return
	}
	m.toggleSort(columnSortKeys[idx])
}
