package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading sockets..."
	}

	outerStyle := baseStyle.
		Width(m.width-2).
		Height(m.height-2).
		Padding(0, 1)

	status := fmt.Sprintf("Mode: Navigation (Press / to search) | Last snapshot: %d sockets, %d serving", m.observed, m.serving)
	switch {
	case m.lastErr != nil:
		status = errorStyle.Render(fmt.Sprintf("Snapshot failed, state kept: %v", m.lastErr))
	case m.input.Focused():
		status = "Mode: Searching (Press Esc/Enter to stop)"
	}

	availableWidth := m.width - 6
	listPaneWidth := int(float64(availableWidth) * 0.7)
	if listPaneWidth < 10 {
		listPaneWidth = 10
	}

	detailContainerStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color("#585858")). // Dark Gray
		PaddingLeft(2).
		Height(m.table.Height())

	detailHeader := "Details"
	if !m.detail.AtTop() && !m.detail.AtBottom() {
		detailHeader += " ↕"
	} else if !m.detail.AtTop() {
		detailHeader += " ↑"
	} else if !m.detail.AtBottom() {
		detailHeader += " ↓"
	}
	detailHeaderStyle := tableHeaderStyle.
		Width(m.detail.Width).
		Foreground(lipgloss.Color("#bcbcbc")) // Light Gray

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listPaneWidth).Render(m.table.View()),
		detailContainerStyle.Render(
			lipgloss.JoinVertical(lipgloss.Left,
				detailHeaderStyle.Render(detailHeader),
				lipgloss.NewStyle().PaddingLeft(1).Render(m.detail.View()),
			),
		),
	)

	helpText := fmt.Sprintf("Total: %d | p/l/r/s/i/c: Sort | /: Filter | Esc/q: Quit | Up/Down: Scroll", len(m.visible))
	footerContent := helpText
	if m.version != "" {
		gap := m.width - 6 - lipgloss.Width(helpText) - lipgloss.Width(m.version)
		if gap > 0 {
			footerContent = helpText + strings.Repeat(" ", gap) + m.version
		}
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("netprobe"),
		countStyle.Render(fmt.Sprintf("%d tracked", len(m.records))),
		cycleStyle.Render(fmt.Sprintf("cycle %d", m.cycle)),
	)

	return outerStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			lipgloss.NewStyle().Height(1).Render(""),
			lipgloss.NewStyle().MarginBottom(1).PaddingLeft(1).Render(status),
			lipgloss.NewStyle().MarginBottom(1).PaddingLeft(1).Render(m.input.View()),
			mainContent,
			lipgloss.NewStyle().Height(1).Render(""),
			footerStyle.Width(m.width-4).Render(footerContent),
		),
	)
}
