// Package tui renders a live view of the accumulated serving sockets.
package tui

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kubesonde/netprobe/internal/proc"
	"github.com/kubesonde/netprobe/internal/tracker"
	"github.com/kubesonde/netprobe/pkg/model"
)

var (
	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#585858")) // Dark Gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")). // White
			Background(lipgloss.Color("#7D56F4")). // Purple
			Padding(0, 1)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#5f5fd7")). // Purple/Blue
				Bold(true).
				Border(lipgloss.NormalBorder(), false, false, true, false).
				BorderForeground(lipgloss.Color("#585858")). // Dark Gray
				Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5f5fd7")). // Purple/Blue
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676")). // Dimmed Gray
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("#585858")). // Dark Gray
			Padding(0, 1).
			Width(100)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")). // White
			Background(lipgloss.Color("#22aa22")). // Green
			Padding(0, 1).
			Bold(true)

	cycleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")). // White
			Background(lipgloss.Color("#767676")). // Dimmed Gray
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff5f5f")). // Soft red
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#af87ff")). // Lavender
			Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
)

// newMarker prefixes the Seen cell of rows added by the latest cycle.
const newMarker = "● "

type Model struct {
	source   proc.Source
	tracker  *tracker.Tracker
	interval time.Duration
	version  string

	table  table.Model
	input  textinput.Model
	detail viewport.Model

	records   []model.ConnectionRecord
	visible   []model.ConnectionRecord
	firstSeen map[model.ConnectionRecord]int
	cycle     int
	observed  int
	serving   int
	lastErr   error

	sortCol  string
	sortDesc bool
	width    int
	height   int
	quitting bool
}

func New(source proc.Source, opts tracker.Options, interval time.Duration, version string) Model {
	t := table.New(
		table.WithColumns(baseColumns()),
		table.WithFocused(true),
		table.WithHeight(20),
	)

	s := table.DefaultStyles()
	s.Header = tableHeaderStyle.BorderForeground(lipgloss.Color("#585858"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#ffffaf")). // Light Yellow
		Background(lipgloss.Color("#5f00d7")). // Purple
		Bold(false)
	t.SetStyles(s)

	ti := textinput.New()
	ti.Placeholder = "Filter by protocol, address, status, PID..."
	ti.CharLimit = 156
	ti.Width = 50
	ti.Prompt = "> "
	ti.PromptStyle = promptStyle
	ti.Blur()

	vp := viewport.New(0, 0)
	vp.YPosition = 0

	m := Model{
		source:    source,
		tracker:   tracker.New(opts),
		interval:  interval,
		version:   version,
		table:     t,
		input:     ti,
		detail:    vp,
		firstSeen: make(map[model.ConnectionRecord]int),
		sortCol:   sortProto,
	}
	m.table.SetColumns(m.columns())
	return m
}

// Start runs the watch view until the user quits.
func Start(source proc.Source, opts tracker.Options, interval time.Duration, version string) error {
	if os.Getenv("COLORTERM") == "" {
		os.Setenv("COLORTERM", "truecolor") //nolint:errcheck
	}

	p := tea.NewProgram(New(source, opts, interval, version), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running tui: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.snapshot(),
		tea.EnableMouseCellMotion,
	)
}
