package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kubesonde/netprobe/pkg/model"
)

type tickMsg time.Time

type snapshotMsg struct {
	records []model.ConnectionRecord
	err     error
}

func waitTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

var sortKeys = map[string]string{
	"p": sortProto,
	"l": sortLocal,
	"r": sortRemote,
	"s": sortStatus,
	"i": sortPID,
	"c": sortSeen,
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		return m, m.snapshot()

	case snapshotMsg:
		m.apply(msg)
		// The next snapshot is only scheduled once this one is folded in,
		// so cycles never overlap.
		return m, waitTick(m.interval)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.input.Focused() {
		if msg.String() == "enter" || msg.String() == "esc" {
			m.input.Blur()
			return m, nil
		}
		var inputCmd tea.Cmd
		m.input, inputCmd = m.input.Update(msg)
		m.refreshRows()
		m.table.SetCursor(0)
		m.updateDetail()
		return m, inputCmd
	}

	switch msg.String() {
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "/":
		m.input.Focus()
		return m, textinput.Blink
	}
	if col, ok := sortKeys[msg.String()]; ok {
		m.toggleSort(col)
		return m, nil
	}

	prev := m.table.Cursor()
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	if m.table.Cursor() != prev {
		m.updateDetail()
	}
	return m, cmd
}

func (m *Model) toggleSort(col string) {
	if m.sortCol == col {
		m.sortDesc = !m.sortDesc
	} else {
		m.sortCol = col
		m.sortDesc = false
	}
	m.refreshRows()
	m.updateDetail()
}
