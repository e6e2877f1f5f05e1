package tui

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wrap"

	"github.com/kubesonde/netprobe/internal/output"
	"github.com/kubesonde/netprobe/pkg/model"
)

const (
	sortProto  = "proto"
	sortLocal  = "local"
	sortRemote = "remote"
	sortStatus = "status"
	sortPID    = "pid"
	sortSeen   = "seen"
)

// columnSortKeys maps table columns to sort keys; FD is not sortable.
var columnSortKeys = []string{sortProto, sortLocal, sortRemote, sortStatus, sortPID, "", sortSeen}

func baseColumns() []table.Column {
	return []table.Column{
		{Title: "Proto", Width: 6},
		{Title: "Local", Width: 28},
		{Title: "Remote", Width: 28},
		{Title: "Status", Width: 12},
		{Title: "PID", Width: 8},
		{Title: "FD", Width: 6},
		{Title: "Seen", Width: 8},
	}
}

func (m Model) snapshot() tea.Cmd {
	source, timeout := m.source, m.interval
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		records, err := source.Snapshot(ctx)
		return snapshotMsg{records: records, err: err}
	}
}

// apply folds a snapshot into the tracker and rebuilds the table.
func (m *Model) apply(msg snapshotMsg) {
	res := m.tracker.Step(msg.records, msg.err)
	m.cycle++
	m.observed = res.Observed
	m.serving = res.Serving
	m.lastErr = res.Err

	m.records = res.State.Records()
	for _, r := range m.records {
		if _, ok := m.firstSeen[r]; !ok {
			m.firstSeen[r] = m.cycle
		}
	}
	m.refreshRows()
	m.updateDetail()
}

// isNew reports whether r was added by the latest cycle. Everything is new
// on the first cycle, so nothing is marked then.
func (m *Model) isNew(r model.ConnectionRecord) bool {
	return m.cycle > 1 && m.firstSeen[r] == m.cycle
}

func (m *Model) columns() []table.Column {
	cols := baseColumns()
	for i, key := range columnSortKeys {
		if key != "" && key == m.sortCol {
			if m.sortDesc {
				cols[i].Title += " ↓"
			} else {
				cols[i].Title += " ↑"
			}
		}
	}

	existing := m.table.Columns()
	if len(existing) == len(cols) {
		for i := range cols {
			cols[i].Width = existing[i].Width
		}
	}
	return cols
}

func (m *Model) refreshRows() {
	filter := strings.ToLower(strings.TrimSpace(m.input.Value()))

	visible := make([]model.ConnectionRecord, 0, len(m.records))
	for _, r := range m.records {
		if filter == "" || strings.Contains(strings.ToLower(strings.Join(output.Row(r), " ")), filter) {
			visible = append(visible, r)
		}
	}
	m.sortRecords(visible)
	m.visible = visible

	rows := make([]table.Row, 0, len(visible))
	for _, r := range visible {
		seen := strconv.Itoa(m.firstSeen[r])
		if m.isNew(r) {
			seen = newMarker + seen
		}
		rows = append(rows, append(table.Row(output.Row(r)), seen))
	}

	m.table.SetColumns(m.columns())
	m.table.SetRows(rows)
	if len(rows) > 0 && m.table.Cursor() >= len(rows) {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m *Model) sortRecords(records []model.ConnectionRecord) {
	output.SortRecords(records)

	less := func(a, b model.ConnectionRecord) bool {
		switch m.sortCol {
		case sortProto:
			return a.Protocol() < b.Protocol()
		case sortLocal:
			return addrLess(a.Local, b.Local)
		case sortRemote:
			return addrLess(a.Remote, b.Remote)
		case sortStatus:
			return a.Status < b.Status
		case sortPID:
			return a.PID < b.PID
		case sortSeen:
			return m.firstSeen[a] < m.firstSeen[b]
		}
		return false
	}
	sort.SliceStable(records, func(i, j int) bool {
		if m.sortDesc {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}

func addrLess(a, b model.Addr) bool {
	if a.Port != b.Port {
		return a.Port < b.Port
	}
	return a.IP < b.IP
}

// resize fits the table and the detail pane to the terminal.
func (m *Model) resize() {
	tableHeight := m.height - 12
	if tableHeight < 5 {
		tableHeight = 5
	}
	m.table.SetHeight(tableHeight)

	availableWidth := m.width - 6
	listPaneWidth := int(float64(availableWidth) * 0.7)
	if listPaneWidth < 10 {
		listPaneWidth = 10
	}

	cols := m.table.Columns()
	fixed := 0
	for i, col := range cols {
		if i != 1 && i != 2 {
			fixed += col.Width
		}
	}
	addrWidth := (listPaneWidth - fixed - 2*len(cols)) / 2
	if addrWidth < 15 {
		addrWidth = 15
	}
	cols[1].Width = addrWidth
	cols[2].Width = addrWidth
	m.table.SetColumns(cols)

	detailWidth := availableWidth - listPaneWidth - 4
	if detailWidth < 0 {
		detailWidth = 0
	}
	m.detail.Width = detailWidth
	m.detail.Height = tableHeight
	m.updateDetail()
}

func (m *Model) updateDetail() {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.visible) {
		m.detail.SetContent(dimStyle.Render("No socket selected"))
		return
	}
	r := m.visible[idx]
	cells := output.Row(r)

	var b strings.Builder
	field := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(label+":"), value)
	}
	field("Protocol", r.Protocol())
	field("Family", r.Family.String())
	field("Type", r.Type.String())
	field("Local", r.Local.String())
	field("Remote", r.Remote.String())
	field("Status", string(r.Status))
	field("PID", cells[4])
	field("FD", cells[5])
	field("First seen", fmt.Sprintf("cycle %d of %d", m.firstSeen[r], m.cycle))

	content := b.String()
	if m.detail.Width > 0 {
		content = wrap.String(content, m.detail.Width)
	}
	m.detail.SetContent(content)
}
