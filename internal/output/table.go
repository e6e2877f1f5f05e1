package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kubesonde/netprobe/pkg/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5f5fd7")). // Purple/Blue
			Bold(true).
			Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	listenStyle = cellStyle.Foreground(lipgloss.Color("#22aa22")) // Green
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#585858"))
)

// SortRecords orders records by protocol, local port and address.
func SortRecords(records []model.ConnectionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Protocol() != b.Protocol() {
			return a.Protocol() < b.Protocol()
		}
		if a.Local.Port != b.Local.Port {
			return a.Local.Port < b.Local.Port
		}
		if a.Local.IP != b.Local.IP {
			return a.Local.IP < b.Local.IP
		}
		return a.PID < b.PID
	})
}

// Row formats a record as table cells: proto, local, remote, status, pid, fd.
func Row(r model.ConnectionRecord) []string {
	pid, fd := "-", "-"
	if r.HasPID() {
		pid = strconv.Itoa(r.PID)
	}
	if r.HasFD() {
		fd = strconv.Itoa(r.FD)
	}
	return []string{r.Protocol(), r.Local.String(), r.Remote.String(), string(r.Status), pid, fd}
}

// RenderTable writes records as a bordered table, listening sockets first
// by protocol and port.
func RenderTable(w io.Writer, records []model.ConnectionRecord) error {
	sorted := make([]model.ConnectionRecord, len(records))
	copy(sorted, records)
	SortRecords(sorted)

	rows := make([][]string, 0, len(sorted))
	for _, r := range sorted {
		rows = append(rows, Row(r))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("PROTO", "LOCAL", "REMOTE", "STATUS", "PID", "FD").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 3 && row >= 0 && row < len(rows) && rows[row][3] == string(model.StatusListen):
				return listenStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintf(w, "%s\n%d serving socket(s)\n", t.String(), len(rows))
	return err
}
