package proc

import (
	"context"
	"fmt"

	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/kubesonde/netprobe/pkg/model"
)

type connectionsFunc func(ctx context.Context, kind string) ([]psnet.ConnectionStat, error)

// Gopsutil reads the connection table through gopsutil. It works on every
// platform gopsutil supports.
type Gopsutil struct {
	connections connectionsFunc
}

func NewGopsutil() *Gopsutil {
	return &Gopsutil{connections: psnet.ConnectionsWithContext}
}

func (g *Gopsutil) Snapshot(ctx context.Context) ([]model.ConnectionRecord, error) {
	stats, err := g.connections(ctx, "all")
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	records := make([]model.ConnectionRecord, 0, len(stats))
	for _, s := range stats {
		records = append(records, fromConnectionStat(s))
	}
	return records, nil
}

func fromConnectionStat(s psnet.ConnectionStat) model.ConnectionRecord {
	r := model.ConnectionRecord{
		Family: model.Family(s.Family),
		Type:   model.SocketType(s.Type),
		Status: model.Status(s.Status),
		PID:    int(s.Pid),
		FD:     int(s.Fd),
	}
	if r.Family == model.FamilyUnix {
		r.Local = model.Addr{IP: s.Laddr.IP}
		r.Remote = model.Addr{IP: s.Raddr.IP}
	} else {
		r.Local = inetAddr(s.Laddr.IP, s.Laddr.Port)
		r.Remote = inetAddr(s.Raddr.IP, s.Raddr.Port)
	}
	// gopsutil reports pid 0 when the owner could not be resolved.
	if s.Pid == 0 {
		r.PID = model.NoPID
		r.FD = model.NoFD
	}
	return r.Normalize()
}
