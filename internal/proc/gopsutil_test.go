package proc

import (
	"context"
	"errors"
	"testing"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubesonde/netprobe/pkg/model"
)

func TestGopsutilSnapshot(t *testing.T) {
	var gotKind string
	g := &Gopsutil{connections: func(_ context.Context, kind string) ([]psnet.ConnectionStat, error) {
		gotKind = kind
		return []psnet.ConnectionStat{
			{
				Fd: 3, Family: 2, Type: 1,
				Laddr:  psnet.Addr{IP: "0.0.0.0", Port: 80},
				Raddr:  psnet.Addr{IP: "0.0.0.0", Port: 0},
				Status: "LISTEN", Pid: 42,
			},
			{
				Family: 10, Type: 2,
				Laddr:  psnet.Addr{IP: "::", Port: 53},
				Status: "NONE",
			},
			{
				Family: 1, Type: 1,
				Laddr:  psnet.Addr{IP: "/run/app.sock"},
				Status: "NONE", Pid: 7, Fd: 5,
			},
		}, nil
	}}

	records, err := g.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "all", gotKind)
	assert.Equal(t, []model.ConnectionRecord{
		{
			Family: model.FamilyInet, Type: model.SockStream,
			Local:  model.Addr{IP: "0.0.0.0", Port: 80},
			Status: model.StatusListen, PID: 42, FD: 3,
		},
		{
			Family: model.FamilyInet6, Type: model.SockDgram,
			Local:  model.Addr{IP: "::", Port: 53},
			Status: model.StatusNone, PID: model.NoPID, FD: model.NoFD,
		},
		{
			Family: model.FamilyUnix, Type: model.SockStream,
			Local:  model.Addr{IP: "/run/app.sock"},
			Status: model.StatusNone, PID: 7, FD: 5,
		},
	}, records)
}

func TestGopsutilSnapshotError(t *testing.T) {
	g := &Gopsutil{connections: func(context.Context, string) ([]psnet.ConnectionStat, error) {
		return nil, errors.New("open /proc/net/tcp: permission denied")
	}}

	records, err := g.Snapshot(context.Background())
	assert.Nil(t, records)
	assert.ErrorContains(t, err, "permission denied")
}

func TestNewUnknownSource(t *testing.T) {
	_, err := New("netlink", "", nil)
	assert.ErrorContains(t, err, "netlink")
}
