//go:build linux

package proc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kubesonde/netprobe/pkg/model"
)

const tcpHeader = "  sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode\n"

const udpHeader = "   sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode ref pointer drops\n"

func writeFakeProc(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"net/tcp": tcpHeader +
			"   0: 00000000:0050 00000000:0000 0A 00000000:00000000 00:00000000 00000000     0        0 1001 1 0000000000000000 100 0 0 10 0\n" +
			"   1: 0200000A:0016 0900000A:C738 01 00000000:00000000 02:000A7214 00000000     0        0 1002 4 0000000000000000 20 4 30 10 -1\n",
		"net/tcp6": tcpHeader,
		"net/udp": udpHeader +
			"   0: 00000000:0035 00000000:0000 07 00000000:00000000 00:00000000 00000000     0        0 1003 2 0000000000000000 0\n",
		"net/udp6": udpHeader,
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	links := map[string]string{
		"123/fd/3": "socket:[1001]",
		"123/fd/4": "socket:[1003]",
		"123/fd/5": "/var/log/app.log",
		"456/fd/7": "socket:[1001]",
	}
	for name, target := range links {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.Symlink(target, path))
	}
	return root
}

func TestProcfsSnapshot(t *testing.T) {
	src, err := New(KindProcfs, writeFakeProc(t), zap.NewNop())
	require.NoError(t, err)

	records, err := src.Snapshot(context.Background())
	require.NoError(t, err)

	listen := model.ConnectionRecord{
		Family: model.FamilyInet,
		Type:   model.SockStream,
		Local:  model.Addr{IP: "0.0.0.0", Port: 80},
		Status: model.StatusListen,
	}
	listenA, listenB := listen, listen
	listenA.PID, listenA.FD = 123, 3
	listenB.PID, listenB.FD = 456, 7

	assert.ElementsMatch(t, []model.ConnectionRecord{
		listenA,
		listenB,
		{
			Family: model.FamilyInet,
			Type:   model.SockStream,
			Local:  model.Addr{IP: "10.0.0.2", Port: 22},
			Remote: model.Addr{IP: "10.0.0.9", Port: 51000},
			Status: model.StatusEstablished,
			PID:    model.NoPID,
			FD:     model.NoFD,
		},
		{
			Family: model.FamilyInet,
			Type:   model.SockDgram,
			Local:  model.Addr{IP: "0.0.0.0", Port: 53},
			Status: model.StatusNone,
			PID:    123,
			FD:     4,
		},
	}, records)
}

func TestProcfsSnapshotWithoutTables(t *testing.T) {
	src, err := New(KindProcfs, t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	_, err = src.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestProcfsSnapshotWithSomeTablesMissing(t *testing.T) {
	root := writeFakeProc(t)
	for _, name := range []string{"net/tcp6", "net/udp", "net/udp6"} {
		require.NoError(t, os.Remove(filepath.Join(root, name)))
	}
	src, err := New(KindProcfs, root, zap.NewNop())
	require.NoError(t, err)

	records, err := src.Snapshot(context.Background())
	require.NoError(t, err, "one readable table is enough")
	assert.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, model.SockStream, r.Type)
	}
}

func TestProcfsSnapshotHonoursCancellation(t *testing.T) {
	src, err := New(KindProcfs, writeFakeProc(t), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSocketInode(t *testing.T) {
	inode, ok := socketInode("socket:[98765]")
	assert.True(t, ok)
	assert.Equal(t, uint64(98765), inode)

	for _, link := range []string{"pipe:[1]", "socket:[abc]", "/dev/null", "socket:[12"} {
		_, ok := socketInode(link)
		assert.False(t, ok, link)
	}
}

func TestMapTCPState(t *testing.T) {
	assert.Equal(t, model.StatusListen, mapTCPState(10))
	assert.Equal(t, model.StatusEstablished, mapTCPState(1))
	assert.Equal(t, model.Status("UNKNOWN(0C)"), mapTCPState(12))
}
