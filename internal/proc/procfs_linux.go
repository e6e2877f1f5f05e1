//go:build linux

package proc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prometheus/procfs"
	"go.uber.org/zap"

	"github.com/kubesonde/netprobe/pkg/model"
)

// see https://www.kernel.org/doc/Documentation/networking/proc_net_tcp.txt

// Procfs reads /proc/net/{tcp,tcp6,udp,udp6} and resolves socket owners by
// walking /proc/<pid>/fd.
type Procfs struct {
	root   string
	logger *zap.Logger
}

type owner struct {
	pid int
	fd  int
}

type socketLine struct {
	localIP    net.IP
	localPort  uint64
	remoteIP   net.IP
	remotePort uint64
	st         uint64
	inode      uint64
}

func newProcfs(root string, logger *zap.Logger) (Source, error) {
	if root == "" {
		root = DefaultProcRoot()
	}
	if _, err := procfs.NewFS(root); err != nil {
		return nil, fmt.Errorf("open procfs at %s: %w", root, err)
	}
	return &Procfs{root: root, logger: logger}, nil
}

func (p *Procfs) Snapshot(ctx context.Context) ([]model.ConnectionRecord, error) {
	fs, err := procfs.NewFS(p.root)
	if err != nil {
		return nil, err
	}

	tcpTables := map[string]func() (procfs.NetTCP, error){
		"tcp":  fs.NetTCP,
		"tcp6": fs.NetTCP6,
	}
	udpTables := map[string]func() (procfs.NetUDP, error){
		"udp":  fs.NetUDP,
		"udp6": fs.NetUDP6,
	}
	tables := len(tcpTables) + len(udpTables)

	lines := make(map[string][]socketLine, tables)
	failed := 0
	for name, parser := range tcpTables {
		entries, err := parser()
		if err != nil {
			p.logger.Debug("failed to read socket table", zap.String("table", name), zap.Error(err))
			failed++
			continue
		}
		for _, e := range entries {
			lines[name] = append(lines[name], socketLine{e.LocalAddr, e.LocalPort, e.RemAddr, e.RemPort, e.St, e.Inode})
		}
	}
	for name, parser := range udpTables {
		entries, err := parser()
		if err != nil {
			p.logger.Debug("failed to read socket table", zap.String("table", name), zap.Error(err))
			failed++
			continue
		}
		for _, e := range entries {
			lines[name] = append(lines[name], socketLine{e.LocalAddr, e.LocalPort, e.RemAddr, e.RemPort, e.St, e.Inode})
		}
	}
	if failed == tables {
		return nil, errors.New("no socket table could be read")
	}

	owners, err := p.socketOwners(ctx, fs)
	if err != nil {
		return nil, err
	}

	var records []model.ConnectionRecord
	for _, table := range []struct {
		name   string
		family model.Family
		typ    model.SocketType
	}{
		{"tcp", model.FamilyInet, model.SockStream},
		{"tcp6", model.FamilyInet6, model.SockStream},
		{"udp", model.FamilyInet, model.SockDgram},
		{"udp6", model.FamilyInet6, model.SockDgram},
	} {
		for _, l := range lines[table.name] {
			r := model.ConnectionRecord{
				Family: table.family,
				Type:   table.typ,
				Local:  inetAddr(ipString(l.localIP), uint32(l.localPort)),
				Remote: inetAddr(ipString(l.remoteIP), uint32(l.remotePort)),
				Status: model.StatusNone,
				PID:    model.NoPID,
				FD:     model.NoFD,
			}
			if table.typ == model.SockStream {
				r.Status = mapTCPState(l.st)
			}

			found := owners[l.inode]
			if len(found) == 0 || l.inode == 0 {
				records = append(records, r)
				continue
			}
			for _, o := range found {
				r.PID, r.FD = o.pid, o.fd
				records = append(records, r)
			}
		}
	}
	return records, nil
}

// socketOwners maps socket inodes to the (pid, fd) pairs holding them.
// Processes that vanish or deny access are skipped.
func (p *Procfs) socketOwners(ctx context.Context, fs procfs.FS) (map[uint64][]owner, error) {
	procs, err := fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	owners := make(map[uint64][]owner)
	for _, proc := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fds, err := proc.FileDescriptors()
		if err != nil {
			continue
		}
		fdDir := filepath.Join(p.root, strconv.Itoa(proc.PID), "fd")
		for _, fd := range fds {
			link, err := os.Readlink(filepath.Join(fdDir, strconv.FormatUint(uint64(fd), 10)))
			if err != nil {
				continue
			}
			inode, ok := socketInode(link)
			if !ok {
				continue
			}
			owners[inode] = append(owners[inode], owner{pid: proc.PID, fd: int(fd)})
		}
	}
	return owners, nil
}

// socketInode parses links of the form "socket:[12345]".
func socketInode(link string) (uint64, bool) {
	if !strings.HasPrefix(link, "socket:[") || !strings.HasSuffix(link, "]") {
		return 0, false
	}
	inode, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(link, "socket:["), "]"), 10, 64)
	if err != nil {
		return 0, false
	}
	return inode, true
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
