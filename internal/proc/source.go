package proc

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/kubesonde/netprobe/pkg/model"
)

// ErrUnsupported is returned when a source is not available on this platform.
var ErrUnsupported = errors.New("snapshot source not supported on this platform")

const (
	KindGopsutil = "gopsutil"
	KindProcfs   = "procfs"
)

// Source enumerates every socket on the host.
type Source interface {
	Snapshot(ctx context.Context) ([]model.ConnectionRecord, error)
}

// New returns the source registered under kind. procRoot is only used by the
// procfs source.
func New(kind, procRoot string, logger *zap.Logger) (Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch kind {
	case KindGopsutil, "":
		return NewGopsutil(), nil
	case KindProcfs:
		return newProcfs(procRoot, logger)
	default:
		return nil, fmt.Errorf("unknown snapshot source %q", kind)
	}
}

// DefaultProcRoot honours HOST_PROC so the agent can inspect the host from a
// container.
func DefaultProcRoot() string {
	if procPath, ok := os.LookupEnv("HOST_PROC"); ok {
		return procPath
	}
	return "/proc"
}

// inetAddr converts an IP/port pair, mapping an unbound endpoint (port 0) to
// the empty address.
func inetAddr(ip string, port uint32) model.Addr {
	if port == 0 {
		return model.Addr{}
	}
	return model.Addr{IP: ip, Port: port}
}
