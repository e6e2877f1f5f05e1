package tracker

import (
	"net"
	"strings"

	"github.com/kubesonde/netprobe/pkg/model"
)

// IsServing reports whether r is a listening socket or an unconnected UDP
// socket.
func IsServing(r model.ConnectionRecord) bool {
	if r.Status == model.StatusListen {
		return true
	}
	return isUDP(r) && r.Remote.IsZero()
}

func isUDP(r model.ConnectionRecord) bool {
	return r.Type == model.SockDgram && r.Family != model.FamilyUnix
}

// Filter returns the serving records of snapshot, in their original order.
// The input is not modified.
func Filter(snapshot []model.ConnectionRecord) []model.ConnectionRecord {
	out := make([]model.ConnectionRecord, 0, len(snapshot))
	for _, r := range snapshot {
		if IsServing(r) {
			out = append(out, r)
		}
	}
	return out
}

// ExcludeLoopback drops records bound to a loopback address.
func ExcludeLoopback(records []model.ConnectionRecord) []model.ConnectionRecord {
	out := make([]model.ConnectionRecord, 0, len(records))
	for _, r := range records {
		if !isLoopback(r.Local.IP) {
			out = append(out, r)
		}
	}
	return out
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
