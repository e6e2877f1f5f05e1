package output

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/kubesonde/netprobe/pkg/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// wireItem is the collector's view of a connection: laddr/raddr are
// [ip, port] pairs ([] when empty, a plain path for unix sockets), fd is -1
// and pid is null when unknown.
type wireItem struct {
	FD     int    `json:"fd"`
	Family uint32 `json:"family"`
	Type   uint32 `json:"type"`
	Laddr  any    `json:"laddr"`
	Raddr  any    `json:"raddr"`
	Status string `json:"status"`
	PID    *int   `json:"pid"`
}

func toWire(r model.ConnectionRecord) wireItem {
	r = r.Normalize()
	item := wireItem{
		FD:     r.FD,
		Family: uint32(r.Family),
		Type:   uint32(r.Type),
		Laddr:  wireAddr(r.Family, r.Local),
		Raddr:  wireAddr(r.Family, r.Remote),
		Status: string(r.Status),
	}
	if r.HasPID() {
		pid := r.PID
		item.PID = &pid
	}
	return item
}

func wireAddr(family model.Family, a model.Addr) any {
	if family == model.FamilyUnix {
		return a.IP
	}
	if a.IsZero() {
		return []any{}
	}
	return []any{a.IP, a.Port}
}

// ToJSON encodes records as one compact JSON array.
func ToJSON(records []model.ConnectionRecord) ([]byte, error) {
	items := make([]wireItem, 0, len(records))
	for _, r := range records {
		items = append(items, toWire(r))
	}
	return json.Marshal(items)
}
