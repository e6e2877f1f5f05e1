//go:build linux

package proc

import (
	"fmt"

	"github.com/kubesonde/netprobe/pkg/model"
)

// mapTCPState maps Linux kernel TCP states (from include/net/tcp_states.h)
// to statuses.
func mapTCPState(state uint64) model.Status {
	switch state {
	case 1:
		return model.StatusEstablished
	case 2:
		return model.StatusSynSent
	case 3:
		return model.StatusSynRecv
	case 4:
		return model.StatusFinWait1
	case 5:
		return model.StatusFinWait2
	case 6:
		return model.StatusTimeWait
	case 7:
		return model.StatusClose
	case 8:
		return model.StatusCloseWait
	case 9:
		return model.StatusLastAck
	case 10:
		return model.StatusListen
	case 11:
		return model.StatusClosing
	default:
		return model.Status(fmt.Sprintf("UNKNOWN(%02X)", state))
	}
}
