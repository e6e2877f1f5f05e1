package model

import (
	"net"
	"strconv"
)

// Family is the socket address family, numbered like the AF_* constants.
type Family uint32

const (
	FamilyUnspec Family = 0
	FamilyUnix   Family = 1
	FamilyInet   Family = 2
	FamilyInet6  Family = 10
)

func (f Family) String() string {
	switch f {
	case FamilyUnix:
		return "unix"
	case FamilyInet:
		return "inet"
	case FamilyInet6:
		return "inet6"
	default:
		return "family(" + strconv.Itoa(int(f)) + ")"
	}
}

// SocketType is the transport type, numbered like SOCK_STREAM / SOCK_DGRAM.
type SocketType uint32

const (
	SockUnknown SocketType = 0
	SockStream  SocketType = 1
	SockDgram   SocketType = 2
)

func (t SocketType) String() string {
	switch t {
	case SockStream:
		return "stream"
	case SockDgram:
		return "dgram"
	default:
		return "type(" + strconv.Itoa(int(t)) + ")"
	}
}

// Status is the connection status as reported by the OS.
type Status string

const (
	StatusEstablished Status = "ESTABLISHED"
	StatusSynSent     Status = "SYN_SENT"
	StatusSynRecv     Status = "SYN_RECV"
	StatusFinWait1    Status = "FIN_WAIT1"
	StatusFinWait2    Status = "FIN_WAIT2"
	StatusTimeWait    Status = "TIME_WAIT"
	StatusClose       Status = "CLOSE"
	StatusCloseWait   Status = "CLOSE_WAIT"
	StatusLastAck     Status = "LAST_ACK"
	StatusListen      Status = "LISTEN"
	StatusClosing     Status = "CLOSING"
	StatusNone        Status = "NONE"
)

// Sentinels for optional numeric fields. Absent values always use these so
// that two records describing the same connection compare equal.
const (
	NoPID = -1
	NoFD  = -1
)

// Addr is a host/port pair. The zero value means "no address".
type Addr struct {
	IP   string
	Port uint32
}

func (a Addr) IsZero() bool {
	return a.IP == "" && a.Port == 0
}

func (a Addr) String() string {
	if a.IsZero() {
		return "-"
	}
	return net.JoinHostPort(a.IP, strconv.FormatUint(uint64(a.Port), 10))
}

// ConnectionRecord is one observed socket. It is comparable: two records are
// the same connection iff every field is equal, so a ConnectionRecord can be
// used directly as a map key once normalized.
type ConnectionRecord struct {
	Family Family
	Type   SocketType
	Local  Addr
	Remote Addr
	Status Status
	PID    int
	FD     int
}

// Normalize returns r with absent optional fields set to their canonical
// sentinel values.
func (r ConnectionRecord) Normalize() ConnectionRecord {
	if r.PID < 0 {
		r.PID = NoPID
	}
	if r.FD < 0 {
		r.FD = NoFD
	}
	if r.Status == "" {
		r.Status = StatusNone
	}
	return r
}

// HasPID reports whether the owning process is known.
func (r ConnectionRecord) HasPID() bool {
	return r.PID >= 0
}

// HasFD reports whether the file descriptor is known.
func (r ConnectionRecord) HasFD() bool {
	return r.FD >= 0
}

// Protocol returns a short label such as "tcp", "udp6" or "unix".
func (r ConnectionRecord) Protocol() string {
	var proto string
	switch {
	case r.Family == FamilyUnix:
		return "unix"
	case r.Type == SockStream:
		proto = "tcp"
	case r.Type == SockDgram:
		proto = "udp"
	default:
		proto = r.Type.String()
	}
	if r.Family == FamilyInet6 {
		proto += "6"
	}
	return proto
}
