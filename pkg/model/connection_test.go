package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUsesCanonicalSentinels(t *testing.T) {
	a := ConnectionRecord{
		Family: FamilyInet,
		Type:   SockDgram,
		Local:  Addr{IP: "0.0.0.0", Port: 53},
		PID:    -7,
		FD:     -2,
	}.Normalize()
	b := ConnectionRecord{
		Family: FamilyInet,
		Type:   SockDgram,
		Local:  Addr{IP: "0.0.0.0", Port: 53},
		Status: StatusNone,
		PID:    NoPID,
		FD:     NoFD,
	}.Normalize()

	assert.Equal(t, a, b)
	assert.False(t, a.HasPID())
	assert.False(t, a.HasFD())
	assert.Equal(t, StatusNone, a.Status)
}

func TestFDAloneDoesNotIdentifyConnection(t *testing.T) {
	a := ConnectionRecord{Family: FamilyInet, Type: SockStream, Local: Addr{IP: "0.0.0.0", Port: 80}, Status: StatusListen, PID: 10, FD: 3}
	b := a
	b.Local.Port = 8080

	set := map[ConnectionRecord]struct{}{a: {}, b: {}}
	assert.Len(t, set, 2)
}

func TestProtocol(t *testing.T) {
	testCases := []struct {
		record   ConnectionRecord
		expected string
	}{
		{ConnectionRecord{Family: FamilyInet, Type: SockStream}, "tcp"},
		{ConnectionRecord{Family: FamilyInet6, Type: SockStream}, "tcp6"},
		{ConnectionRecord{Family: FamilyInet, Type: SockDgram}, "udp"},
		{ConnectionRecord{Family: FamilyInet6, Type: SockDgram}, "udp6"},
		{ConnectionRecord{Family: FamilyUnix, Type: SockDgram}, "unix"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, tc.record.Protocol())
	}
}

func TestAddrString(t *testing.T) {
	assert.Equal(t, "-", Addr{}.String())
	assert.Equal(t, "127.0.0.1:22", Addr{IP: "127.0.0.1", Port: 22}.String())
	assert.Equal(t, "[::]:443", Addr{IP: "::", Port: 443}.String())
}
