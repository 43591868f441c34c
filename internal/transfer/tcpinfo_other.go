//go:build !linux

package transfer

import (
	"errors"
	"net"
)

type tcpStats struct {
	Retransmits  uint64
	SegmentsSent uint64
}

func readTCPStats(conn *net.TCPConn) (tcpStats, error) {
	return tcpStats{}, errors.New("TCP_INFO not available on this platform")
}
