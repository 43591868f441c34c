//go:build linux

package transfer

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// tcpStats captures loss-related metrics from TCP_INFO.
type tcpStats struct {
	Retransmits  uint64
	SegmentsSent uint64
}

// readTCPStats reads TCP_INFO from a live TCP connection.
func readTCPStats(conn *net.TCPConn) (tcpStats, error) {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return tcpStats{}, fmt.Errorf("syscall conn: %w", err)
	}

	var info *unix.TCPInfo
	var sockErr error
	if err := rawConn.Control(func(fd uintptr) {
		info, sockErr = unix.GetsockoptTCPInfo(int(fd), unix.IPPROTO_TCP, unix.TCP_INFO)
	}); err != nil {
		return tcpStats{}, fmt.Errorf("control syscall: %w", err)
	}
	if sockErr != nil {
		return tcpStats{}, fmt.Errorf("getsockopt TCP_INFO: %w", sockErr)
	}
	if info == nil {
		return tcpStats{}, fmt.Errorf("getsockopt TCP_INFO: nil info")
	}

	segmentsSent := uint64(info.Data_segs_out)
	if segmentsSent == 0 {
		segmentsSent = uint64(info.Segs_out)
	}
	retransmits := uint64(info.Total_retrans)
	if retransmits == 0 && info.Bytes_retrans > 0 && info.Snd_mss > 0 {
		mss := uint64(info.Snd_mss)
		retransmits = (info.Bytes_retrans + mss - 1) / mss
	}
	return tcpStats{
		Retransmits:  retransmits,
		SegmentsSent: segmentsSent,
	}, nil
}
