package util

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// FormatBitsPerSecond formats bits per second with appropriate units
func FormatBitsPerSecond(bps float64) string {
	return formatWithUnits(bps, []string{"bps", "Kbps", "Mbps", "Gbps", "Tbps"}, 1000)
}

// FormatBytes formats byte counts with appropriate units
func FormatBytes(bytes float64) string {
	return formatWithUnits(bytes, []string{"B", "KB", "MB", "GB", "TB", "PB"}, 1000)
}

// FormatLatency formats a round-trip time, switching to seconds above 1000 ms.
func FormatLatency(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000.0
	if ms >= 1000 {
		return fmt.Sprintf("%.2f s", ms/1000)
	}
	return fmt.Sprintf("%.1f ms", ms)
}

func NetJoin(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func BoolValue(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// formatWithUnits is a generic formatter for values with scaling units
func formatWithUnits(value float64, units []string, base float64) string {
	if value < 0 {
		return "0"
	}
	idx := 0
	for value >= base && idx < len(units)-1 {
		value /= base
		idx++
	}
	if value >= 100 {
		return fmt.Sprintf("%.0f %s", value, units[idx])
	}
	if value >= 10 {
		return fmt.Sprintf("%.1f %s", value, units[idx])
	}
	return fmt.Sprintf("%.2f %s", value, units[idx])
}
