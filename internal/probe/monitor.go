package probe

import (
	"context"
	"time"

	"github.com/NodePath81/netgauge/internal/stats"
)

// Monitor collects latency samples on a timer while a throughput phase is
// active. It owns its Pinger and never touches the transfer connections.
// Lifetime is bounded purely by the context passed to Run; the caller
// cancels it the moment the throughput phase ends.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
}

// NewMonitor prepares a loaded-latency monitor probing every interval,
// each probe bounded by timeout.
func NewMonitor(p Pinger, interval, timeout time.Duration) *Monitor {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Monitor{pinger: p, interval: interval, timeout: timeout}
}

// Run probes until ctx is cancelled and returns the ordered samples. The
// sample slice is owned by the caller afterwards; Run never retains it.
// Teardown is bounded by one probe timeout past cancellation.
func (m *Monitor) Run(ctx context.Context) []stats.PingSample {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var samples []stats.PingSample
	for {
		select {
		case <-ctx.Done():
			return samples
		case <-ticker.C:
			rtt, err := m.pinger.Ping(m.timeout)
			if err != nil || rtt <= 0 {
				samples = append(samples, stats.PingSample{Lost: true})
				continue
			}
			samples = append(samples, stats.PingSample{RTT: rtt})
		}
	}
}
