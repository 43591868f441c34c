// Package probe measures round-trip latency against a measurement server
// over a lightweight channel separate from any data-transfer connections.
package probe

import (
	"context"
	"errors"
	"time"

	"github.com/NodePath81/netgauge/internal/stats"
)

// ErrConnection indicates the probe channel could not be established at
// all, before any probe was attempted.
var ErrConnection = errors.New("probe channel connection failed")

// Pinger issues one timed probe per call. Implementations own their
// transport and recover from per-probe failures internally; a failed call
// reports one lost probe, not a dead pinger.
type Pinger interface {
	// Ping returns the send-to-reply round trip time, bounded by timeout.
	Ping(timeout time.Duration) (time.Duration, error)
	Close() error
}

// Measure collects exactly count samples from p, each bounded by timeout.
// Probes that error are recorded as lost. Only context cancellation cuts
// the sequence short, returning the samples gathered so far.
func Measure(ctx context.Context, p Pinger, count int, timeout time.Duration) ([]stats.PingSample, error) {
	if count <= 0 {
		count = 1
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	samples := make([]stats.PingSample, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return samples, err
		}
		rtt, err := p.Ping(timeout)
		if err != nil || rtt <= 0 {
			samples = append(samples, stats.PingSample{Lost: true})
			continue
		}
		samples = append(samples, stats.PingSample{RTT: rtt})
	}
	return samples, nil
}
