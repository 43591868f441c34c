package transfer

import (
	"time"

	"github.com/NodePath81/netgauge/internal/stats"
)

// reduction is the per-interval rate sequence derived from cumulative
// samples, after the warm-up discard.
type reduction struct {
	rates     []float64 // bits per second, one per retained interval
	raw       int       // cumulative samples collected
	discarded int       // leading intervals dropped as warm-up
}

// reduce turns cumulative byte samples into interval throughputs and
// drops the leading warm-up window. Throughput comes from the difference
// between consecutive totals over elapsed time, never from the cumulative
// figure itself. The discard shrinks so that at least one interval always
// survives when any intervals exist.
func reduce(samples []Sample, warmup time.Duration) (reduction, error) {
	red := reduction{raw: len(samples)}
	if len(samples) < 2 {
		return red, stats.ErrInsufficientSamples
	}

	start := samples[0].At
	warmupEnd := start.Add(warmup)
	rates := make([]float64, 0, len(samples)-1)
	inWarmup := 0
	for i := 1; i < len(samples); i++ {
		dt := samples[i].At.Sub(samples[i-1].At).Seconds()
		if dt <= 0 {
			continue
		}
		delta := samples[i].Bytes - samples[i-1].Bytes
		if delta < 0 {
			continue
		}
		rates = append(rates, float64(delta*8)/dt)
		if !samples[i].At.After(warmupEnd) {
			inWarmup++
		}
	}
	if len(rates) == 0 {
		return red, stats.ErrInsufficientSamples
	}

	discard := inWarmup
	if discard >= len(rates) {
		discard = len(rates) - 1
	}
	red.rates = rates[discard:]
	red.discarded = discard
	return red, nil
}
