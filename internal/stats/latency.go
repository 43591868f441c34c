package stats

import (
	"sort"
	"time"
)

const defaultHistogramBuckets = 8

// LatencyStats summarizes an ordered PingSample sequence. Derived once
// after probing completes; the sample slice is retained, never mutated.
type LatencyStats struct {
	Samples   []PingSample
	MinMs     float64
	MeanMs    float64
	MedianMs  float64
	MaxMs     float64
	JitterMs  float64
	Loss      float64
	Histogram []HistogramBucket
}

// NewLatencyStats derives latency statistics from samples. An all-lost
// sequence yields zero RTT figures with Loss == 1.
func NewLatencyStats(samples []PingSample) LatencyStats {
	ls := LatencyStats{
		Samples:  samples,
		JitterMs: Jitter(samples),
		Loss:     LossRatio(samples),
	}
	rtts := successfulMs(samples)
	if len(rtts) == 0 {
		return ls
	}

	ls.MinMs, ls.MaxMs = rtts[0], rtts[0]
	for _, v := range rtts[1:] {
		if v < ls.MinMs {
			ls.MinMs = v
		}
		if v > ls.MaxMs {
			ls.MaxMs = v
		}
	}
	ls.MeanMs = Mean(rtts)
	ls.MedianMs = median(rtts)
	ls.Histogram = Histogram(rtts, defaultHistogramBuckets)
	return ls
}

// Mean returns the mean RTT as a duration, for contexts keeping
// time.Duration arithmetic.
func (ls LatencyStats) Mean() time.Duration {
	return time.Duration(ls.MeanMs * float64(time.Millisecond))
}

// Count is the total number of probes, lost included.
func (ls LatencyStats) Count() int {
	return len(ls.Samples)
}

func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	ordered := make([]float64, n)
	copy(ordered, values)
	sort.Float64s(ordered)
	if n%2 == 1 {
		return ordered[n/2]
	}
	return (ordered[n/2-1] + ordered[n/2]) / 2
}
