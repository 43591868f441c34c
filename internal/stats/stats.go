package stats

import (
	"errors"
	"math"
	"sort"
	"time"
)

// ErrInsufficientSamples is returned when a statistic cannot be computed
// because no usable samples remain.
var ErrInsufficientSamples = errors.New("insufficient samples")

// PingSample is a single timed probe. A lost probe carries no RTT.
type PingSample struct {
	RTT  time.Duration
	Lost bool
}

// Mean returns the arithmetic mean of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Jitter is the mean absolute difference between consecutive successful
// samples, in milliseconds. Lost samples are skipped without breaking
// adjacency of the successful ones.
func Jitter(samples []PingSample) float64 {
	rtts := successfulMs(samples)
	if len(rtts) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(rtts); i++ {
		diff := rtts[i] - rtts[i-1]
		if diff < 0 {
			diff = -diff
		}
		sum += diff
	}
	return sum / float64(len(rtts)-1)
}

// LossRatio returns lost/total in [0,1]; 0 for an empty sequence.
func LossRatio(samples []PingSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	lost := 0
	for _, s := range samples {
		if s.Lost {
			lost++
		}
	}
	return float64(lost) / float64(len(samples))
}

// HistogramBucket is one equal-width bin of observed values.
type HistogramBucket struct {
	Low   float64
	High  float64
	Count int
}

// Histogram bins values into bucketCount equal-width buckets spanning
// [min, max]. bucketCount is clamped to at least 1; when min == max every
// value lands in a single bucket. Returns nil for no values.
func Histogram(values []float64, bucketCount int) []HistogramBucket {
	if len(values) == 0 {
		return nil
	}
	if bucketCount < 1 {
		bucketCount = 1
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return []HistogramBucket{{Low: lo, High: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bucketCount)
	buckets := make([]HistogramBucket, bucketCount)
	for i := range buckets {
		buckets[i].Low = lo + width*float64(i)
		buckets[i].High = lo + width*float64(i+1)
	}
	buckets[bucketCount-1].High = hi
	for _, v := range values {
		idx := int(math.Floor((v - lo) / width))
		if idx >= bucketCount {
			idx = bucketCount - 1
		}
		buckets[idx].Count++
	}
	return buckets
}

// IQM returns the interquartile mean: values are sorted ascending, the
// lowest and highest quarter (rounded down) are dropped, and the rest is
// averaged. With fewer than four values nothing is dropped and IQM equals
// the plain mean.
func IQM(values []float64) (float64, error) {
	n := len(values)
	if n == 0 {
		return 0, ErrInsufficientSamples
	}
	ordered := make([]float64, n)
	copy(ordered, values)
	sort.Float64s(ordered)

	cut := n / 4
	middle := ordered[cut : n-cut]
	if len(middle) == 0 {
		return 0, ErrInsufficientSamples
	}
	return Mean(middle), nil
}

func successfulMs(samples []PingSample) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Lost {
			continue
		}
		out = append(out, float64(s.RTT.Microseconds())/1000.0)
	}
	return out
}
