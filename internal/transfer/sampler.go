package transfer

import (
	"context"
	"time"
)

// Sample is one reading of the summed cumulative byte counters across all
// connection workers, taken at a fixed interval.
type Sample struct {
	At    time.Time
	Bytes int64
}

// sampler snapshots the counters on every tick until ctx is cancelled,
// then delivers the complete ordered sequence on out. It only ever reads
// the counters; the sequence is safe to consume once out yields.
func sampler(ctx context.Context, counters []*Counter, interval time.Duration, out chan<- []Sample) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	samples := []Sample{{At: time.Now(), Bytes: snapshot(counters)}}
	for {
		select {
		case <-ctx.Done():
			out <- samples
			return
		case <-ticker.C:
			samples = append(samples, Sample{At: time.Now(), Bytes: snapshot(counters)})
		}
	}
}

func snapshot(counters []*Counter) int64 {
	var total int64
	for _, c := range counters {
		total += c.Load()
	}
	return total
}
