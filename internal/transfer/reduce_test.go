package transfer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/NodePath81/netgauge/internal/stats"
)

// linearSamples synthesizes cumulative samples growing at rateBps with
// the given spacing.
func linearSamples(n int, spacing time.Duration, rateBps float64) []Sample {
	base := time.Unix(1700000000, 0)
	samples := make([]Sample, n)
	bytesPerInterval := rateBps / 8 * spacing.Seconds()
	for i := range samples {
		samples[i] = Sample{
			At:    base.Add(time.Duration(i) * spacing),
			Bytes: int64(float64(i) * bytesPerInterval),
		}
	}
	return samples
}

func TestReduceLinearRate(t *testing.T) {
	const rate = 100e6 // 100 Mbps
	samples := linearSamples(51, 200*time.Millisecond, rate)

	red, err := reduce(samples, 2*time.Second)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	iqm, err := stats.IQM(red.rates)
	if err != nil {
		t.Fatalf("IQM: %v", err)
	}
	if math.Abs(iqm-rate)/rate > 0.02 {
		t.Fatalf("IQM = %v, want within 2%% of %v", iqm, rate)
	}
	if red.raw != 51 {
		t.Fatalf("raw = %d, want 51", red.raw)
	}
	// 2s warm-up over 200ms intervals drops 10 intervals.
	if red.discarded != 10 {
		t.Fatalf("discarded = %d, want 10", red.discarded)
	}
	if len(red.rates) != 40 {
		t.Fatalf("retained = %d, want 40", len(red.rates))
	}
}

func TestReduceWarmupShrinksToLeaveOneInterval(t *testing.T) {
	// Phase shorter than the warm-up window: the discard must shrink
	// instead of eating every sample.
	samples := linearSamples(4, 100*time.Millisecond, 50e6)
	red, err := reduce(samples, 10*time.Second)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if len(red.rates) != 1 {
		t.Fatalf("retained = %d, want 1", len(red.rates))
	}
	if red.discarded != 2 {
		t.Fatalf("discarded = %d, want 2", red.discarded)
	}
}

func TestReduceTooFewSamples(t *testing.T) {
	if _, err := reduce(nil, time.Second); !errors.Is(err, stats.ErrInsufficientSamples) {
		t.Fatalf("empty: expected ErrInsufficientSamples, got %v", err)
	}
	one := linearSamples(1, time.Second, 1e6)
	if _, err := reduce(one, time.Second); !errors.Is(err, stats.ErrInsufficientSamples) {
		t.Fatalf("single sample: expected ErrInsufficientSamples, got %v", err)
	}
}

func TestReduceSkipsStalledClock(t *testing.T) {
	base := time.Unix(1700000000, 0)
	samples := []Sample{
		{At: base, Bytes: 0},
		{At: base, Bytes: 1000},                        // zero elapsed, skipped
		{At: base.Add(time.Second), Bytes: 2000},       // 1s, 8000 bits
		{At: base.Add(2 * time.Second), Bytes: 3000},   // 1s, 8000 bits
	}
	red, err := reduce(samples, 0)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if len(red.rates) != 2 {
		t.Fatalf("retained = %d, want 2", len(red.rates))
	}
}

func TestSamplerSnapshotsCounters(t *testing.T) {
	counters := []*Counter{{}, {}}
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan []Sample, 1)
	go sampler(ctx, counters, 10*time.Millisecond, out)

	for i := 0; i < 20; i++ {
		counters[0].Add(1000)
		counters[1].Add(500)
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	samples := <-out

	if len(samples) < 2 {
		t.Fatalf("sampler collected %d samples", len(samples))
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].At.Before(samples[i-1].At) {
			t.Fatalf("timestamps not monotonic at %d", i)
		}
		if samples[i].Bytes < samples[i-1].Bytes {
			t.Fatalf("cumulative bytes decreased at %d", i)
		}
	}
	if final := samples[len(samples)-1].Bytes; final > 30000 {
		t.Fatalf("sampler read %d bytes, more than ever written", final)
	}
}
