package stats

import (
	"errors"
	"math"
	"testing"
	"time"
)

func ms(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}

func okSample(rttMs float64) PingSample {
	return PingSample{RTT: ms(rttMs)}
}

func lostSample() PingSample {
	return PingSample{Lost: true}
}

func TestIQMSymmetric(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	got, err := IQM(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// drop 3 from each end, mean of [4..9]
	if math.Abs(got-6.5) > 1e-9 {
		t.Fatalf("IQM = %v, want 6.5", got)
	}
}

func TestIQMBimodal(t *testing.T) {
	values := []float64{10, 10, 10, 10, 90, 90, 90, 90}
	got, err := IQM(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-50) > 1e-9 {
		t.Fatalf("IQM = %v, want 50", got)
	}
}

func TestIQMSuppressesOutliers(t *testing.T) {
	values := []float64{1, 10, 10, 10, 10, 10, 10, 100}
	got, err := IQM(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-10) > 1e-9 {
		t.Fatalf("IQM = %v, want 10", got)
	}
}

func TestIQMSmallInputFallsBackToMean(t *testing.T) {
	got, err := IQM([]float64{10, 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-15) > 1e-9 {
		t.Fatalf("IQM of two values = %v, want 15", got)
	}
}

func TestIQMEmpty(t *testing.T) {
	if _, err := IQM(nil); !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples, got %v", err)
	}
}

func TestIQMWithinRetainedRange(t *testing.T) {
	values := []float64{3, 17, 5, 200, 1, 8, 9, 12, 4, 6, 7, 11, 2, 13}
	got, err := IQM(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got < 1 || got > 200 {
		t.Fatalf("IQM = %v outside observed range", got)
	}
}

func TestJitterConstantSequence(t *testing.T) {
	samples := make([]PingSample, 100)
	for i := range samples {
		samples[i] = okSample(25)
	}
	if got := Jitter(samples); got != 0 {
		t.Fatalf("jitter of constant sequence = %v, want 0", got)
	}
}

func TestJitterIgnoresLostSamples(t *testing.T) {
	samples := []PingSample{okSample(10), lostSample(), okSample(20), okSample(30)}
	got := Jitter(samples)
	if math.Abs(got-10) > 1e-9 {
		t.Fatalf("jitter = %v, want 10", got)
	}
}

func TestLossRatio(t *testing.T) {
	if got := LossRatio(nil); got != 0 {
		t.Fatalf("empty loss = %v, want 0", got)
	}
	none := []PingSample{okSample(1), okSample(2)}
	if got := LossRatio(none); got != 0 {
		t.Fatalf("none-lost ratio = %v, want 0", got)
	}
	all := []PingSample{lostSample(), lostSample(), lostSample()}
	if got := LossRatio(all); got != 1 {
		t.Fatalf("all-lost ratio = %v, want 1", got)
	}
	mixed := []PingSample{okSample(1), lostSample(), okSample(2), lostSample()}
	if got := LossRatio(mixed); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("mixed ratio = %v, want 0.5", got)
	}
}

func TestHistogramSingleValue(t *testing.T) {
	buckets := Histogram([]float64{7, 7, 7}, 5)
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket for min==max, got %d", len(buckets))
	}
	if buckets[0].Count != 3 {
		t.Fatalf("bucket count = %d, want 3", buckets[0].Count)
	}
}

func TestHistogramSpansRange(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	buckets := Histogram(values, 5)
	if len(buckets) != 5 {
		t.Fatalf("bucket count = %d, want 5", len(buckets))
	}
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	if total != len(values) {
		t.Fatalf("histogram covers %d values, want %d", total, len(values))
	}
	if buckets[0].Low != 0 || buckets[4].High != 9 {
		t.Fatalf("histogram bounds [%v, %v], want [0, 9]", buckets[0].Low, buckets[4].High)
	}
	// max value lands in the last bucket
	if buckets[4].Count == 0 {
		t.Fatalf("max value missing from last bucket")
	}
}

func TestHistogramClampsBucketCount(t *testing.T) {
	buckets := Histogram([]float64{1, 2}, 0)
	if len(buckets) != 1 {
		t.Fatalf("bucket count = %d, want 1", len(buckets))
	}
}

func TestNewLatencyStats(t *testing.T) {
	samples := []PingSample{
		okSample(19), okSample(21), okSample(20), okSample(20),
		okSample(21), okSample(19), okSample(20), okSample(21),
		okSample(19), okSample(20),
	}
	ls := NewLatencyStats(samples)
	if ls.Loss != 0 {
		t.Fatalf("loss = %v, want 0", ls.Loss)
	}
	if ls.JitterMs >= 2 {
		t.Fatalf("jitter = %v, want < 2", ls.JitterMs)
	}
	if ls.MinMs != 19 || ls.MaxMs != 21 {
		t.Fatalf("range [%v, %v], want [19, 21]", ls.MinMs, ls.MaxMs)
	}
	if math.Abs(ls.MeanMs-20) > 0.5 {
		t.Fatalf("mean = %v, want ~20", ls.MeanMs)
	}
	if ls.Count() != 10 {
		t.Fatalf("count = %d, want 10", ls.Count())
	}
}

func TestNewLatencyStatsAllLost(t *testing.T) {
	ls := NewLatencyStats([]PingSample{lostSample(), lostSample()})
	if ls.Loss != 1 {
		t.Fatalf("loss = %v, want 1", ls.Loss)
	}
	if ls.MeanMs != 0 || ls.Histogram != nil {
		t.Fatalf("all-lost stats should have zero RTT figures")
	}
}

func TestMedian(t *testing.T) {
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("odd median = %v, want 2", got)
	}
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("even median = %v, want 2.5", got)
	}
}
