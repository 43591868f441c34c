package transfer

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/NodePath81/netgauge/internal/stats"
	"github.com/NodePath81/netgauge/internal/util"
)

const (
	defaultConnectTimeout = 5 * time.Second
	workerRetryDelay      = 200 * time.Millisecond
)

// Tester runs throughput phases. One Tester can serve multiple phases;
// the upload payload buffer is generated once and shared read-only.
type Tester struct {
	logger  util.Logger
	payload []byte
}

func NewTester(logger util.Logger) *Tester {
	payload := make([]byte, payloadBufferSize)
	if _, err := rand.Read(payload); err != nil {
		// crypto/rand never fails on supported platforms; a zero
		// payload would still measure correctly, just compressibly.
		logger.Warn("payload generation fell back to zeros", "error", err)
	}
	return &Tester{logger: logger, payload: payload}
}

// Run measures throughput in the given direction for cfg.Duration. At
// least one of cfg.Connections workers must establish; partial failures
// are absorbed. The phase deadline tears down every connection and the
// sampler before statistics are computed.
func (t *Tester) Run(ctx context.Context, dir Direction, cfg Config) (*Result, error) {
	if cfg.Connections <= 0 {
		cfg.Connections = 1
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 200 * time.Millisecond
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}

	phaseCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	counters := make([]*Counter, cfg.Connections)
	workers := make([]*worker, cfg.Connections)
	estCh := make(chan bool, cfg.Connections)
	var wg sync.WaitGroup
	for i := range workers {
		counters[i] = &Counter{}
		workers[i] = newWorker(i, dir, cfg.URL, counters[i], t.payload, t.logger)
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			w.run(phaseCtx, estCh)
		}(workers[i])
	}

	established, err := t.awaitEstablishment(ctx, estCh, cfg)
	if err != nil {
		cancel()
		wg.Wait()
		return nil, err
	}

	start := time.Now()
	sampleCh := make(chan []Sample, 1)
	go sampler(phaseCtx, counters, cfg.SampleInterval, sampleCh)

	select {
	case <-time.After(cfg.Duration):
		// Deadline reached: normal end of phase.
	case <-ctx.Done():
		cancel()
		wg.Wait()
		<-sampleCh
		return nil, ctx.Err()
	}
	cancel()
	wg.Wait()
	samples := <-sampleCh
	elapsed := time.Since(start)

	red, err := reduce(samples, cfg.Warmup)
	if err != nil {
		return nil, fmt.Errorf("%s phase produced no usable samples: %w", dir, err)
	}
	iqm, err := stats.IQM(red.rates)
	if err != nil {
		return nil, fmt.Errorf("%s phase: %w", dir, err)
	}

	res := &Result{
		BitsPerSecond: iqm,
		Bytes:         snapshot(counters),
		Duration:      elapsed,
		SampleCount:   red.raw,
		Discarded:     red.discarded,
		Rates:         red.rates,
		Connections:   established,
	}
	for _, w := range workers {
		retrans, segs := w.tcpStats()
		res.Retransmits += retrans
		res.SegmentsSent += segs
	}
	t.logger.Info("throughput phase complete",
		"direction", dir.String(),
		"bps", res.BitsPerSecond,
		"bytes", res.Bytes,
		"connections", established,
		"samples", res.SampleCount,
		"discarded", res.Discarded)
	return res, nil
}

// awaitEstablishment gathers per-worker connect reports. Zero successes
// after every worker reported is ErrNoConnections; zero successes when
// the connect window closes first is ErrPhaseTimeout.
func (t *Tester) awaitEstablishment(ctx context.Context, estCh <-chan bool, cfg Config) (int, error) {
	deadline := time.NewTimer(cfg.ConnectTimeout)
	defer deadline.Stop()

	established, reported := 0, 0
	for reported < cfg.Connections {
		select {
		case ok := <-estCh:
			reported++
			if ok {
				established++
			}
		case <-deadline.C:
			if established == 0 {
				return 0, ErrPhaseTimeout
			}
			return established, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if established == 0 {
		return 0, ErrNoConnections
	}
	return established, nil
}
