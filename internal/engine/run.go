package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/NodePath81/netgauge/internal/discovery"
	"github.com/NodePath81/netgauge/internal/probe"
	"github.com/NodePath81/netgauge/internal/stats"
	"github.com/NodePath81/netgauge/internal/transfer"
	"github.com/NodePath81/netgauge/internal/util"
	"github.com/google/uuid"
)

// Phase identifies which stage of a run an error came from.
type Phase string

const (
	PhaseBaseline Phase = "baseline_latency"
	PhaseDownload Phase = "download"
	PhaseUpload   Phase = "upload"
)

// PhaseError wraps a failure with the phase it happened in. Unwrap
// preserves the cause so callers can still test for sentinel errors.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

type state string

const (
	stateIdle     state = "idle"
	stateBaseline state = "baseline_latency"
	stateDownload state = "download"
	stateUpload   state = "upload"
	stateComplete state = "complete"
	stateFailed   state = "failed"
)

// throughputRunner is what the engine needs from the transfer layer.
type throughputRunner interface {
	Run(ctx context.Context, dir transfer.Direction, cfg transfer.Config) (*transfer.Result, error)
}

// Runner drives one complete measurement: baseline latency probing, then
// a download and an upload phase, each with a concurrent loaded-latency
// monitor. A Runner is single-use; state only ever moves forward.
type Runner struct {
	cfg    TestConfig
	server discovery.Server
	logger util.Logger

	newPinger func() (probe.Pinger, error)
	tester    throughputRunner

	state state
}

func NewRunner(cfg TestConfig, server discovery.Server, logger util.Logger) *Runner {
	cfg.normalize()
	return &Runner{
		cfg:    cfg,
		server: server,
		logger: logger,
		newPinger: func() (probe.Pinger, error) {
			if cfg.Probe == ProbeICMP {
				return probe.NewICMPPinger(server.Host)
			}
			return probe.NewWSPinger(server.WSURL())
		},
		tester: transfer.NewTester(logger),
		state:  stateIdle,
	}
}

// Run executes the full measurement. On any phase failure no partial
// TestResult is returned; the error carries the phase and the cause.
func (r *Runner) Run(ctx context.Context) (*TestResult, error) {
	started := time.Now().UTC()

	r.transition(stateBaseline)
	idle, version, err := r.baseline(ctx)
	if err != nil {
		return nil, r.fail(PhaseBaseline, err)
	}

	r.transition(stateDownload)
	download, downloadLoaded, err := r.loadedPhase(ctx, transfer.Download,
		r.server.DownloadURL(), r.cfg.DownloadDuration, idle)
	if err != nil {
		return nil, r.fail(PhaseDownload, err)
	}

	r.transition(stateUpload)
	upload, uploadLoaded, err := r.loadedPhase(ctx, transfer.Upload,
		r.server.UploadURL(), r.cfg.UploadDuration, idle)
	if err != nil {
		return nil, r.fail(PhaseUpload, err)
	}

	r.transition(stateComplete)
	result := &TestResult{
		ID:             uuid.New(),
		Server:         r.server,
		ServerVersion:  version,
		Timestamp:      started,
		Idle:           idle,
		Download:       *download,
		Upload:         *upload,
		DownloadLoaded: downloadLoaded,
		UploadLoaded:   uploadLoaded,
	}
	r.logger.Info("test complete",
		"id", result.ID,
		"server", r.server.Label(),
		"idle_ms", idle.MeanMs,
		"download_bps", download.BitsPerSecond,
		"upload_bps", upload.BitsPerSecond,
		"download_grade", string(downloadLoaded.Grade),
		"upload_grade", string(uploadLoaded.Grade))
	return result, nil
}

// baseline probes idle latency before any load is applied.
func (r *Runner) baseline(ctx context.Context) (stats.LatencyStats, string, error) {
	pinger, err := r.newPinger()
	if err != nil {
		return stats.LatencyStats{}, "", err
	}
	defer pinger.Close()

	samples, err := probe.Measure(ctx, pinger, r.cfg.PingCount, r.cfg.PingTimeout)
	if err != nil {
		return stats.LatencyStats{}, "", err
	}

	var version string
	if wp, ok := pinger.(*probe.WSPinger); ok {
		version = wp.ServerVersion()
	}

	idle := stats.NewLatencyStats(samples)
	r.logger.Info("baseline latency",
		"mean_ms", idle.MeanMs,
		"jitter_ms", idle.JitterMs,
		"loss", idle.Loss)
	return idle, version, nil
}

// loadedPhase runs one throughput direction with a latency monitor on
// its own probe channel. The monitor context is cancelled the instant
// the tester returns, so its samples cover exactly the loaded window.
func (r *Runner) loadedPhase(ctx context.Context, dir transfer.Direction, url string, duration time.Duration, idle stats.LatencyStats) (*transfer.Result, LoadedLatencyResult, error) {
	monPinger, err := r.newPinger()
	if err != nil {
		return nil, LoadedLatencyResult{}, err
	}
	defer monPinger.Close()

	monCtx, monCancel := context.WithCancel(ctx)
	defer monCancel()
	monitor := probe.NewMonitor(monPinger, r.cfg.MonitorInterval, r.cfg.PingTimeout)
	monitorCh := make(chan []stats.PingSample, 1)
	go func() {
		monitorCh <- monitor.Run(monCtx)
	}()

	res, err := r.tester.Run(ctx, dir, transfer.Config{
		URL:            url,
		Connections:    r.cfg.Connections,
		Duration:       duration,
		SampleInterval: r.cfg.SampleInterval,
		Warmup:         r.cfg.Warmup,
		ConnectTimeout: r.cfg.ConnectTimeout,
	})
	monCancel()
	loadedSamples := <-monitorCh
	if err != nil {
		return nil, LoadedLatencyResult{}, err
	}

	return res, r.loadedResult(loadedSamples, idle), nil
}

// loadedResult grades latency under load against the idle baseline. A
// monitor whose probes were all lost counts as total bufferbloat; one
// that never got to probe at all stays ungraded.
func (r *Runner) loadedResult(samples []stats.PingSample, idle stats.LatencyStats) LoadedLatencyResult {
	loaded := stats.NewLatencyStats(samples)
	ll := LoadedLatencyResult{Latency: loaded}
	if len(samples) == 0 {
		return ll
	}
	if loaded.Loss >= 1 {
		ll.Grade = GradeF
		return ll
	}
	ll.DeltaMs = loaded.MeanMs - idle.MeanMs
	ll.Grade = gradeFor(ll.DeltaMs, r.cfg.GradeThresholds)
	return ll
}

func (r *Runner) transition(next state) {
	r.logger.Debug("state transition", "from", string(r.state), "to", string(next))
	r.state = next
}

func (r *Runner) fail(phase Phase, err error) error {
	r.transition(stateFailed)
	r.logger.Error("test failed", "phase", string(phase), "error", err)
	return &PhaseError{Phase: phase, Err: err}
}
