package engine

import (
	"time"

	"github.com/NodePath81/netgauge/internal/discovery"
	"github.com/NodePath81/netgauge/internal/stats"
	"github.com/NodePath81/netgauge/internal/transfer"
	"github.com/google/uuid"
)

const (
	DefaultPingCount       = 10
	DefaultPingTimeout     = 2 * time.Second
	DefaultConnections     = 4
	DefaultPhaseDuration   = 10 * time.Second
	DefaultSampleInterval  = 200 * time.Millisecond
	DefaultWarmup          = 2 * time.Second
	DefaultMonitorInterval = 250 * time.Millisecond
)

// Probe channel selection. The websocket channel also reports the
// server version; ICMP needs raw-socket privileges.
const (
	ProbeWS   = "ws"
	ProbeICMP = "icmp"
)

// TestConfig carries every knob for one full run. External callers build
// it (from flags or a config file) and pass it in fully populated;
// normalize fills gaps with defaults.
type TestConfig struct {
	Probe            string
	PingCount        int
	PingTimeout      time.Duration
	Connections      int
	DownloadDuration time.Duration
	UploadDuration   time.Duration
	SampleInterval   time.Duration
	Warmup           time.Duration
	ConnectTimeout   time.Duration
	MonitorInterval  time.Duration
	GradeThresholds  []GradeThreshold
}

func (c *TestConfig) normalize() {
	if c.Probe == "" {
		c.Probe = ProbeWS
	}
	if c.PingCount <= 0 {
		c.PingCount = DefaultPingCount
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = DefaultPingTimeout
	}
	if c.Connections <= 0 {
		c.Connections = DefaultConnections
	}
	if c.DownloadDuration <= 0 {
		c.DownloadDuration = DefaultPhaseDuration
	}
	if c.UploadDuration <= 0 {
		c.UploadDuration = DefaultPhaseDuration
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = DefaultSampleInterval
	}
	if c.Warmup <= 0 {
		c.Warmup = DefaultWarmup
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = DefaultMonitorInterval
	}
	if len(c.GradeThresholds) == 0 {
		c.GradeThresholds = DefaultGradeThresholds()
	}
}

// LoadedLatencyResult captures latency behaviour under load for one
// throughput phase.
type LoadedLatencyResult struct {
	Latency stats.LatencyStats
	DeltaMs float64 // loaded mean minus idle baseline mean
	Grade   Grade
}

// TestResult is the aggregate outcome of a complete run. Immutable once
// assembled; the only entity handed across the engine boundary.
type TestResult struct {
	ID            uuid.UUID
	Server        discovery.Server
	ServerVersion string
	Timestamp     time.Time

	Idle           stats.LatencyStats
	Download       transfer.Result
	Upload         transfer.Result
	DownloadLoaded LoadedLatencyResult
	UploadLoaded   LoadedLatencyResult
}
