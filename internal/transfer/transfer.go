// Package transfer measures sustained one-directional throughput over
// parallel HTTP connections, sampling cumulative byte counters on a fixed
// interval and aggregating interval rates with an interquartile mean.
package transfer

import (
	"errors"
	"time"
)

var (
	// ErrNoConnections means the phase could not establish a single
	// data connection and therefore never started transferring.
	ErrNoConnections = errors.New("no connections established")

	// ErrPhaseTimeout means connection establishment itself timed out
	// before any worker reported back; distinct from a phase that ran
	// slowly but completed.
	ErrPhaseTimeout = errors.New("phase failed to start before deadline")
)

// Direction selects the transfer direction relative to the client.
type Direction int

const (
	Download Direction = iota
	Upload
)

func (d Direction) String() string {
	if d == Upload {
		return "upload"
	}
	return "download"
}

// Config carries the per-phase knobs. The zero value is unusable; the
// engine fills every field from its TestConfig defaults.
type Config struct {
	URL            string // direction-specific endpoint
	Connections    int
	Duration       time.Duration
	SampleInterval time.Duration
	Warmup         time.Duration
	ConnectTimeout time.Duration
}

// Result is the outcome of one throughput phase.
type Result struct {
	BitsPerSecond float64
	Bytes         int64
	Duration      time.Duration

	// Diagnostics retained alongside the headline figure.
	SampleCount  int       // raw cumulative samples collected
	Discarded    int       // warm-up intervals dropped
	Rates        []float64 // retained interval rates, bits per second
	Connections  int       // connections that established
	Retransmits  uint64    // TCP_INFO, linux only
	SegmentsSent uint64
}
