package discovery

import (
	"context"
	"time"

	"github.com/NodePath81/netgauge/internal/probe"
	"github.com/NodePath81/netgauge/internal/stats"
	"github.com/NodePath81/netgauge/internal/util"
)

const (
	shootoutProbes  = 3
	shootoutTimeout = time.Second
)

// Selector runs a short latency shoot-out across candidate servers and
// picks the one with the lowest mean round-trip time.
type Selector struct {
	logger  util.Logger
	probes  int
	timeout time.Duration

	newPinger func(Server) (probe.Pinger, error)
}

func NewSelector(logger util.Logger) *Selector {
	return &Selector{
		logger:  logger,
		probes:  shootoutProbes,
		timeout: shootoutTimeout,
		newPinger: func(s Server) (probe.Pinger, error) {
			return probe.NewWSPinger(s.WSURL())
		},
	}
}

// Best probes every candidate in turn and returns the fastest reachable
// one. Unreachable candidates are skipped; if none respond the result
// is ErrNoServers.
func (sel *Selector) Best(ctx context.Context, candidates []Server) (Server, error) {
	var (
		best     Server
		bestMean = -1.0
	)
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return Server{}, err
		}
		mean, err := sel.probeMean(ctx, cand)
		if err != nil {
			sel.logger.Debug("candidate unreachable", "server", cand.Label(), "error", err)
			continue
		}
		sel.logger.Debug("candidate probed", "server", cand.Label(), "mean_ms", mean)
		if bestMean < 0 || mean < bestMean {
			best, bestMean = cand, mean
		}
	}
	if bestMean < 0 {
		return Server{}, ErrNoServers
	}
	return best, nil
}

func (sel *Selector) probeMean(ctx context.Context, s Server) (float64, error) {
	pinger, err := sel.newPinger(s)
	if err != nil {
		return 0, err
	}
	defer pinger.Close()

	samples, err := probe.Measure(ctx, pinger, sel.probes, sel.timeout)
	if err != nil {
		return 0, err
	}
	ls := stats.NewLatencyStats(samples)
	if ls.Loss >= 1 {
		return 0, probe.ErrConnection
	}
	return ls.MeanMs, nil
}
