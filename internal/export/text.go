package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/NodePath81/netgauge/internal/engine"
	"github.com/NodePath81/netgauge/internal/history"
	"github.com/NodePath81/netgauge/internal/util"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders per-interval rates as a compact unicode bar strip.
func Sparkline(rates []float64) string {
	if len(rates) == 0 {
		return ""
	}
	lo, hi := rates[0], rates[0]
	for _, r := range rates[1:] {
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}
	var b strings.Builder
	for _, r := range rates {
		idx := 0
		if hi > lo {
			idx = int((r - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}

// HistorySparkline renders one figure across stored runs as a sparkline,
// oldest run leftmost. Entries arrive from the store newest first.
func HistorySparkline(entries []history.Entry, value func(history.Entry) float64) string {
	rates := make([]float64, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		rates = append(rates, value(entries[i]))
	}
	return Sparkline(rates)
}

// WriteSummary renders a human-readable report of one run.
func WriteSummary(w io.Writer, res *engine.TestResult) {
	fmt.Fprintf(w, "Server:    %s [%s] (%.1f km)\n",
		res.Server.Label(), res.Server.Host, res.Server.DistanceKm)
	fmt.Fprintf(w, "Latency:   %s  (jitter %.1f ms, loss %.1f%%)\n",
		util.FormatLatency(res.Idle.Mean()), res.Idle.JitterMs, res.Idle.Loss*100)

	writeDirection(w, "Download", res.Download.BitsPerSecond, res.Download.Bytes,
		res.Download.Rates, res.DownloadLoaded)
	writeDirection(w, "Upload", res.Upload.BitsPerSecond, res.Upload.Bytes,
		res.Upload.Rates, res.UploadLoaded)

	fmt.Fprintf(w, "Result ID: %s\n", res.ID)
}

func writeDirection(w io.Writer, name string, bps float64, bytes int64, rates []float64, loaded engine.LoadedLatencyResult) {
	fmt.Fprintf(w, "%-10s %s  (%s transferred)\n",
		name+":", util.FormatBitsPerSecond(bps), util.FormatBytes(float64(bytes)))
	if spark := Sparkline(rates); spark != "" {
		fmt.Fprintf(w, "           %s\n", spark)
	}
	fmt.Fprintf(w, "  loaded latency %s  (%+.1f ms, bufferbloat grade %s)\n",
		util.FormatLatency(time.Duration(loaded.Latency.MeanMs*float64(time.Millisecond))),
		loaded.DeltaMs, loaded.Grade)
}
