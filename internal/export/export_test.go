package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NodePath81/netgauge/internal/discovery"
	"github.com/NodePath81/netgauge/internal/engine"
	"github.com/NodePath81/netgauge/internal/history"
	"github.com/NodePath81/netgauge/internal/stats"
	"github.com/NodePath81/netgauge/internal/transfer"
	"github.com/google/uuid"
)

func sampleResult() *engine.TestResult {
	return &engine.TestResult{
		ID:        uuid.MustParse("a2f1c06e-43c1-4a1d-9c6e-2a8f0f6d9b11"),
		Server:    discovery.Server{ID: 7, Name: "Test City", Sponsor: "ExampleNet", Host: "test.example.com", Port: 8080, DistanceKm: 12.3},
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Idle: stats.NewLatencyStats([]stats.PingSample{
			{RTT: 18 * time.Millisecond},
			{RTT: 22 * time.Millisecond},
		}),
		Download: transfer.Result{
			BitsPerSecond: 95e6,
			Bytes:         118750000,
			Duration:      10 * time.Second,
			Rates:         []float64{80e6, 90e6, 95e6, 100e6, 95e6},
		},
		Upload: transfer.Result{
			BitsPerSecond: 20e6,
			Bytes:         25000000,
			Duration:      10 * time.Second,
			Rates:         []float64{20e6, 20e6},
		},
		DownloadLoaded: engine.LoadedLatencyResult{
			Latency: stats.NewLatencyStats([]stats.PingSample{{RTT: 45 * time.Millisecond}}),
			DeltaMs: 25,
			Grade:   engine.GradeB,
		},
		UploadLoaded: engine.LoadedLatencyResult{
			Latency: stats.NewLatencyStats([]stats.PingSample{{RTT: 30 * time.Millisecond}}),
			DeltaMs: 10,
			Grade:   engine.GradeB,
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("round-trip: %v", err)
	}
	if doc.Type != "result" {
		t.Fatalf("type = %q", doc.Type)
	}
	if doc.Download.Bandwidth != 95e6 {
		t.Fatalf("download bandwidth = %v", doc.Download.Bandwidth)
	}
	if doc.Download.Grade != "B" {
		t.Fatalf("grade = %q", doc.Download.Grade)
	}
	if doc.Server.Host != "test.example.com" {
		t.Fatalf("server host = %q", doc.Server.Host)
	}
	if doc.Ping.MeanMs < 19 || doc.Ping.MeanMs > 21 {
		t.Fatalf("ping mean = %v", doc.Ping.MeanMs)
	}
}

func TestSaveJSONAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "result.json")

	if err := SaveJSON(path, sampleResult()); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !json.Valid(data) {
		t.Fatal("saved file is not valid JSON")
	}

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".netgauge-*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestAppendCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")

	for i := 0; i < 2; i++ {
		if err := AppendCSV(path, sampleResult()); err != nil {
			t.Fatalf("AppendCSV %d: %v", i, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Fatalf("header = %v", rows[0])
	}
	if len(rows[1]) != len(csvHeader) {
		t.Fatalf("row width = %d, want %d", len(rows[1]), len(csvHeader))
	}
}

func TestSparkline(t *testing.T) {
	if s := Sparkline(nil); s != "" {
		t.Fatalf("empty rates = %q", s)
	}
	s := Sparkline([]float64{0, 50, 100})
	runes := []rune(s)
	if len(runes) != 3 {
		t.Fatalf("length = %d", len(runes))
	}
	if runes[0] != '▁' || runes[2] != '█' {
		t.Fatalf("sparkline = %q", s)
	}
	if flat := Sparkline([]float64{5, 5, 5}); flat != "▁▁▁" {
		t.Fatalf("flat sparkline = %q", flat)
	}
}

func TestHistorySparkline(t *testing.T) {
	// Store order is newest first; the strip reads oldest to newest.
	entries := []history.Entry{
		{DownloadBps: 100e6},
		{DownloadBps: 50e6},
		{DownloadBps: 10e6},
	}
	s := HistorySparkline(entries, func(e history.Entry) float64 { return e.DownloadBps })
	runes := []rune(s)
	if len(runes) != 3 {
		t.Fatalf("length = %d", len(runes))
	}
	if runes[0] != '▁' || runes[2] != '█' {
		t.Fatalf("sparkline = %q, want rising left to right", s)
	}
	if HistorySparkline(nil, func(e history.Entry) float64 { return e.DownloadBps }) != "" {
		t.Fatal("empty history produced a sparkline")
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteSummary(&buf, sampleResult())
	out := buf.String()

	for _, want := range []string{"ExampleNet (Test City)", "95.0 Mbps", "+25.0 ms", "grade B", "Result ID:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSummaryNegativeDelta(t *testing.T) {
	res := sampleResult()
	res.UploadLoaded.DeltaMs = -3.2

	var buf bytes.Buffer
	WriteSummary(&buf, res)
	out := buf.String()
	if !strings.Contains(out, "-3.2 ms") {
		t.Fatalf("negative delta not rendered:\n%s", out)
	}
	if strings.Contains(out, "+-") {
		t.Fatalf("double sign in summary:\n%s", out)
	}
}
