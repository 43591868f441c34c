package transfer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NodePath81/netgauge/internal/util"
)

func testConfig(url string) Config {
	return Config{
		URL:            url,
		Connections:    2,
		Duration:       700 * time.Millisecond,
		SampleInterval: 50 * time.Millisecond,
		Warmup:         200 * time.Millisecond,
		ConnectTimeout: 2 * time.Second,
	}
}

func startDownloadServer(t *testing.T) *httptest.Server {
	t.Helper()
	chunk := make([]byte, 64<<10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func startUploadServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadPhase(t *testing.T) {
	srv := startDownloadServer(t)
	tester := NewTester(util.NewQuietLogger())

	res, err := tester.Run(context.Background(), Download, testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.BitsPerSecond <= 0 {
		t.Fatalf("throughput = %v, want > 0", res.BitsPerSecond)
	}
	if res.Bytes <= 0 {
		t.Fatalf("bytes = %d, want > 0", res.Bytes)
	}
	if res.Connections < 1 || res.Connections > 2 {
		t.Fatalf("connections = %d, want 1..2", res.Connections)
	}
	if res.Discarded >= res.SampleCount {
		t.Fatalf("discarded %d of %d samples", res.Discarded, res.SampleCount)
	}
	if len(res.Rates) == 0 {
		t.Fatalf("no retained interval rates")
	}
}

func TestUploadPhase(t *testing.T) {
	srv := startUploadServer(t)
	tester := NewTester(util.NewQuietLogger())

	res, err := tester.Run(context.Background(), Upload, testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.BitsPerSecond <= 0 {
		t.Fatalf("throughput = %v, want > 0", res.BitsPerSecond)
	}
	if res.Bytes <= 0 {
		t.Fatalf("bytes = %d, want > 0", res.Bytes)
	}
}

func TestRunNoConnections(t *testing.T) {
	// Grab a port nobody is listening on.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tester := NewTester(util.NewQuietLogger())
	cfg := testConfig(url)
	_, err := tester.Run(context.Background(), Download, cfg)
	if !errors.Is(err, ErrNoConnections) {
		t.Fatalf("expected ErrNoConnections, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	srv := startDownloadServer(t)
	tester := NewTester(util.NewQuietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	cfg := testConfig(srv.URL)
	cfg.Duration = 30 * time.Second
	start := time.Now()
	_, err := tester.Run(ctx, Download, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation took %v to tear the phase down", elapsed)
	}
}

func TestPayloadReaderCounts(t *testing.T) {
	counter := &Counter{}
	pr := &payloadReader{ctx: context.Background(), counter: counter, buf: make([]byte, 1024)}

	buf := make([]byte, 300)
	total := 0
	for i := 0; i < 10; i++ {
		n, err := pr.Read(buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		total += n
	}
	if counter.Load() != int64(total) {
		t.Fatalf("counter = %d, want %d", counter.Load(), total)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := &payloadReader{ctx: ctx, counter: counter, buf: make([]byte, 1024)}
	if _, err := done.Read(buf); err != io.EOF {
		t.Fatalf("cancelled payload read = %v, want EOF", err)
	}
}
