package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/NodePath81/netgauge/internal/engine"
)

// Document is the JSON export shape. Field layout follows the common
// speedtest CLI output so downstream tooling can ingest it unchanged.
type Document struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`

	Ping     LatencyDoc  `json:"ping"`
	Download TransferDoc `json:"download"`
	Upload   TransferDoc `json:"upload"`
	Server   ServerDoc   `json:"server"`
}

type LatencyDoc struct {
	MeanMs   float64 `json:"latency"`
	JitterMs float64 `json:"jitter"`
	MinMs    float64 `json:"low"`
	MaxMs    float64 `json:"high"`
	Loss     float64 `json:"packet_loss"`
}

type TransferDoc struct {
	Bandwidth float64    `json:"bandwidth"` // bits per second
	Bytes     int64      `json:"bytes"`
	ElapsedMs int64      `json:"elapsed"`
	Latency   LatencyDoc `json:"latency"`
	DeltaMs   float64    `json:"latency_delta"`
	Grade     string     `json:"bufferbloat_grade"`
}

type ServerDoc struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Sponsor  string  `json:"sponsor,omitempty"`
	Host     string  `json:"host"`
	Port     int     `json:"port"`
	Country  string  `json:"country,omitempty"`
	Distance float64 `json:"distance_km"`
	Version  string  `json:"version,omitempty"`
}

// NewDocument flattens a test result into the export shape.
func NewDocument(res *engine.TestResult) Document {
	return Document{
		Type:      "result",
		Timestamp: res.Timestamp,
		ID:        res.ID.String(),
		Ping: LatencyDoc{
			MeanMs:   res.Idle.MeanMs,
			JitterMs: res.Idle.JitterMs,
			MinMs:    res.Idle.MinMs,
			MaxMs:    res.Idle.MaxMs,
			Loss:     res.Idle.Loss,
		},
		Download: transferDoc(res, true),
		Upload:   transferDoc(res, false),
		Server: ServerDoc{
			ID:       res.Server.ID,
			Name:     res.Server.Name,
			Sponsor:  res.Server.Sponsor,
			Host:     res.Server.Host,
			Port:     res.Server.Port,
			Country:  res.Server.Country,
			Distance: res.Server.DistanceKm,
			Version:  res.ServerVersion,
		},
	}
}

func transferDoc(res *engine.TestResult, download bool) TransferDoc {
	tr, loaded := res.Download, res.DownloadLoaded
	if !download {
		tr, loaded = res.Upload, res.UploadLoaded
	}
	return TransferDoc{
		Bandwidth: tr.BitsPerSecond,
		Bytes:     tr.Bytes,
		ElapsedMs: tr.Duration.Milliseconds(),
		Latency: LatencyDoc{
			MeanMs:   loaded.Latency.MeanMs,
			JitterMs: loaded.Latency.JitterMs,
			MinMs:    loaded.Latency.MinMs,
			MaxMs:    loaded.Latency.MaxMs,
			Loss:     loaded.Latency.Loss,
		},
		DeltaMs: loaded.DeltaMs,
		Grade:   string(loaded.Grade),
	}
}

// WriteJSON renders the document to w, indented.
func WriteJSON(w io.Writer, res *engine.TestResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(res))
}

// SaveJSON writes the document to path atomically: the file appears
// complete or not at all.
func SaveJSON(path string, res *engine.TestResult) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".netgauge-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteJSON(tmp, res); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
