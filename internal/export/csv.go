package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/NodePath81/netgauge/internal/engine"
)

// csvHeader is the column order for CSV exports. Stable: append-only.
var csvHeader = []string{
	"timestamp", "id", "server_id", "server_host",
	"idle_mean_ms", "idle_jitter_ms", "idle_loss",
	"download_bps", "upload_bps", "download_bytes", "upload_bytes",
	"download_delta_ms", "upload_delta_ms",
	"download_grade", "upload_grade",
}

func csvRow(res *engine.TestResult) []string {
	return []string{
		res.Timestamp.Format(time.RFC3339),
		res.ID.String(),
		fmt.Sprintf("%d", res.Server.ID),
		res.Server.Host,
		fmt.Sprintf("%.3f", res.Idle.MeanMs),
		fmt.Sprintf("%.3f", res.Idle.JitterMs),
		fmt.Sprintf("%.4f", res.Idle.Loss),
		fmt.Sprintf("%.0f", res.Download.BitsPerSecond),
		fmt.Sprintf("%.0f", res.Upload.BitsPerSecond),
		fmt.Sprintf("%d", res.Download.Bytes),
		fmt.Sprintf("%d", res.Upload.Bytes),
		fmt.Sprintf("%.3f", res.DownloadLoaded.DeltaMs),
		fmt.Sprintf("%.3f", res.UploadLoaded.DeltaMs),
		string(res.DownloadLoaded.Grade),
		string(res.UploadLoaded.Grade),
	}
}

// WriteCSV writes a header plus one row for the result.
func WriteCSV(w io.Writer, res *engine.TestResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	if err := cw.Write(csvRow(res)); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// AppendCSV appends a row to path, writing the header first when the
// file is new or empty.
func AppendCSV(path string, res *engine.TestResult) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
	}
	if err := cw.Write(csvRow(res)); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
