package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"watchlens/internal/dataprocessing"
	"watchlens/pkg/contracts/domain"
)

// utf8BOM marks a download as UTF-8 for Excel.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures CSV export behavior.
type Options struct {
	// BOM prefixes the output with the UTF-8 byte order mark.
	BOM bool
}

// Records streams derived records as CSV in the canonical table column
// order. It returns the number of data rows written, which equals
// len(records) on success. Without a BOM the output is byte-identical
// to the assembled table rendering.
func Records(w io.Writer, records []domain.DerivedRecord, opts Options) (int, error) {
	if err := writeBOM(w, opts); err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(dataprocessing.RecordsCSVHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	written := 0
	for i := range records {
		if err := cw.Write(dataprocessing.RecordCSVRow(records[i])); err != nil {
			return written, fmt.Errorf("write row %d: %w", written+1, err)
		}
		written++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, fmt.Errorf("flush records csv: %w", err)
	}
	return written, nil
}

// Summaries writes the per-video summary table with the standard fixed
// precision and returns the number of data rows written.
func Summaries(w io.Writer, summaries []domain.VideoSummary, opts Options) (int, error) {
	if err := writeBOM(w, opts); err != nil {
		return 0, err
	}

	summarizer := dataprocessing.NewSummarizer(dataprocessing.DefaultSummarizerConfig())
	rendered, err := summarizer.RenderCSV(summaries)
	if err != nil {
		return 0, fmt.Errorf("render summaries: %w", err)
	}
	if _, err := w.Write(rendered); err != nil {
		return 0, fmt.Errorf("write summaries: %w", err)
	}
	return len(summaries), nil
}

// Filename builds a timestamped attachment name for a download, such
// as "records_20230105_133000.csv".
func Filename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, now.UTC().Format("20060102_150405"))
}

func writeBOM(w io.Writer, opts Options) error {
	if !opts.BOM {
		return nil
	}
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	return nil
}
