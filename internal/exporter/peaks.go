package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"watchlens/internal/insights"
)

// PeaksCSVHeader is the column order of the peaks artifact written by
// the report command.
var PeaksCSVHeader = []string{"Date", "Views", "Baseline", "Ratio"}

// Peaks writes detected engagement peaks as CSV in the order given,
// which DetectPeaks already ranks highest views first. It returns the
// number of data rows written.
func Peaks(w io.Writer, peaks []insights.Peak, opts Options) (int, error) {
	if err := writeBOM(w, opts); err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(PeaksCSVHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	written := 0
	for _, peak := range peaks {
		row := []string{
			peak.Date,
			strconv.Itoa(peak.Views),
			formatFloat(peak.Baseline),
			formatFloat(peak.Ratio),
		}
		if err := cw.Write(row); err != nil {
			return written, fmt.Errorf("write row %d: %w", written+1, err)
		}
		written++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, fmt.Errorf("flush peaks csv: %w", err)
	}
	return written, nil
}
