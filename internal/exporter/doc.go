// Package exporter renders dataset views as CSV downloads and report
// artifacts.
//
// Three exports exist: the derived watch table in its canonical column
// order, the per-video summary table with fixed precision, and the
// detected engagement peaks. All writers stream to an io.Writer, count
// the data rows they emit, and can prefix the UTF-8 byte order mark so
// Excel opens downloads as UTF-8.
//
// Row counts are load-bearing: the HTTP layer compares the count
// against the filtered metric total so a download always matches the
// dashboard numbers it sits next to.
package exporter
