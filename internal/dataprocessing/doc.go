// Package dataprocessing turns irregular spreadsheet exports of watch and
// questionnaire activity into the canonical dataset the dashboards serve.
// It consolidates column reconciliation, timestamp repair, duration and
// completion standardization, deduplication and feature derivation into
// one pipeline with full row accounting.
//
// # Architecture
//
// The pipeline has four stages:
//
// 1. Parser: reads one classified export (xlsx or CSV), reconciles its
// headers against the alias table and emits canonical rows
// 2. Deduplicator: drops exact duplicate rows across overlapping exports
// 3. Deriver: sorts chronologically and computes timestamp features,
// repeat-viewer flags and metadata enrichment
// 4. Summarizer: groups the derived table into per-video aggregates
//
// # Usage
//
// Building the full dataset:
//
//	assembler := dataprocessing.NewAssembler(logger, workers)
//	dataset, err := assembler.Assemble(ctx, inputs)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Per-video summaries:
//
//	summarizer := dataprocessing.NewSummarizer(dataprocessing.DefaultSummarizerConfig())
//	summaries := summarizer.GenerateFromRecords(dataset.Records, dataset.Meta)
//
// # Data Flow
//
//	Export Files → Parser → WatchRecords → Dedup → Derive → DerivedRecords → Summarizer
//
// # Error Handling
//
// Row-level problems never abort a build. Every dropped row is counted
// under an exclusion reason in the source's report, and the build report
// always satisfies rows read = rows kept + rows excluded. The only fatal
// condition is a source file that cannot be opened or read at all.
//
// # Determinism
//
// Identical inputs produce an identical Records table: sources merge in
// input order, duplicates keep their first occurrence, and the final sort
// breaks ties on every field that can differ. Only the build report's run
// stamps change between runs.
package dataprocessing
