// Package analytics computes everything the dashboards show from the
// assembled dataset: filtered subsets, KPI metrics, chart series and the
// per-video leaderboard.
//
// Every function here is pure. Input slices are never mutated, active
// filter dimensions intersect, and equal inputs always produce equal
// outputs in the same order, so dashboard responses and CSV exports over
// the same dataset never drift apart.
//
// The split of concerns with the neighboring packages: dataprocessing
// builds the dataset, analytics reads it, insights adds scoring and peak
// detection on top of the series produced here.
package analytics
