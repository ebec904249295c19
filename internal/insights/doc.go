// Package insights derives ranking and callout signals from the
// assembled watch dataset.
//
// Two signals live here:
//
//  1. Engagement score: a 0-100 composite per video, blending
//     winsorized, min-max scaled components (views, unique viewers,
//     completion rate, repeat share) under configurable weights. The
//     score fills domain.VideoSummary.EngagementScore and drives the
//     leaderboard's default ranking.
//
//  2. Peak detection: days whose view count reaches 1.25 times the
//     trailing 7-day mean of active days, surfaced as chart callouts.
//
// Both signals are pure functions of their inputs. Scaling is
// cross-sectional over the summaries passed in, so scores compare
// videos within one dataset build rather than across builds.
package insights
