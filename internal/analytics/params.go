// Package analytics is the aggregation engine: pure functions that turn the
// flat session/event rows loaded for a funnel's time window into
// traffic-attribution, flow, cohort, and performance aggregates.
//
// The package is organized into focused modules:
//   - rollup.go: generic group/count/percentage rollup primitive
//   - traffic.go: dimension breakdowns built on the rollup primitive
//   - attribution.go: first/last-touch resolution and geography fallback
//   - timeseries.go: bucketed metric series
//   - flow.go: session flow graph construction
//   - stages.go: canonical stage drop-off computation
//   - engagement.go: engagement scoring and frequency distributions
//
// Everything here is request-scoped and read-only: callers load rows once,
// route them through one of these aggregators, and discard the result after
// the response. All functions are safe on empty input and guard every
// division.
package analytics

import (
	"time"

	"funnelscope/internal/timeframe"
)

// FunnelScopedQueryParams contains common parameters for funnel-scoped queries
type FunnelScopedQueryParams struct {
	TimeFrame *timeframe.TimeFrame
	FunnelID  uint
	Limit     int               // Number of records to return
	Filters   map[string]string // Dynamic filters (e.g., {"country": "US", "device": "mobile"})
}

// NewFunnelScopedQueryParams creates a new query params object with the specified time frame and funnel ID
func NewFunnelScopedQueryParams(tf *timeframe.TimeFrame, funnelID uint) FunnelScopedQueryParams {
	if tf == nil {
		now := time.Now().UTC()
		tf = &timeframe.TimeFrame{
			From:  now.AddDate(0, 0, -7),
			To:    now,
			Label: timeframe.RangeLabelLast7Days,
		}
	}

	return FunnelScopedQueryParams{
		TimeFrame: tf,
		FunnelID:  funnelID,
		Limit:     50, // Default limit
		Filters:   make(map[string]string),
	}
}
