// Package timeframe handles analysis windows and time bucketing.
//
// A TimeFrame is a bounded window (explicit from/to, or resolved from one of
// the named presets) over which all aggregations run. A Granularity maps a
// timestamp to a bucket key; keys for the same granularity sort
// lexicographically in chronological order, which lets series code order
// buckets with a plain string sort.
package timeframe

import (
	"fmt"
	"time"
)

// Granularity is the width of a time-series bucket.
type Granularity string

const (
	Granularity15Min Granularity = "15m"
	Granularity30Min Granularity = "30m"
	GranularityHour  Granularity = "hour"
	Granularity4Hour Granularity = "4h"
	GranularityDay   Granularity = "day"
)

// RangeLabel is a named preset for a time window.
type RangeLabel string

const (
	RangeLabelToday      RangeLabel = "today"
	RangeLabelLast24h    RangeLabel = "24h"
	RangeLabelLast7Days  RangeLabel = "7d"
	RangeLabelLast30Days RangeLabel = "30d"
	RangeLabelLast90Days RangeLabel = "90d"
	RangeLabelCustom     RangeLabel = "custom"
)

// TimeProvider supplies the current time; tests inject a fixed clock.
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider uses the system clock in UTC.
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// TimeFrame represents a period between two points in time
type TimeFrame struct {
	From  time.Time
	To    time.Time
	Label RangeLabel
}

// NewTimeFrame builds a validated window from explicit bounds.
func NewTimeFrame(from, to time.Time) (*TimeFrame, error) {
	tf := &TimeFrame{From: from.UTC(), To: to.UTC(), Label: RangeLabelCustom}
	if err := tf.Validate(); err != nil {
		return nil, err
	}
	return tf, nil
}

func (tf *TimeFrame) Validate() error {
	if tf.From.After(tf.To) {
		return fmt.Errorf("fromTime must be before toTime")
	}
	return nil
}

func (tf *TimeFrame) Duration() time.Duration {
	return tf.To.Sub(tf.From)
}

// Contains reports whether t falls inside the window (inclusive bounds).
func (tf *TimeFrame) Contains(t time.Time) bool {
	return !t.Before(tf.From) && !t.After(tf.To)
}

// BucketStart floors t to the start of its bucket at the given granularity.
// Sub-day granularities floor the minute/hour into the granularity width, so
// 4-hour buckets start at hours 0, 4, 8, 12, 16, 20.
func BucketStart(t time.Time, g Granularity) time.Time {
	utc := t.UTC()
	year, month, day := utc.Year(), utc.Month(), utc.Day()

	switch g {
	case Granularity15Min:
		return time.Date(year, month, day, utc.Hour(), utc.Minute()/15*15, 0, 0, time.UTC)
	case Granularity30Min:
		return time.Date(year, month, day, utc.Hour(), utc.Minute()/30*30, 0, 0, time.UTC)
	case GranularityHour:
		return time.Date(year, month, day, utc.Hour(), 0, 0, 0, time.UTC)
	case Granularity4Hour:
		return time.Date(year, month, day, utc.Hour()/4*4, 0, 0, 0, time.UTC)
	case GranularityDay:
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	default:
		return utc
	}
}

// BucketKey maps a timestamp to its bucket key at the given granularity.
func BucketKey(t time.Time, g Granularity) string {
	start := BucketStart(t, g)
	if g == GranularityDay {
		return start.Format("2006-01-02")
	}
	return start.Format("2006-01-02 15:04")
}

// Width returns the duration of one bucket at the given granularity.
func Width(g Granularity) time.Duration {
	switch g {
	case Granularity15Min:
		return 15 * time.Minute
	case Granularity30Min:
		return 30 * time.Minute
	case GranularityHour:
		return time.Hour
	case Granularity4Hour:
		return 4 * time.Hour
	case GranularityDay:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// ParseGranularity validates a granularity string from a request.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case Granularity15Min, Granularity30Min, GranularityHour, Granularity4Hour, GranularityDay:
		return Granularity(s), nil
	case "":
		return GranularityHour, nil
	default:
		return "", fmt.Errorf("unknown granularity: %s", s)
	}
}

// maxBucketStarts bounds the zero-fill reference to keep degenerate windows
// (e.g. a 90d window at 15m granularity) from producing unbounded output.
const maxBucketStarts = 10000

// BucketStarts generates the ordered bucket start times covering the window,
// used for zero-filled series.
func (tf *TimeFrame) BucketStarts(g Granularity) []time.Time {
	starts := []time.Time{}
	current := BucketStart(tf.From, g)
	width := Width(g)

	for i := 0; i < maxBucketStarts && !current.After(tf.To); i++ {
		starts = append(starts, current)
		if g == GranularityDay {
			current = current.AddDate(0, 0, 1)
			continue
		}
		current = current.Add(width)
	}
	return starts
}

// SuggestedGranularity picks a default bucket width for the window size.
func (tf *TimeFrame) SuggestedGranularity() Granularity {
	days := tf.Duration().Hours() / 24

	switch {
	case days >= 30:
		return GranularityDay
	case days >= 7:
		return Granularity4Hour
	case days >= 1:
		return GranularityHour
	default:
		return Granularity30Min
	}
}
