package analytics

import (
	"sort"
	"time"

	"funnelscope/internal/timeframe"
)

// TimeBucket is one point of a bucketed series: a bucket key, its start time,
// and the per-metric totals accumulated inside it.
type TimeBucket struct {
	Key     string             `json:"key"`
	Start   time.Time          `json:"start"`
	Metrics map[string]float64 `json:"metrics"`
}

// Metric is a named per-row value extractor applied inside each bucket.
type Metric[T any] struct {
	Name  string
	Value func(T) float64
}

// Count is a metric that adds one per row.
func Count[T any](name string) Metric[T] {
	return Metric[T]{Name: name, Value: func(T) float64 { return 1 }}
}

// CountIf is a metric that adds one per row matching the predicate.
func CountIf[T any](name string, pred func(T) bool) Metric[T] {
	return Metric[T]{Name: name, Value: func(row T) float64 {
		if pred(row) {
			return 1
		}
		return 0
	}}
}

// Sum is a metric that accumulates the extracted value per row.
func Sum[T any](name string, value func(T) float64) Metric[T] {
	return Metric[T]{Name: name, Value: value}
}

// AggregateSeries groups rows into buckets at the given granularity and
// applies each metric per bucket. Buckets with zero rows are omitted (sparse
// series); the output is ordered chronologically. Empty input yields an empty
// series, not an error.
func AggregateSeries[T any](rows []T, at func(T) time.Time, g timeframe.Granularity, metrics []Metric[T]) []TimeBucket {
	buckets := make(map[string]*TimeBucket)

	for _, row := range rows {
		ts := at(row)
		key := timeframe.BucketKey(ts, g)
		b, seen := buckets[key]
		if !seen {
			b = &TimeBucket{
				Key:     key,
				Start:   timeframe.BucketStart(ts, g),
				Metrics: make(map[string]float64, len(metrics)),
			}
			buckets[key] = b
		}
		for _, m := range metrics {
			b.Metrics[m.Name] += m.Value(row)
		}
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	// Bucket keys sort lexicographically in chronological order.
	sort.Strings(keys)

	series := make([]TimeBucket, 0, len(keys))
	for _, key := range keys {
		series = append(series, *buckets[key])
	}
	return series
}

// ZeroFilledSeries aggregates like AggregateSeries but emits a bucket for
// every bucket start covering the window, with zero-valued metrics where no
// rows fell.
func ZeroFilledSeries[T any](rows []T, at func(T) time.Time, g timeframe.Granularity, metrics []Metric[T], tf *timeframe.TimeFrame) []TimeBucket {
	sparse := AggregateSeries(rows, at, g, metrics)
	byKey := make(map[string]TimeBucket, len(sparse))
	for _, b := range sparse {
		byKey[b.Key] = b
	}

	starts := tf.BucketStarts(g)
	series := make([]TimeBucket, 0, len(starts))
	for _, start := range starts {
		key := timeframe.BucketKey(start, g)
		if b, ok := byKey[key]; ok {
			series = append(series, b)
			continue
		}

		zeroed := make(map[string]float64, len(metrics))
		for _, m := range metrics {
			zeroed[m.Name] = 0
		}
		series = append(series, TimeBucket{Key: key, Start: start, Metrics: zeroed})
	}
	return series
}
