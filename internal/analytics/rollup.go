package analytics

import (
	"math"
	"sort"
	"strings"
)

// UnknownValue is the sentinel bucket for rows missing a dimension value.
const UnknownValue = "Unknown"

// GroupRollup is one aggregated bucket of a grouped breakdown. Percentage and
// ConversionRate are carried unrounded; rounding happens only at the
// presentation boundary so dependent calculations never compound rounding
// error.
type GroupRollup struct {
	Key            string  `json:"key"`
	Count          int64   `json:"count"`
	Revenue        float64 `json:"revenue"`
	Percentage     float64 `json:"percentage"`
	ConversionRate float64 `json:"conversion_rate"`
}

// RollupMetrics parameterizes the per-row metric extraction. Revenue and
// Converted are optional; nil extractors contribute zero.
type RollupMetrics[T any] struct {
	Revenue   func(T) float64
	Converted func(T) bool
}

// Rollup groups rows by key and computes count, revenue sum,
// percentage-of-total, and conversion rate per bucket. Buckets are sorted by
// count descending with ties kept in first-encountered insertion order, which
// is deterministic because callers load rows in timestamp order.
func Rollup[T any](rows []T, key func(T) string, metrics RollupMetrics[T]) []GroupRollup {
	type bucket struct {
		count     int64
		revenue   float64
		converted int64
	}

	buckets := make(map[string]*bucket)
	order := []string{}

	for _, row := range rows {
		k := key(row)
		b, seen := buckets[k]
		if !seen {
			b = &bucket{}
			buckets[k] = b
			order = append(order, k)
		}
		b.count++
		if metrics.Revenue != nil {
			b.revenue += metrics.Revenue(row)
		}
		if metrics.Converted != nil && metrics.Converted(row) {
			b.converted++
		}
	}

	total := int64(len(rows))
	results := make([]GroupRollup, 0, len(order))
	for _, k := range order {
		b := buckets[k]
		results = append(results, GroupRollup{
			Key:            k,
			Count:          b.count,
			Revenue:        b.revenue,
			Percentage:     SafePercentage(b.count, total),
			ConversionRate: SafePercentage(b.converted, b.count),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Count > results[j].Count
	})
	return results
}

// CompositeKey joins dimension values into one rollup key, substituting the
// unknown sentinel for missing parts. One row per distinct composite key.
func CompositeKey(parts ...string) string {
	filled := make([]string, len(parts))
	for i, part := range parts {
		if part == "" {
			part = UnknownValue
		}
		filled[i] = part
	}
	return strings.Join(filled, " / ")
}

// SafePercentage computes part/total*100 with a guarded denominator: a zero
// total always yields 0, never a fault.
func SafePercentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// SafeRatio computes num/den with a guarded denominator.
func SafeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Limit truncates a rollup list to at most n buckets; n <= 0 means no limit.
func Limit(rollups []GroupRollup, n int) []GroupRollup {
	if n <= 0 || len(rollups) <= n {
		return rollups
	}
	return rollups[:n]
}

// Round1 rounds to one decimal place, the presentation precision for
// percentages and rates.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundRollups applies presentation rounding (one decimal for percentages and
// conversion rates, two for revenue) to a rollup list, returning a new slice.
func RoundRollups(rollups []GroupRollup) []GroupRollup {
	rounded := make([]GroupRollup, len(rollups))
	for i, r := range rollups {
		r.Percentage = Round1(r.Percentage)
		r.ConversionRate = Round1(r.ConversionRate)
		r.Revenue = Round2(r.Revenue)
		rounded[i] = r
	}
	return rounded
}
