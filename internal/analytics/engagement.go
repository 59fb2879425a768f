package analytics

import (
	"sort"

	"funnelscope/internal/events"
	"funnelscope/internal/sessions"
)

// SessionEngagement is the per-session engagement rate: active time over
// duration as a percentage, capped at 100. Active time can exceed the logged
// duration due to measurement skew, so the cap is mandatory. Sessions without
// a duration or without an engagement measurement score 0.
func SessionEngagement(s sessions.Session) float64 {
	if !s.HasEngagement() || s.DurationSeconds <= 0 {
		return 0
	}
	rate := *s.ActiveTimeSeconds / s.DurationSeconds * 100
	if rate > 100 {
		return 100
	}
	return rate
}

// EventEngagement aggregates engagement for one event name across the unique
// sessions in which it occurred.
type EventEngagement struct {
	Event              string  `json:"event"`
	Sessions           int64   `json:"sessions"`
	AvgEngagement      float64 `json:"avg_engagement"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
	ConversionRate     float64 `json:"conversion_rate"`
	Revenue            float64 `json:"revenue"`
}

// EventEngagementStats computes per-event engagement over the sessions
// carrying an engagement measurement. An event's aggregate engagement is the
// mean of per-session engagement values for the unique sessions in which the
// event occurred — an event firing several times in one session contributes
// that session's engagement exactly once. Results are sorted by session count
// descending, ties in first-encountered order.
func EventEngagementStats(engagedSessions []sessions.Session, evts []events.Event) []EventEngagement {
	byID := make(map[string]sessions.Session, len(engagedSessions))
	for _, s := range engagedSessions {
		if s.HasEngagement() {
			byID[s.ID] = s
		}
	}

	type agg struct {
		sessions      map[string]struct{}
		engagementSum float64
		durationSum   float64
		converted     int64
		revenue       float64
	}
	byEvent := make(map[string]*agg)
	order := []string{}

	for _, e := range evts {
		if e.Name == "" {
			continue
		}
		a, seen := byEvent[e.Name]
		if !seen {
			a = &agg{sessions: make(map[string]struct{})}
			byEvent[e.Name] = a
			order = append(order, e.Name)
		}
		a.revenue += e.Revenue

		s, engaged := byID[e.SessionID]
		if !engaged {
			continue
		}
		if _, counted := a.sessions[e.SessionID]; counted {
			continue
		}
		a.sessions[e.SessionID] = struct{}{}
		a.engagementSum += SessionEngagement(s)
		a.durationSum += s.DurationSeconds
		if s.Converted {
			a.converted++
		}
	}

	results := make([]EventEngagement, 0, len(order))
	for _, name := range order {
		a := byEvent[name]
		count := int64(len(a.sessions))
		results = append(results, EventEngagement{
			Event:              name,
			Sessions:           count,
			AvgEngagement:      SafeRatio(a.engagementSum, float64(count)),
			AvgDurationSeconds: SafeRatio(a.durationSum, float64(count)),
			ConversionRate:     SafePercentage(a.converted, count),
			Revenue:            a.revenue,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Sessions > results[j].Sessions
	})
	return results
}

// FrequencyBucket is one fixed range of per-visitor occurrence counts.
type FrequencyBucket struct {
	Bucket   string `json:"bucket"`
	Visitors int64  `json:"visitors"`
	Events   int64  `json:"events"`
}

var frequencyRanges = []struct {
	label string
	min   int64
	max   int64
}{
	{"1", 1, 1},
	{"2", 2, 2},
	{"3", 3, 3},
	{"4", 4, 4},
	{"5", 5, 5},
	{"6-10", 6, 10},
	{"11-20", 11, 20},
	{"21+", 21, int64(^uint64(0) >> 1)},
}

// FrequencyDistribution counts occurrences of one event per visitor and
// buckets visitors into the fixed ranges 1,2,3,4,5,6-10,11-20,21+. Buckets
// with zero visitors are omitted; the remaining buckets keep the fixed bucket
// order, not count order. Each bucket also reports the total event count
// contributed by its visitors.
func FrequencyDistribution(evts []events.Event, eventName string) []FrequencyBucket {
	perVisitor := make(map[string]int64)
	for _, e := range evts {
		if eventName != "" && e.Name != eventName {
			continue
		}
		visitor := e.VisitorID
		if visitor == "" {
			visitor = UnknownValue
		}
		perVisitor[visitor]++
	}

	buckets := make([]FrequencyBucket, len(frequencyRanges))
	for _, count := range perVisitor {
		for i, r := range frequencyRanges {
			if count >= r.min && count <= r.max {
				buckets[i].Visitors++
				buckets[i].Events += count
				break
			}
		}
	}

	results := []FrequencyBucket{}
	for i, r := range frequencyRanges {
		if buckets[i].Visitors == 0 {
			continue
		}
		buckets[i].Bucket = r.label
		results = append(results, buckets[i])
	}
	return results
}
