package analytics

import (
	"fmt"
	"sort"

	"funnelscope/internal/sessions"
)

// StageSnapshot is one stage of the funnel in canonical order. DropOffRate is
// relative to the previous stage in that order; ConversionRate is relative to
// the first stage. A negative drop-off rate (a later stage with more sessions
// than its predecessor) is reported as-is — it signals a data anomaly
// upstream and must not be hidden.
type StageSnapshot struct {
	Stage          string  `json:"stage"`
	Sessions       int64   `json:"sessions"`
	ConversionRate float64 `json:"conversion_rate"`
	DropOffRate    float64 `json:"drop_off_rate"`
}

// StageFlowResult is the ordered stage breakdown for a window.
type StageFlowResult struct {
	Stages                []StageSnapshot `json:"stages"`
	OverallConversionRate string          `json:"overall_conversion_rate"`
}

// StageFlow orders the observed stages into the canonical funnel order
// (unrecognized stages last, alphabetically) and computes per-stage session
// counts, conversion and drop-off rates. The first stage always reports a
// zero drop-off; the overall conversion rate is purchase-stage sessions over
// first-stage sessions, "0.00" when the first stage is empty.
func StageFlow(sessionsByStage map[string]int64) StageFlowResult {
	ordered := []string{}
	for _, stage := range sessions.CanonicalStageOrder {
		if sessionsByStage[stage] > 0 {
			ordered = append(ordered, stage)
		}
	}

	canonical := make(map[string]bool, len(sessions.CanonicalStageOrder))
	for _, stage := range sessions.CanonicalStageOrder {
		canonical[stage] = true
	}
	unrecognized := []string{}
	for stage, count := range sessionsByStage {
		if !canonical[stage] && count > 0 {
			unrecognized = append(unrecognized, stage)
		}
	}
	sort.Strings(unrecognized)
	ordered = append(ordered, unrecognized...)

	result := StageFlowResult{
		Stages:                make([]StageSnapshot, 0, len(ordered)),
		OverallConversionRate: "0.00",
	}
	if len(ordered) == 0 {
		return result
	}

	firstStageSessions := sessionsByStage[ordered[0]]
	var previousSessions int64

	for i, stage := range ordered {
		count := sessionsByStage[stage]
		snapshot := StageSnapshot{
			Stage:          stage,
			Sessions:       count,
			ConversionRate: Round2(SafePercentage(count, firstStageSessions)),
		}
		if i > 0 && previousSessions > 0 {
			snapshot.DropOffRate = Round2(float64(previousSessions-count) / float64(previousSessions) * 100)
		}
		result.Stages = append(result.Stages, snapshot)
		previousSessions = count
	}

	if firstStageSessions > 0 {
		overall := SafePercentage(sessionsByStage[sessions.StagePurchase], firstStageSessions)
		result.OverallConversionRate = fmt.Sprintf("%.2f", overall)
	}
	return result
}
