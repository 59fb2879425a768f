package analytics

import (
	"funnelscope/internal/sessions"
)

// Experience score penalty thresholds, loosely following the "good" budgets
// for each vital. Milliseconds except layout shift (unitless CLS).
const (
	goodLoadTimeMs    = 2500.0
	goodInteractiveMs = 200.0
	goodLayoutShift   = 0.1
	goodPaintMs       = 1800.0
	goodTTFBMs        = 800.0
)

func vitalPenalty(value, budget, weight float64) float64 {
	if value <= budget {
		return 0
	}
	penalty := (value - budget) / budget * weight
	if penalty > weight {
		return weight
	}
	return penalty
}

// ExperienceScore derives the composite 0-100 experience score from a
// session's Core Web Vitals averages, or nil when the session carries none.
// The result is never negative.
func ExperienceScore(s sessions.Session) *float64 {
	measured := false
	score := 100.0

	if s.AvgLoadTimeMs != nil {
		score -= vitalPenalty(*s.AvgLoadTimeMs, goodLoadTimeMs, 25)
		measured = true
	}
	if s.AvgInteractiveMs != nil {
		score -= vitalPenalty(*s.AvgInteractiveMs, goodInteractiveMs, 20)
		measured = true
	}
	if s.AvgLayoutShift != nil {
		score -= vitalPenalty(*s.AvgLayoutShift, goodLayoutShift, 20)
		measured = true
	}
	if s.AvgPaintMs != nil {
		score -= vitalPenalty(*s.AvgPaintMs, goodPaintMs, 20)
		measured = true
	}
	if s.AvgTTFBMs != nil {
		score -= vitalPenalty(*s.AvgTTFBMs, goodTTFBMs, 15)
		measured = true
	}

	if !measured {
		return nil
	}
	if score < 0 {
		score = 0
	}
	return &score
}

// VitalsSummary averages the Core Web Vitals across the window sessions that
// carry them. Each average only counts sessions where that vital was
// measured.
type VitalsSummary struct {
	Sessions           int64   `json:"sessions"`
	AvgLoadTimeMs      float64 `json:"avg_load_time_ms"`
	AvgInteractiveMs   float64 `json:"avg_interactive_ms"`
	AvgLayoutShift     float64 `json:"avg_layout_shift"`
	AvgPaintMs         float64 `json:"avg_paint_ms"`
	AvgTTFBMs          float64 `json:"avg_ttfb_ms"`
	AvgExperienceScore float64 `json:"avg_experience_score"`
}

// VitalsOverview summarizes Core Web Vitals for a window. Sessions without an
// already-derived experience score get one computed on the fly; persisted
// scores are read as-is.
func VitalsOverview(sess []sessions.Session) VitalsSummary {
	summary := VitalsSummary{}

	var loadSum, loadN, interactiveSum, interactiveN, shiftSum, shiftN float64
	var paintSum, paintN, ttfbSum, ttfbN, scoreSum, scoreN float64

	for _, s := range sess {
		measured := false
		if s.AvgLoadTimeMs != nil {
			loadSum += *s.AvgLoadTimeMs
			loadN++
			measured = true
		}
		if s.AvgInteractiveMs != nil {
			interactiveSum += *s.AvgInteractiveMs
			interactiveN++
			measured = true
		}
		if s.AvgLayoutShift != nil {
			shiftSum += *s.AvgLayoutShift
			shiftN++
			measured = true
		}
		if s.AvgPaintMs != nil {
			paintSum += *s.AvgPaintMs
			paintN++
			measured = true
		}
		if s.AvgTTFBMs != nil {
			ttfbSum += *s.AvgTTFBMs
			ttfbN++
			measured = true
		}
		if measured {
			summary.Sessions++
		}

		score := s.ExperienceScore
		if score == nil {
			score = ExperienceScore(s)
		}
		if score != nil {
			scoreSum += *score
			scoreN++
		}
	}

	summary.AvgLoadTimeMs = SafeRatio(loadSum, loadN)
	summary.AvgInteractiveMs = SafeRatio(interactiveSum, interactiveN)
	summary.AvgLayoutShift = SafeRatio(shiftSum, shiftN)
	summary.AvgPaintMs = SafeRatio(paintSum, paintN)
	summary.AvgTTFBMs = SafeRatio(ttfbSum, ttfbN)
	summary.AvgExperienceScore = SafeRatio(scoreSum, scoreN)
	return summary
}
