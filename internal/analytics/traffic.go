package analytics

import (
	"fmt"

	"funnelscope/internal/events"
	"funnelscope/internal/sessions"
)

// Dimension names accepted by the session breakdown.
const (
	DimensionDevice      = "device"
	DimensionBrowser     = "browser"
	DimensionOS          = "os"
	DimensionCountry     = "country"
	DimensionCity        = "city"
	DimensionUTMCampaign = "utm_campaign"
	DimensionStage       = "stage"
)

func orUnknown(v string) string {
	if v == "" {
		return UnknownValue
	}
	return v
}

var sessionKeyExtractors = map[string]func(sessions.Session) string{
	DimensionDevice:      func(s sessions.Session) string { return orUnknown(s.DeviceType) },
	DimensionBrowser:     func(s sessions.Session) string { return orUnknown(s.Browser) },
	DimensionOS:          func(s sessions.Session) string { return orUnknown(s.OperatingSystem) },
	DimensionCountry:     func(s sessions.Session) string { return orUnknown(s.CountryName) },
	DimensionCity:        func(s sessions.Session) string { return orUnknown(s.City) },
	DimensionUTMCampaign: func(s sessions.Session) string { return orUnknown(s.LastUTMCampaign) },
	DimensionStage:       func(s sessions.Session) string { return orUnknown(s.CurrentStage) },
}

var sessionRollupMetrics = RollupMetrics[sessions.Session]{
	Revenue:   func(s sessions.Session) float64 { return s.ConversionValue },
	Converted: func(s sessions.Session) bool { return s.Converted },
}

// SessionBreakdown rolls window sessions up by one dimension. Geography
// dimensions expect the caller to have applied the event-level fallback
// first (ApplyGeographyFallback).
func SessionBreakdown(sess []sessions.Session, dimension string) ([]GroupRollup, error) {
	extractor, ok := sessionKeyExtractors[dimension]
	if !ok {
		return nil, fmt.Errorf("unknown breakdown dimension: %s", dimension)
	}
	return Rollup(sess, extractor, sessionRollupMetrics), nil
}

// DeviceBrowserBreakdown is the composite device+browser rollup: one row per
// distinct combination, not one per session.
func DeviceBrowserBreakdown(sess []sessions.Session) []GroupRollup {
	return Rollup(sess, func(s sessions.Session) string {
		return CompositeKey(s.DeviceType, s.Browser)
	}, sessionRollupMetrics)
}

// CampaignBreakdown is the composite source+medium+campaign rollup over the
// chosen touch side's UTM fields.
func CampaignBreakdown(sess []sessions.Session, side TouchSide) []GroupRollup {
	return Rollup(sess, func(s sessions.Session) string {
		if side == TouchFirst {
			return CompositeKey(s.FirstUTMSource, s.FirstUTMMedium, s.FirstUTMCampaign)
		}
		return CompositeKey(s.LastUTMSource, s.LastUTMMedium, s.LastUTMCampaign)
	}, sessionRollupMetrics)
}

var eventRollupMetrics = RollupMetrics[events.Event]{
	Revenue:   func(e events.Event) float64 { return e.Revenue },
	Converted: func(e events.Event) bool { return e.IsConversion },
}

// CategoryBreakdown rolls window events up by category, with the
// uncategorized sentinel for events missing one.
func CategoryBreakdown(evts []events.Event) []GroupRollup {
	return Rollup(evts, func(e events.Event) string {
		return e.CategoryOrDefault()
	}, eventRollupMetrics)
}

// EventPropertyExtractor maps a request-level property name to a pure
// extractor from event to string key, for ad-hoc breakdowns. Keys present in
// the window are discovered by the rollup itself; nothing is hard-coded per
// possible value.
func EventPropertyExtractor(property string) (func(events.Event) string, error) {
	extractors := map[string]func(events.Event) string{
		"name":        func(e events.Event) string { return orUnknown(e.Name) },
		"category":    func(e events.Event) string { return e.CategoryOrDefault() },
		"page_path":   func(e events.Event) string { return orUnknown(e.PagePath) },
		"page_title":  func(e events.Event) string { return orUnknown(e.PageTitle) },
		"utm_source":  func(e events.Event) string { return orUnknown(e.UTMSource) },
		"utm_medium":  func(e events.Event) string { return orUnknown(e.UTMMedium) },
		"utm_term":    func(e events.Event) string { return orUnknown(e.UTMTerm) },
		"utm_content": func(e events.Event) string { return orUnknown(e.UTMContent) },
		"device":      func(e events.Event) string { return orUnknown(e.DeviceType) },
		"browser":     func(e events.Event) string { return orUnknown(e.Browser) },
		"country":     func(e events.Event) string { return orUnknown(e.CountryName) },
		"micro_conversion": func(e events.Event) string {
			return orUnknown(e.MicroConversionType)
		},
	}

	extractor, ok := extractors[property]
	if !ok {
		return nil, fmt.Errorf("unknown event property: %s", property)
	}
	return extractor, nil
}

// EventPropertyBreakdown is the ad-hoc groupBy over an arbitrary event
// property.
func EventPropertyBreakdown(evts []events.Event, property string) ([]GroupRollup, error) {
	extractor, err := EventPropertyExtractor(property)
	if err != nil {
		return nil, err
	}
	return Rollup(evts, extractor, eventRollupMetrics), nil
}
