package analytics

import (
	"github.com/pariz/gountries"

	"funnelscope/internal/events"
	"funnelscope/internal/sessions"
)

// TouchSide selects which end of a session's attribution timeline to resolve.
type TouchSide string

const (
	TouchFirst TouchSide = "first"
	TouchLast  TouchSide = "last"
)

// Attributed channel platforms, inferred from click identifiers.
const (
	PlatformPaidSocial = "paid-social"
	PlatformPaidSearch = "paid-search"
	PlatformPaidVideo  = "paid-video"
	PlatformDirect     = "direct"
)

// Touch is a resolved attribution touch for one session.
type Touch struct {
	Platform     string `json:"platform"`
	IsAttributed bool   `json:"is_attributed"`
}

// ResolveTouch infers the attributed channel for one side of a session.
// Click identifiers are checked in a fixed precedence order — social ads,
// then search ads, then short-video ads — first match wins, otherwise the
// touch is direct. The precedence is identical for first and last touch;
// only the field set differs.
func ResolveTouch(s sessions.Session, side TouchSide) Touch {
	social, search, video := s.LastSocialClickID, s.LastSearchClickID, s.LastVideoClickID
	if side == TouchFirst {
		social, search, video = s.FirstSocialClickID, s.FirstSearchClickID, s.FirstVideoClickID
	}

	switch {
	case social != "":
		return Touch{Platform: PlatformPaidSocial, IsAttributed: true}
	case search != "":
		return Touch{Platform: PlatformPaidSearch, IsAttributed: true}
	case video != "":
		return Touch{Platform: PlatformPaidVideo, IsAttributed: true}
	default:
		return Touch{Platform: PlatformDirect, IsAttributed: false}
	}
}

// TouchBreakdown is the attribution rollup for a window plus its coverage
// counters.
type TouchBreakdown struct {
	Side               TouchSide     `json:"side"`
	Platforms          []GroupRollup `json:"platforms"`
	AttributedSessions int64         `json:"attributed_sessions"`
	TotalSessions      int64         `json:"total_sessions"`
}

// AttributionBreakdown rolls window sessions up by their resolved platform
// for the given touch side.
func AttributionBreakdown(sess []sessions.Session, side TouchSide) TouchBreakdown {
	attributed := int64(0)
	for _, s := range sess {
		if ResolveTouch(s, side).IsAttributed {
			attributed++
		}
	}

	platforms := Rollup(sess, func(s sessions.Session) string {
		return ResolveTouch(s, side).Platform
	}, RollupMetrics[sessions.Session]{
		Revenue:   func(s sessions.Session) float64 { return s.ConversionValue },
		Converted: func(s sessions.Session) bool { return s.Converted },
	})

	return TouchBreakdown{
		Side:               side,
		Platforms:          platforms,
		AttributedSessions: attributed,
		TotalSessions:      int64(len(sess)),
	}
}

// UnknownGeography is the sentinel persisted upstream when geolocation failed.
const UnknownGeography = "Unknown"

var countryQuery = gountries.New()

// ResolvedGeography is a session's geography after event-level fallback.
type ResolvedGeography struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	City        string `json:"city"`
	Region      string `json:"region"`
}

func geographyUnknown(code, name string) bool {
	return (code == "" || code == UnknownGeography) && (name == "" || name == UnknownGeography)
}

// NeedsGeographyFallback reports whether a session's own geography is absent
// or the unknown sentinel on both the country code and name.
func NeedsGeographyFallback(s sessions.Session) bool {
	return geographyUnknown(s.CountryCode, s.CountryName)
}

// SessionsNeedingGeography returns the IDs to feed the batched event
// geography lookup. One batch query serves the whole window; never loop the
// lookup per session.
func SessionsNeedingGeography(sess []sessions.Session) []string {
	ids := []string{}
	for _, s := range sess {
		if NeedsGeographyFallback(s) {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// ResolveGeography resolves a session's geography, falling back to the most
// recent geography-bearing event when the session's own fields are unknown.
// With no fallback available the result is the unknown sentinel, never an
// error.
func ResolveGeography(s sessions.Session, fallback map[string]events.Geography) ResolvedGeography {
	resolved := ResolvedGeography{
		CountryCode: s.CountryCode,
		CountryName: s.CountryName,
		City:        s.City,
		Region:      s.Region,
	}

	if NeedsGeographyFallback(s) {
		if geo, ok := fallback[s.ID]; ok {
			resolved = ResolvedGeography{
				CountryCode: geo.CountryCode,
				CountryName: geo.CountryName,
				City:        geo.City,
				Region:      geo.Region,
			}
		}
	}

	if resolved.CountryCode == "" {
		resolved.CountryCode = UnknownGeography
	}
	if resolved.CountryName == "" || resolved.CountryName == UnknownGeography {
		resolved.CountryName = countryNameForCode(resolved.CountryCode)
	}
	if resolved.City == "" {
		resolved.City = UnknownGeography
	}
	if resolved.Region == "" {
		resolved.Region = UnknownGeography
	}
	return resolved
}

// ApplyGeographyFallback rewrites the geography fields of the loaded session
// rows in place using the batched event fallback, so dimension breakdowns
// downstream see resolved values.
func ApplyGeographyFallback(sess []sessions.Session, fallback map[string]events.Geography) {
	for i := range sess {
		resolved := ResolveGeography(sess[i], fallback)
		sess[i].CountryCode = resolved.CountryCode
		sess[i].CountryName = resolved.CountryName
		sess[i].City = resolved.City
		sess[i].Region = resolved.Region
	}
}

func countryNameForCode(code string) string {
	if code == "" || code == UnknownGeography {
		return UnknownGeography
	}
	country, err := countryQuery.FindCountryByAlpha(code)
	if err != nil {
		return UnknownGeography
	}
	return country.Name.Common
}
