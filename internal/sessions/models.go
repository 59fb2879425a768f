// Package sessions defines the persisted visitor session model and its
// window-scoped read queries. The analytics engine treats sessions as
// append-only facts: it reads them, it never rewrites them.
package sessions

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Canonical funnel stages, in journey order. Unrecognized stages sort after
// these for drop-off adjacency.
const (
	StageAwareness = "awareness"
	StageInterest  = "interest"
	StageDesire    = "desire"
	StageCheckout  = "checkout"
	StagePurchase  = "purchase"
	StageAbandoned = "abandoned"
)

// CanonicalStageOrder is the fixed ordering used by the stage drop-off
// calculator; it determines adjacency, not alphabetical or count order.
var CanonicalStageOrder = []string{
	StageAwareness,
	StageInterest,
	StageDesire,
	StageCheckout,
	StagePurchase,
	StageAbandoned,
}

// StageEntry records one stage transition with its entry timestamp.
type StageEntry struct {
	Stage     string    `json:"stage"`
	EnteredAt time.Time `json:"entered_at"`
}

// StageHistory is the ordered list of stage transitions for a session,
// serialized as a JSON text column.
type StageHistory []StageEntry

func (h StageHistory) Value() (driver.Value, error) {
	if len(h) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("error serializing stage history: %w", err)
	}
	return string(data), nil
}

func (h *StageHistory) Scan(value interface{}) error {
	if value == nil {
		*h = StageHistory{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported stage history type %T", value)
	}

	if len(data) == 0 {
		*h = StageHistory{}
		return nil
	}
	return json.Unmarshal(data, h)
}

// Session is one visitor's bounded interaction window within a funnel.
type Session struct {
	ID        string     `gorm:"primaryKey;size:64"`
	FunnelID  uint       `gorm:"index:idx_session_funnel_started;not null"`
	VisitorID string     `gorm:"index;size:64;not null"`
	StartedAt time.Time  `gorm:"index:idx_session_funnel_started;not null"`
	EndedAt   *time.Time // nil while the session is open; never before StartedAt

	PageViews         int
	EventCount        int
	DurationSeconds   float64
	ActiveTimeSeconds *float64 // nil when no engagement measurement was recorded

	CurrentStage string       `gorm:"index;size:32"`
	StageHistory StageHistory `gorm:"type:text"`

	Converted          bool `gorm:"index"`
	ConversionValue    float64
	ConversionPlatform string `gorm:"size:32"`

	// First-touch attribution fields
	FirstUTMSource        string `gorm:"size:128"`
	FirstUTMMedium        string `gorm:"size:128"`
	FirstUTMCampaign      string `gorm:"size:128"`
	FirstSocialClickID    string `gorm:"size:255"`
	FirstSearchClickID    string `gorm:"size:255"`
	FirstVideoClickID     string `gorm:"size:255"`

	// Last-touch attribution fields
	LastUTMSource     string `gorm:"size:128"`
	LastUTMMedium     string `gorm:"size:128"`
	LastUTMCampaign   string `gorm:"size:128"`
	LastSocialClickID string `gorm:"size:255"`
	LastSearchClickID string `gorm:"size:255"`
	LastVideoClickID  string `gorm:"size:255"`

	DeviceType      string `gorm:"size:32"`
	Browser         string `gorm:"size:64"`
	OperatingSystem string `gorm:"size:64"`
	CountryCode     string `gorm:"size:8"`
	CountryName     string `gorm:"size:64"`
	City            string `gorm:"size:128"`
	Region          string `gorm:"size:128"`

	// Core Web Vitals averages across the session, milliseconds except
	// AvgLayoutShift which is unitless CLS.
	AvgLoadTimeMs    *float64
	AvgInteractiveMs *float64
	AvgLayoutShift   *float64
	AvgPaintMs       *float64
	AvgTTFBMs        *float64
	ExperienceScore  *float64 // derived composite, 0-100, never negative

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasEngagement reports whether the session carries an engagement measurement.
func (s *Session) HasEngagement() bool {
	return s.ActiveTimeSeconds != nil
}
