// Package events defines the persisted event model and its window-scoped read
// queries. Events are immutable once written.
package events

import "time"

// EventType represents the type of event.
type EventType int

const (
	EventTypePageView    EventType = 1
	EventTypeCustomEvent EventType = 2
)

// CategoryUncategorized is the sentinel category for events without one.
const CategoryUncategorized = "uncategorized"

// Event is one timestamped occurrence within a session. It may independently
// carry geography even when the owning session does not, which the
// attribution resolver uses as a fallback.
type Event struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	FunnelID  uint      `gorm:"index:idx_event_funnel_timestamp;not null"`
	SessionID string    `gorm:"index;size:64;not null"`
	VisitorID string    `gorm:"index;size:64;not null"`
	Name      string    `gorm:"index;not null"`
	Category  string    `gorm:"size:64"`
	EventType EventType `gorm:"not null;default:1"`

	MicroConversionType  string `gorm:"size:64"`
	MicroConversionValue float64
	Revenue              float64
	IsConversion         bool

	PageURL   string `gorm:"size:2048"`
	PageTitle string `gorm:"size:512"`
	PagePath  string `gorm:"index;size:1024"`

	UTMSource   string `gorm:"size:128"`
	UTMMedium   string `gorm:"size:128"`
	UTMCampaign string `gorm:"size:128"`
	UTMTerm     string `gorm:"size:128"`
	UTMContent  string `gorm:"size:128"`

	DeviceType  string `gorm:"size:32"`
	Browser     string `gorm:"size:64"`
	CountryCode string `gorm:"size:8"`
	CountryName string `gorm:"size:64"`
	City        string `gorm:"size:128"`
	Region      string `gorm:"size:128"`

	// Core Web Vitals snapshot at event time, when captured.
	LoadTimeMs    *float64
	InteractiveMs *float64
	LayoutShift   *float64
	PaintMs       *float64
	TTFBMs        *float64

	Timestamp time.Time `gorm:"index:idx_event_funnel_timestamp;not null"`
	CreatedAt time.Time
}

// CategoryOrDefault returns the event category, or the uncategorized sentinel.
func (e *Event) CategoryOrDefault() string {
	if e.Category == "" {
		return CategoryUncategorized
	}
	return e.Category
}

// HasGeography reports whether the event carries any geography field.
func (e *Event) HasGeography() bool {
	return e.CountryCode != "" || e.CountryName != "" || e.City != "" || e.Region != ""
}
