// Package visitors defines the cross-session visitor profile and the lazy
// lifecycle classification over it.
package visitors

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Profile is the cross-session identity for an anonymous or identified
// visitor. LifecycleStage starts unset and is computed lazily the first time
// a query needs it.
type Profile struct {
	ID               uint    `gorm:"primaryKey;autoIncrement"`
	FunnelID         uint    `gorm:"index:idx_profile_funnel_visitor,unique;not null"`
	VisitorID        string  `gorm:"index:idx_profile_funnel_visitor,unique;size:64;not null"`
	DisplayName      string  `gorm:"size:128"`
	IdentifiedUserID *string `gorm:"size:64"`
	FirstSeenAt      time.Time
	LastSeenAt       time.Time
	TotalSessions    int64
	TotalEvents      int64
	LifecycleStage   string `gorm:"size:16"` // empty until first classified
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ForFunnel loads every profile for a funnel, most recently seen first.
func ForFunnel(db *gorm.DB, funnelID uint) ([]Profile, error) {
	var results []Profile
	err := db.Where("funnel_id = ?", funnelID).
		Order("last_seen_at DESC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error loading visitor profiles: %w", err)
	}
	return results, nil
}
