package visitors

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// Lifecycle stage labels.
const (
	LifecycleNew       = "new"
	LifecycleReturning = "returning"
	LifecycleLoyal     = "loyal"
	LifecycleChurned   = "churned"
)

// Frequency thresholds for the classification rule.
const (
	loyalSessionThreshold     = 5
	returningSessionThreshold = 2
)

// Classify labels a visitor from session count and recency. Recency overrides
// frequency: a visitor unseen for the whole churn window is churned no matter
// how many sessions they accumulated. The rule is a pure function of its
// inputs, so recomputation is idempotent.
func Classify(totalSessions int64, lastSeen time.Time, now time.Time, churnWindowDays int) string {
	if !lastSeen.IsZero() && now.Sub(lastSeen) >= time.Duration(churnWindowDays)*24*time.Hour {
		return LifecycleChurned
	}
	if totalSessions >= loyalSessionThreshold {
		return LifecycleLoyal
	}
	if totalSessions >= returningSessionThreshold {
		return LifecycleReturning
	}
	return LifecycleNew
}

// EnsureLifecycleStages backfills the lifecycle stage for any profile in the
// slice whose stage is still unset, persisting the computed value and
// mutating the slice in place so callers see fresh labels.
//
// Concurrent requests may race on the same unset profile; both compute the
// same deterministic value, so the write is a plain idempotent update — last
// write wins with an identical value and no lock is needed. Do not add
// mutual exclusion here.
func EnsureLifecycleStages(db *gorm.DB, logger *slog.Logger, profiles []Profile, now time.Time, churnWindowDays int) error {
	backfilled := 0
	for i := range profiles {
		if profiles[i].LifecycleStage != "" {
			continue
		}

		stage := Classify(profiles[i].TotalSessions, profiles[i].LastSeenAt, now, churnWindowDays)
		err := db.Model(&Profile{}).
			Where("id = ?", profiles[i].ID).
			Update("lifecycle_stage", stage).Error
		if err != nil {
			return fmt.Errorf("error backfilling lifecycle stage for profile %d: %w", profiles[i].ID, err)
		}

		profiles[i].LifecycleStage = stage
		backfilled++
	}

	if backfilled > 0 {
		logger.Debug("Backfilled lifecycle stages", slog.Int("count", backfilled))
	}
	return nil
}
