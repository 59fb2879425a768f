package sessions

import (
	"fmt"

	"gorm.io/gorm"

	"funnelscope/internal/timeframe"
)

// InWindow loads every session of a funnel that started inside the window,
// ordered by start time (ties broken by ID) so downstream aggregations see a
// deterministic input order.
func InWindow(db *gorm.DB, funnelID uint, tf *timeframe.TimeFrame) ([]Session, error) {
	var results []Session
	err := db.Where("funnel_id = ? AND started_at >= ? AND started_at <= ?",
		funnelID, tf.From, tf.To).
		Order("started_at ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error loading sessions in window: %w", err)
	}
	return results, nil
}

// StageCount is one current-stage bucket from CountByCurrentStage.
type StageCount struct {
	Stage    string
	Sessions int64
}

// CountByCurrentStage counts window sessions grouped by their current stage.
func CountByCurrentStage(db *gorm.DB, funnelID uint, tf *timeframe.TimeFrame) (map[string]int64, error) {
	var rows []StageCount
	err := db.Model(&Session{}).
		Select("current_stage AS stage, COUNT(*) AS sessions").
		Where("funnel_id = ? AND started_at >= ? AND started_at <= ? AND current_stage != ''",
			funnelID, tf.From, tf.To).
		Group("current_stage").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error counting sessions by stage: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Stage] = row.Sessions
	}
	return counts, nil
}

// WithEngagement loads only the window sessions carrying an engagement
// measurement, in the same deterministic order as InWindow.
func WithEngagement(db *gorm.DB, funnelID uint, tf *timeframe.TimeFrame) ([]Session, error) {
	var results []Session
	err := db.Where("funnel_id = ? AND started_at >= ? AND started_at <= ? AND active_time_seconds IS NOT NULL",
		funnelID, tf.From, tf.To).
		Order("started_at ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error loading engagement sessions: %w", err)
	}
	return results, nil
}
