package events

import (
	"fmt"

	"gorm.io/gorm"

	"funnelscope/internal/timeframe"
)

// InWindow loads every event of a funnel inside the window, ordered by
// session then timestamp (ties broken by ID) so per-session sequences arrive
// already grouped and chronological. eventType 0 loads all types.
func InWindow(db *gorm.DB, funnelID uint, tf *timeframe.TimeFrame, eventType EventType) ([]Event, error) {
	query := db.Where("funnel_id = ? AND timestamp >= ? AND timestamp <= ?",
		funnelID, tf.From, tf.To)
	if eventType != 0 {
		query = query.Where("event_type = ?", eventType)
	}

	var results []Event
	err := query.Order("session_id ASC, timestamp ASC, id ASC").Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error loading events in window: %w", err)
	}
	return results, nil
}

// ByName loads the window events with the given name, in visitor order for
// frequency bucketing.
func ByName(db *gorm.DB, funnelID uint, tf *timeframe.TimeFrame, name string) ([]Event, error) {
	var results []Event
	err := db.Where("funnel_id = ? AND timestamp >= ? AND timestamp <= ? AND name = ?",
		funnelID, tf.From, tf.To, name).
		Order("visitor_id ASC, timestamp ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error loading events by name: %w", err)
	}
	return results, nil
}

// Geography is the minimal projection used for session geography fallback.
type Geography struct {
	SessionID   string
	CountryCode string
	CountryName string
	City        string
	Region      string
}

// GeographyForSessions batch-fetches, for each listed session, the most
// recent event that carries any geography field. One query serves all
// sessions needing fallback; callers must not loop this per session.
func GeographyForSessions(db *gorm.DB, sessionIDs []string) (map[string]Geography, error) {
	resolved := make(map[string]Geography, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return resolved, nil
	}

	var rows []Geography
	err := db.Model(&Event{}).
		Select("session_id, country_code, country_name, city, region").
		Where("session_id IN ?", sessionIDs).
		Where("country_code != '' OR country_name != '' OR city != '' OR region != ''").
		Order("timestamp ASC, id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching event geography for sessions: %w", err)
	}

	// Ascending scan order means the last write per session wins, leaving the
	// most recent geography-bearing event in the map.
	for _, row := range rows {
		resolved[row.SessionID] = row
	}
	return resolved, nil
}

// DistinctNames returns the distinct event names observed in the window,
// alphabetically, for breakdown pickers.
func DistinctNames(db *gorm.DB, funnelID uint, tf *timeframe.TimeFrame) ([]string, error) {
	var names []string
	err := db.Model(&Event{}).
		Where("funnel_id = ? AND timestamp >= ? AND timestamp <= ? AND name != ''",
			funnelID, tf.From, tf.To).
		Distinct("name").
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching distinct event names: %w", err)
	}
	return names, nil
}
