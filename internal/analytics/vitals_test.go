package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelscope/internal/analytics"
	"funnelscope/internal/sessions"
)

func ptr[T any](v T) *T { return &v }

func TestExperienceScoreNilWithoutMeasurements(t *testing.T) {
	assert.Nil(t, analytics.ExperienceScore(sessions.Session{}))
}

func TestExperienceScorePerfectVitals(t *testing.T) {
	s := sessions.Session{
		AvgLoadTimeMs:    ptr(1000.0),
		AvgInteractiveMs: ptr(100.0),
		AvgLayoutShift:   ptr(0.05),
		AvgPaintMs:       ptr(900.0),
		AvgTTFBMs:        ptr(300.0),
	}

	score := analytics.ExperienceScore(s)
	require.NotNil(t, score)
	assert.Equal(t, 100.0, *score)
}

func TestExperienceScoreNeverNegative(t *testing.T) {
	s := sessions.Session{
		AvgLoadTimeMs:    ptr(100000.0),
		AvgInteractiveMs: ptr(100000.0),
		AvgLayoutShift:   ptr(5.0),
		AvgPaintMs:       ptr(100000.0),
		AvgTTFBMs:        ptr(100000.0),
	}

	score := analytics.ExperienceScore(s)
	require.NotNil(t, score)
	assert.Equal(t, 0.0, *score)
}

func TestExperienceScorePartialMeasurement(t *testing.T) {
	s := sessions.Session{AvgLoadTimeMs: ptr(5000.0)}

	score := analytics.ExperienceScore(s)
	require.NotNil(t, score)
	assert.Equal(t, 75.0, *score)
}

func TestVitalsOverviewAveragesMeasuredOnly(t *testing.T) {
	sess := []sessions.Session{
		{ID: "a", AvgLoadTimeMs: ptr(1000.0)},
		{ID: "b", AvgLoadTimeMs: ptr(3000.0)},
		{ID: "c"}, // no vitals at all
	}

	summary := analytics.VitalsOverview(sess)
	assert.Equal(t, int64(2), summary.Sessions)
	assert.Equal(t, 2000.0, summary.AvgLoadTimeMs)
	assert.Equal(t, 0.0, summary.AvgInteractiveMs)
}

func TestVitalsOverviewPrefersPersistedScore(t *testing.T) {
	sess := []sessions.Session{
		{ID: "a", AvgLoadTimeMs: ptr(5000.0), ExperienceScore: ptr(42.0)},
	}

	summary := analytics.VitalsOverview(sess)
	assert.Equal(t, 42.0, summary.AvgExperienceScore)
}

func TestVitalsOverviewEmptyInput(t *testing.T) {
	summary := analytics.VitalsOverview(nil)
	assert.Equal(t, int64(0), summary.Sessions)
	assert.Equal(t, 0.0, summary.AvgExperienceScore)
}
