package sessions_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelscope/internal/sessions"
	"funnelscope/internal/testsupport"
	"funnelscope/internal/timeframe"
)

func testWindow(t *testing.T) *timeframe.TimeFrame {
	t.Helper()
	tf, err := timeframe.NewTimeFrame(
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 7, 23, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	return tf
}

func TestInWindowFiltersAndOrders(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	funnel := testsupport.CreateTestFunnel(t, db, "Window Funnel")
	tf := testWindow(t)

	later := testsupport.CreateTestSession(t, db, funnel.ID, time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC))
	earlier := testsupport.CreateTestSession(t, db, funnel.ID, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	// Outside the window.
	testsupport.CreateTestSession(t, db, funnel.ID, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))

	// Different funnel.
	other := testsupport.CreateTestFunnel(t, db, "Other Funnel")
	testsupport.CreateTestSession(t, db, other.ID, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))

	results, err := sessions.InWindow(db, funnel.ID, tf)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, earlier.ID, results[0].ID)
	assert.Equal(t, later.ID, results[1].ID)
}

func TestCountByCurrentStage(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	funnel := testsupport.CreateTestFunnel(t, db, "Stage Funnel")
	tf := testWindow(t)
	startedAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	stage := func(s string) testsupport.SessionOption {
		return func(session *sessions.Session) { session.CurrentStage = s }
	}
	testsupport.CreateTestSession(t, db, funnel.ID, startedAt, stage(sessions.StageAwareness))
	testsupport.CreateTestSession(t, db, funnel.ID, startedAt, stage(sessions.StageAwareness))
	testsupport.CreateTestSession(t, db, funnel.ID, startedAt, stage(sessions.StagePurchase))
	testsupport.CreateTestSession(t, db, funnel.ID, startedAt, stage(""))

	counts, err := sessions.CountByCurrentStage(db, funnel.ID, tf)
	require.NoError(t, err)

	assert.Equal(t, int64(2), counts[sessions.StageAwareness])
	assert.Equal(t, int64(1), counts[sessions.StagePurchase])
	// Sessions without a stage never show up as a bucket.
	_, present := counts[""]
	assert.False(t, present)
}

func TestWithEngagementFiltersUnmeasured(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	funnel := testsupport.CreateTestFunnel(t, db, "Engagement Funnel")
	tf := testWindow(t)
	startedAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	measured := testsupport.CreateTestSession(t, db, funnel.ID, startedAt, func(s *sessions.Session) {
		s.ActiveTimeSeconds = testsupport.Ptr(45.0)
		s.DurationSeconds = 90
	})
	testsupport.CreateTestSession(t, db, funnel.ID, startedAt)

	results, err := sessions.WithEngagement(db, funnel.ID, tf)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, measured.ID, results[0].ID)
	require.NotNil(t, results[0].ActiveTimeSeconds)
	assert.Equal(t, 45.0, *results[0].ActiveTimeSeconds)
}
