package timeframe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelscope/internal/timeframe"
)

func TestBucketStartFloors(t *testing.T) {
	ts := time.Date(2026, 3, 1, 13, 47, 33, 0, time.UTC)

	tests := []struct {
		granularity timeframe.Granularity
		expected    time.Time
	}{
		{timeframe.Granularity15Min, time.Date(2026, 3, 1, 13, 45, 0, 0, time.UTC)},
		{timeframe.Granularity30Min, time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC)},
		{timeframe.GranularityHour, time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)},
		{timeframe.Granularity4Hour, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		{timeframe.GranularityDay, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range tests {
		t.Run(string(tc.granularity), func(t *testing.T) {
			assert.Equal(t, tc.expected, timeframe.BucketStart(ts, tc.granularity))
		})
	}
}

func TestBucketKeyFormats(t *testing.T) {
	ts := time.Date(2026, 3, 1, 13, 47, 0, 0, time.UTC)

	assert.Equal(t, "2026-03-01 13:45", timeframe.BucketKey(ts, timeframe.Granularity15Min))
	assert.Equal(t, "2026-03-01 13:00", timeframe.BucketKey(ts, timeframe.GranularityHour))
	assert.Equal(t, "2026-03-01", timeframe.BucketKey(ts, timeframe.GranularityDay))
}

func TestBucketKeysSortChronologically(t *testing.T) {
	earlier := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	later := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Less(t,
		timeframe.BucketKey(earlier, timeframe.GranularityHour),
		timeframe.BucketKey(later, timeframe.GranularityHour))
}

func TestParseGranularity(t *testing.T) {
	g, err := timeframe.ParseGranularity("4h")
	require.NoError(t, err)
	assert.Equal(t, timeframe.Granularity4Hour, g)

	g, err = timeframe.ParseGranularity("")
	require.NoError(t, err)
	assert.Equal(t, timeframe.GranularityHour, g)

	_, err = timeframe.ParseGranularity("fortnight")
	assert.Error(t, err)
}

func TestNewTimeFrameRejectsInvertedBounds(t *testing.T) {
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := timeframe.NewTimeFrame(from, to)
	assert.Error(t, err)
}

func TestContains(t *testing.T) {
	tf, err := timeframe.NewTimeFrame(
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.True(t, tf.Contains(tf.From))
	assert.True(t, tf.Contains(tf.To))
	assert.False(t, tf.Contains(tf.To.Add(time.Second)))
}

func TestBucketStartsCoverWindow(t *testing.T) {
	tf, err := timeframe.NewTimeFrame(
		time.Date(2026, 3, 1, 10, 20, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	starts := tf.BucketStarts(timeframe.GranularityHour)
	require.Len(t, starts, 4)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), starts[0])
	assert.Equal(t, time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC), starts[3])
}

func TestSuggestedGranularity(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	window := func(d time.Duration) *timeframe.TimeFrame {
		tf, err := timeframe.NewTimeFrame(now.Add(-d), now)
		require.NoError(t, err)
		return tf
	}

	assert.Equal(t, timeframe.Granularity30Min, window(6*time.Hour).SuggestedGranularity())
	assert.Equal(t, timeframe.GranularityHour, window(48*time.Hour).SuggestedGranularity())
	assert.Equal(t, timeframe.Granularity4Hour, window(10*24*time.Hour).SuggestedGranularity())
	assert.Equal(t, timeframe.GranularityDay, window(60*24*time.Hour).SuggestedGranularity())
}
