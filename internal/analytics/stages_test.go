package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelscope/internal/analytics"
	"funnelscope/internal/sessions"
)

func TestStageFlowDropOffRates(t *testing.T) {
	result := analytics.StageFlow(map[string]int64{
		sessions.StageAwareness: 100,
		sessions.StageInterest:  60,
		sessions.StageDesire:    60,
		sessions.StagePurchase:  20,
	})

	require.Len(t, result.Stages, 4)

	assert.Equal(t, sessions.StageAwareness, result.Stages[0].Stage)
	assert.Equal(t, int64(100), result.Stages[0].Sessions)
	assert.Equal(t, 0.0, result.Stages[0].DropOffRate)
	assert.Equal(t, 100.0, result.Stages[0].ConversionRate)

	assert.Equal(t, sessions.StageInterest, result.Stages[1].Stage)
	assert.Equal(t, 40.0, result.Stages[1].DropOffRate)
	assert.Equal(t, 60.0, result.Stages[1].ConversionRate)

	assert.Equal(t, sessions.StageDesire, result.Stages[2].Stage)
	assert.Equal(t, 0.0, result.Stages[2].DropOffRate)

	assert.Equal(t, sessions.StagePurchase, result.Stages[3].Stage)
	assert.Equal(t, 66.67, result.Stages[3].DropOffRate)
	assert.Equal(t, 20.0, result.Stages[3].ConversionRate)

	assert.Equal(t, "20.00", result.OverallConversionRate)
}

func TestStageFlowEmptyStagesOmitted(t *testing.T) {
	result := analytics.StageFlow(map[string]int64{
		sessions.StageAwareness: 10,
		sessions.StageInterest:  0,
		sessions.StageCheckout:  4,
	})

	require.Len(t, result.Stages, 2)
	assert.Equal(t, sessions.StageAwareness, result.Stages[0].Stage)
	assert.Equal(t, sessions.StageCheckout, result.Stages[1].Stage)
}

func TestStageFlowNegativeDropOffReportedAsIs(t *testing.T) {
	result := analytics.StageFlow(map[string]int64{
		sessions.StageAwareness: 50,
		sessions.StageInterest:  80,
	})

	require.Len(t, result.Stages, 2)
	assert.Equal(t, -60.0, result.Stages[1].DropOffRate)
	assert.Equal(t, 160.0, result.Stages[1].ConversionRate)
}

func TestStageFlowUnrecognizedStagesLast(t *testing.T) {
	result := analytics.StageFlow(map[string]int64{
		"zeta-custom":           5,
		"alpha-custom":          3,
		sessions.StagePurchase:  7,
		sessions.StageAwareness: 20,
	})

	require.Len(t, result.Stages, 4)
	assert.Equal(t, sessions.StageAwareness, result.Stages[0].Stage)
	assert.Equal(t, sessions.StagePurchase, result.Stages[1].Stage)
	assert.Equal(t, "alpha-custom", result.Stages[2].Stage)
	assert.Equal(t, "zeta-custom", result.Stages[3].Stage)
}

func TestStageFlowEmptyInput(t *testing.T) {
	result := analytics.StageFlow(map[string]int64{})

	assert.Empty(t, result.Stages)
	assert.Equal(t, "0.00", result.OverallConversionRate)
}

func TestStageFlowNoPurchaseStage(t *testing.T) {
	result := analytics.StageFlow(map[string]int64{
		sessions.StageAwareness: 100,
		sessions.StageInterest:  40,
	})

	assert.Equal(t, "0.00", result.OverallConversionRate)
}
