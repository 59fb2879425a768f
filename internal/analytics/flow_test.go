package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelscope/internal/analytics"
	"funnelscope/internal/events"
	"funnelscope/internal/sessions"
)

func pageEvent(id uint, sessionID, path string, ts time.Time) events.Event {
	return events.Event{
		ID:        id,
		SessionID: sessionID,
		EventType: events.EventTypePageView,
		PagePath:  path,
		Timestamp: ts,
	}
}

func TestBuildFlowRevisitCountsSessionOnce(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// One session: A -> B -> A. Node A is visited twice but counts one session.
	evts := []events.Event{
		pageEvent(1, "s1", "/a", base),
		pageEvent(2, "s1", "/b", base.Add(time.Minute)),
		pageEvent(3, "s1", "/a", base.Add(2*time.Minute)),
	}

	graph := analytics.BuildFlow(nil, evts, events.EventTypePageView)
	require.Len(t, graph.Nodes, 2)

	byID := map[string]analytics.FlowNode{}
	for _, n := range graph.Nodes {
		byID[n.ID] = n
	}
	assert.Equal(t, int64(1), byID["/a"].Count)
	assert.Equal(t, int64(1), byID["/b"].Count)

	require.Len(t, graph.Edges, 2)
}

func TestBuildFlowSingleEventSessionHasNoEdges(t *testing.T) {
	evts := []events.Event{
		pageEvent(1, "s1", "/landing", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
	}

	graph := analytics.BuildFlow(nil, evts, events.EventTypePageView)
	require.Len(t, graph.Nodes, 1)
	assert.Empty(t, graph.Edges)
}

func TestBuildFlowNoSelfLoopEdges(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	evts := []events.Event{
		pageEvent(1, "s1", "/a", base),
		pageEvent(2, "s1", "/a", base.Add(time.Minute)),
		pageEvent(3, "s1", "/b", base.Add(2*time.Minute)),
	}

	graph := analytics.BuildFlow(nil, evts, events.EventTypePageView)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, "/a", graph.Edges[0].Source)
	assert.Equal(t, "/b", graph.Edges[0].Target)
}

func TestBuildFlowEdgeWeights(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	evts := []events.Event{
		pageEvent(1, "s1", "/a", base),
		pageEvent(2, "s1", "/b", base.Add(time.Minute)),
		pageEvent(3, "s2", "/a", base),
		pageEvent(4, "s2", "/b", base.Add(time.Minute)),
		pageEvent(5, "s2", "/c", base.Add(2*time.Minute)),
	}

	graph := analytics.BuildFlow(nil, evts, events.EventTypePageView)
	require.Len(t, graph.Edges, 2)

	// Sorted by weight descending.
	assert.Equal(t, "/a", graph.Edges[0].Source)
	assert.Equal(t, "/b", graph.Edges[0].Target)
	assert.Equal(t, int64(2), graph.Edges[0].Weight)
	assert.Equal(t, int64(1), graph.Edges[1].Weight)
}

func TestBuildFlowOrdersEventsByTimestamp(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Events arrive out of order; the sequence must be rebuilt chronologically.
	evts := []events.Event{
		pageEvent(2, "s1", "/b", base.Add(time.Minute)),
		pageEvent(1, "s1", "/a", base),
	}

	graph := analytics.BuildFlow(nil, evts, events.EventTypePageView)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, "/a", graph.Edges[0].Source)
	assert.Equal(t, "/b", graph.Edges[0].Target)
}

func TestBuildFlowEventTypeFilter(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	custom := events.Event{
		ID: 2, SessionID: "s1", EventType: events.EventTypeCustomEvent,
		Name: "signup", Timestamp: base.Add(time.Minute),
	}
	evts := []events.Event{pageEvent(1, "s1", "/a", base), custom}

	graph := analytics.BuildFlow(nil, evts, events.EventTypePageView)
	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, "/a", graph.Nodes[0].ID)

	all := analytics.BuildFlow(nil, evts, 0)
	assert.Len(t, all.Nodes, 2)
}

func TestBuildFlowMetrics(t *testing.T) {
	sess := []sessions.Session{
		{ID: "s1", Converted: true},
		{ID: "s2"},
		{ID: "s3"},
	}

	graph := analytics.BuildFlow(sess, nil, 0)
	assert.Equal(t, int64(3), graph.Metrics.TotalSessions)
	assert.Equal(t, int64(1), graph.Metrics.ConvertedSessions)
	assert.Equal(t, 33.33, graph.Metrics.ConversionRate)
	assert.Equal(t, 66.67, graph.Metrics.DropOffRate)
}

func TestBuildFlowEmptyWindow(t *testing.T) {
	graph := analytics.BuildFlow(nil, nil, 0)
	assert.Empty(t, graph.Nodes)
	assert.Empty(t, graph.Edges)
	assert.Equal(t, 0.0, graph.Metrics.ConversionRate)
	assert.Equal(t, 0.0, graph.Metrics.DropOffRate)
}

func TestBuildFlowFallsBackToEventName(t *testing.T) {
	evt := events.Event{
		ID: 1, SessionID: "s1", EventType: events.EventTypeCustomEvent,
		Name: "checkout_started", Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	graph := analytics.BuildFlow(nil, []events.Event{evt}, 0)
	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, "checkout_started", graph.Nodes[0].ID)
	assert.Equal(t, "checkout_started", graph.Nodes[0].Label)
}
