package analytics

import (
	"sort"

	"funnelscope/internal/events"
	"funnelscope/internal/sessions"
)

// FlowNode is one page/event identity in the flow graph. Count is the number
// of distinct sessions that visited the node at least once, not the number of
// events at it.
type FlowNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// FlowEdge is an observed transition between two nodes. Weight is the number
// of session transitions, not events.
type FlowEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int64  `json:"weight"`
}

// FlowMetrics summarizes the window the graph was built over.
type FlowMetrics struct {
	TotalSessions     int64   `json:"total_sessions"`
	ConvertedSessions int64   `json:"converted_sessions"`
	ConversionRate    float64 `json:"conversion_rate"`
	DropOffRate       float64 `json:"drop_off_rate"`
}

// FlowGraph is the weighted directed graph for a time window, for flow/Sankey
// visualization.
type FlowGraph struct {
	Nodes   []FlowNode  `json:"nodes"`
	Edges   []FlowEdge  `json:"edges"`
	Metrics FlowMetrics `json:"metrics"`
}

func flowNodeID(e events.Event) string {
	switch {
	case e.PagePath != "":
		return e.PagePath
	case e.Name != "":
		return e.Name
	default:
		return UnknownValue
	}
}

func flowNodeLabel(e events.Event) string {
	switch {
	case e.PageTitle != "":
		return e.PageTitle
	case e.PagePath != "":
		return e.PagePath
	case e.Name != "":
		return e.Name
	default:
		return UnknownValue
	}
}

// BuildFlow reconstructs per-session ordered event sequences and builds the
// transition graph. eventType 0 admits all event kinds. Sessions with a
// single event contribute a node but no edge; consecutive events mapping to
// the same node identity do not create a self-loop edge.
func BuildFlow(sess []sessions.Session, evts []events.Event, eventType events.EventType) FlowGraph {
	// Group events by session, preserving the caller's chronological order
	// within each session.
	bySession := make(map[string][]events.Event)
	sessionOrder := []string{}
	for _, e := range evts {
		if eventType != 0 && e.EventType != eventType {
			continue
		}
		if _, seen := bySession[e.SessionID]; !seen {
			sessionOrder = append(sessionOrder, e.SessionID)
		}
		bySession[e.SessionID] = append(bySession[e.SessionID], e)
	}

	type nodeAgg struct {
		label    string
		sessions map[string]struct{}
	}
	nodes := make(map[string]*nodeAgg)
	nodeOrder := []string{}
	edges := make(map[[2]string]int64)
	edgeOrder := [][2]string{}

	for _, sessionID := range sessionOrder {
		sequence := bySession[sessionID]
		sort.SliceStable(sequence, func(i, j int) bool {
			if sequence[i].Timestamp.Equal(sequence[j].Timestamp) {
				return sequence[i].ID < sequence[j].ID
			}
			return sequence[i].Timestamp.Before(sequence[j].Timestamp)
		})

		previousID := ""
		for _, e := range sequence {
			id := flowNodeID(e)

			node, seen := nodes[id]
			if !seen {
				node = &nodeAgg{label: flowNodeLabel(e), sessions: make(map[string]struct{})}
				nodes[id] = node
				nodeOrder = append(nodeOrder, id)
			}
			// Per-node session set: a session revisiting a node counts once.
			node.sessions[sessionID] = struct{}{}

			if previousID != "" && previousID != id {
				key := [2]string{previousID, id}
				if _, seen := edges[key]; !seen {
					edgeOrder = append(edgeOrder, key)
				}
				edges[key]++
			}
			previousID = id
		}
	}

	graphNodes := make([]FlowNode, 0, len(nodeOrder))
	for _, id := range nodeOrder {
		graphNodes = append(graphNodes, FlowNode{
			ID:    id,
			Label: nodes[id].label,
			Count: int64(len(nodes[id].sessions)),
		})
	}
	sort.SliceStable(graphNodes, func(i, j int) bool {
		return graphNodes[i].Count > graphNodes[j].Count
	})

	graphEdges := make([]FlowEdge, 0, len(edgeOrder))
	for _, key := range edgeOrder {
		graphEdges = append(graphEdges, FlowEdge{Source: key[0], Target: key[1], Weight: edges[key]})
	}
	sort.SliceStable(graphEdges, func(i, j int) bool {
		return graphEdges[i].Weight > graphEdges[j].Weight
	})

	converted := int64(0)
	for _, s := range sess {
		if s.Converted {
			converted++
		}
	}

	metrics := FlowMetrics{
		TotalSessions:     int64(len(sess)),
		ConvertedSessions: converted,
	}
	if metrics.TotalSessions > 0 {
		metrics.ConversionRate = Round2(SafePercentage(converted, metrics.TotalSessions))
		metrics.DropOffRate = Round2(100 - metrics.ConversionRate)
	}

	return FlowGraph{Nodes: graphNodes, Edges: graphEdges, Metrics: metrics}
}
