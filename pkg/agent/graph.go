// Package agent provides the graph-based agent execution runtime: a bounded
// reasoning loop modeled as a directed graph with conditional edges, with the
// middleware pipeline applied at each hook point.
package agent

import (
	"context"

	"github.com/strandworks/strand/pkg/models"
)

// Well-known node identifiers. NodeEnd is the terminal sentinel; reaching it
// stops the loop.
const (
	NodeStart       = "start"
	NodeReasoning   = "reasoning"
	NodeAction      = "action"
	NodeObservation = "observation"
	NodeDecision    = "decision"
	NodeEnd         = "end"
)

// Predicate gates an edge on the current state.
type Predicate func(state *models.AgentState) bool

// Edge is a directed transition with an optional predicate. A nil predicate
// always matches.
type Edge struct {
	To   string
	When Predicate
}

// Behavior executes one node of the agent graph.
type Behavior interface {
	Step(ctx context.Context, run *Run, state *models.AgentState) error
}

// BehaviorFunc adapts a function to the Behavior interface.
type BehaviorFunc func(ctx context.Context, run *Run, state *models.AgentState) error

func (f BehaviorFunc) Step(ctx context.Context, run *Run, state *models.AgentState) error {
	return f(ctx, run, state)
}

// Graph is a small state machine over named behaviors. Edges are evaluated in
// registration order; the first matching edge wins. When no edge matches the
// transition falls through to NodeEnd, so execution can never stall.
type Graph struct {
	nodes map[string]Behavior
	edges map[string][]Edge
	entry string
}

// NewGraph creates an empty graph with NodeStart as entry.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]Behavior),
		edges: make(map[string][]Edge),
		entry: NodeStart,
	}
}

// AddNode registers a behavior under an id.
func (g *Graph) AddNode(id string, behavior Behavior) *Graph {
	g.nodes[id] = behavior

	return g
}

// AddEdge registers a conditional transition. Edges are kept in registration
// order.
func (g *Graph) AddEdge(from, to string, when Predicate) *Graph {
	g.edges[from] = append(g.edges[from], Edge{To: to, When: when})

	return g
}

// SetEntry sets the initial node.
func (g *Graph) SetEntry(id string) *Graph {
	g.entry = id

	return g
}

// Entry returns the initial node id.
func (g *Graph) Entry() string {
	return g.entry
}

// Node returns the behavior registered under an id.
func (g *Graph) Node(id string) (Behavior, bool) {
	behavior, ok := g.nodes[id]

	return behavior, ok
}

// Next computes the transition from a node: the first edge in registration
// order whose predicate is absent or true, else NodeEnd.
func (g *Graph) Next(from string, state *models.AgentState) string {
	for _, edge := range g.edges[from] {
		if edge.When == nil || edge.When(state) {
			return edge.To
		}
	}

	return NodeEnd
}
