// Package workflow provides a small state machine interpreter for running
// multi-step pipelines. A graph is a set of named nodes over a shared state
// value; nodes apply partial updates to the state and static or conditional
// edges choose the next node until End is reached.
package workflow

import (
	"context"
	"fmt"

	"mathtutor/pkg/logx"
)

// End is the terminal node name. Routing to End stops the run.
const End = "__end__"

// defaultMaxSteps bounds a run so a bad edge set cannot loop forever.
const defaultMaxSteps = 50

// NodeFunc executes one pipeline step. It mutates only the state fields it
// produces; everything else carries through unchanged.
type NodeFunc[S any] func(ctx context.Context, state *S) error

// RouterFunc picks the next node name based on the current state.
type RouterFunc[S any] func(state *S) string

// Graph is an executable node graph. Build one with NewGraph and the Add
// methods, then call Run.
type Graph[S any] struct {
	nodes       map[string]NodeFunc[S]
	edges       map[string]string
	conditional map[string]RouterFunc[S]
	entry       string
	maxSteps    int
	logger      *logx.Logger
}

// NewGraph creates an empty graph.
func NewGraph[S any](name string) *Graph[S] {
	return &Graph[S]{
		nodes:       make(map[string]NodeFunc[S]),
		edges:       make(map[string]string),
		conditional: make(map[string]RouterFunc[S]),
		maxSteps:    defaultMaxSteps,
		logger:      logx.NewLogger(name),
	}
}

// AddNode registers a named step.
func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) *Graph[S] {
	g.nodes[name] = fn
	return g
}

// AddEdge registers a static transition from one node to the next.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.edges[from] = to
	return g
}

// AddConditionalEdge registers a router that picks the successor of a node
// at runtime. A conditional edge takes precedence over a static one.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S]) *Graph[S] {
	g.conditional[from] = router
	return g
}

// SetEntryPoint sets the node a run starts from.
func (g *Graph[S]) SetEntryPoint(name string) *Graph[S] {
	g.entry = name
	return g
}

// SetMaxSteps overrides the step bound.
func (g *Graph[S]) SetMaxSteps(n int) *Graph[S] {
	if n > 0 {
		g.maxSteps = n
	}
	return g
}

// Validate checks that the graph is runnable: an entry point exists and
// every static edge references a known node.
func (g *Graph[S]) Validate() error {
	if g.entry == "" {
		return fmt.Errorf("graph has no entry point")
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return fmt.Errorf("entry point %q is not a registered node", g.entry)
	}
	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("edge source %q is not a registered node", from)
		}
		if to != End {
			if _, ok := g.nodes[to]; !ok {
				return fmt.Errorf("edge target %q is not a registered node", to)
			}
		}
	}
	for from := range g.conditional {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("conditional edge source %q is not a registered node", from)
		}
	}
	return nil
}

// Run executes the graph from the entry point, mutating state in place.
// Node errors abort the run; routing errors (unknown node, missing edge,
// step bound exceeded) do too. The context is checked before each step.
func (g *Graph[S]) Run(ctx context.Context, state *S) error {
	if err := g.Validate(); err != nil {
		return err
	}

	current := g.entry
	for step := 0; step < g.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run canceled at node %q: %w", current, err)
		}

		fn, ok := g.nodes[current]
		if !ok {
			return fmt.Errorf("routed to unknown node %q", current)
		}

		g.logger.Debug("executing node=%s step=%d", current, step)
		if err := fn(ctx, state); err != nil {
			return fmt.Errorf("node %q failed: %w", current, err)
		}

		next, err := g.next(current, state)
		if err != nil {
			return err
		}
		if next == End {
			return nil
		}
		current = next
	}

	return fmt.Errorf("run exceeded %d steps without reaching end", g.maxSteps)
}

func (g *Graph[S]) next(current string, state *S) (string, error) {
	if router, ok := g.conditional[current]; ok {
		next := router(state)
		if next == "" {
			return "", fmt.Errorf("conditional edge from %q returned no target", current)
		}
		return next, nil
	}
	if next, ok := g.edges[current]; ok {
		return next, nil
	}
	return "", fmt.Errorf("node %q has no outgoing edge", current)
}
