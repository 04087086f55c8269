package workflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterState struct {
	visited []string
	n       int
}

func visit(name string) NodeFunc[counterState] {
	return func(_ context.Context, s *counterState) error {
		s.visited = append(s.visited, name)
		return nil
	}
}

func TestRunLinearGraph(t *testing.T) {
	g := NewGraph[counterState]("test").
		AddNode("a", visit("a")).
		AddNode("b", visit("b")).
		AddNode("c", visit("c")).
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", End).
		SetEntryPoint("a")

	state := counterState{}
	require.NoError(t, g.Run(context.Background(), &state))
	assert.Equal(t, []string{"a", "b", "c"}, state.visited)
}

func TestRunConditionalEdge(t *testing.T) {
	g := NewGraph[counterState]("test").
		AddNode("start", visit("start")).
		AddNode("left", visit("left")).
		AddNode("right", visit("right")).
		AddConditionalEdge("start", func(s *counterState) string {
			if s.n > 0 {
				return "right"
			}
			return "left"
		}).
		AddEdge("left", End).
		AddEdge("right", End).
		SetEntryPoint("start")

	state := counterState{n: 1}
	require.NoError(t, g.Run(context.Background(), &state))
	assert.Equal(t, []string{"start", "right"}, state.visited)

	state = counterState{}
	require.NoError(t, g.Run(context.Background(), &state))
	assert.Equal(t, []string{"start", "left"}, state.visited)
}

func TestRunBackEdgeTerminates(t *testing.T) {
	// loop revisits "work" until the state says stop.
	g := NewGraph[counterState]("test").
		AddNode("work", func(_ context.Context, s *counterState) error {
			s.n++
			return nil
		}).
		AddConditionalEdge("work", func(s *counterState) string {
			if s.n < 3 {
				return "work"
			}
			return End
		}).
		SetEntryPoint("work")

	state := counterState{}
	require.NoError(t, g.Run(context.Background(), &state))
	assert.Equal(t, 3, state.n)
}

func TestRunNodeErrorAborts(t *testing.T) {
	g := NewGraph[counterState]("test").
		AddNode("boom", func(_ context.Context, _ *counterState) error {
			return fmt.Errorf("exploded")
		}).
		AddEdge("boom", End).
		SetEntryPoint("boom")

	err := g.Run(context.Background(), &counterState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `node "boom" failed`)
}

func TestRunStepBound(t *testing.T) {
	g := NewGraph[counterState]("test").
		AddNode("spin", visit("spin")).
		AddEdge("spin", "spin").
		SetEntryPoint("spin").
		SetMaxSteps(5)

	err := g.Run(context.Background(), &counterState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded 5 steps")
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGraph[counterState]("test").
		AddNode("a", visit("a")).
		AddEdge("a", End).
		SetEntryPoint("a")

	err := g.Run(ctx, &counterState{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateRejectsBadGraphs(t *testing.T) {
	g := NewGraph[counterState]("test")
	assert.Error(t, g.Validate()) // no entry

	g = NewGraph[counterState]("test").SetEntryPoint("ghost")
	assert.Error(t, g.Validate()) // entry not registered

	g = NewGraph[counterState]("test").
		AddNode("a", visit("a")).
		AddEdge("a", "missing").
		SetEntryPoint("a")
	assert.Error(t, g.Validate()) // dangling edge target
}

func TestRunMissingEdgeFails(t *testing.T) {
	g := NewGraph[counterState]("test").
		AddNode("a", visit("a")).
		SetEntryPoint("a")

	err := g.Run(context.Background(), &counterState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no outgoing edge")
}
