package tutor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mathtutor/pkg/agent"
	"mathtutor/pkg/agent/llm"
	"mathtutor/pkg/agent/llmerrors"
	"mathtutor/pkg/usage"
)

const structuredSolution = "**Step-by-Step Solution:**\nStep 1: Factor x^2+5x+6 into (x+2)(x+3).\nStep 2: Set each factor to zero.\n**Final Answer:** x = -2 or x = -3"

func TestCalculateConfidence(t *testing.T) {
	richContext := strings.Repeat("Example 1: worked problem ", 10)

	tests := []struct {
		name     string
		context  string
		solution string
		want     float64
	}{
		{
			name:     "base only",
			context:  "",
			solution: "short note",
			want:     0.5,
		},
		{
			name:     "fallback context earns no boost",
			context:  limitedContextFallback,
			solution: "short note",
			want:     0.5,
		},
		{
			name:     "rich context",
			context:  richContext,
			solution: "short note",
			want:     0.7,
		},
		{
			name:     "two step markers",
			context:  "",
			solution: "Step 1: a\nStep 2: b",
			want:     0.7,
		},
		{
			name:     "single step marker earns nothing",
			context:  "",
			solution: "Step 1: only one",
			want:     0.5,
		},
		{
			name:     "final answer phrase",
			context:  "",
			solution: "the Final Answer is here",
			want:     0.6,
		},
		{
			name:     "math notation",
			context:  "",
			solution: "therefore a = b",
			want:     0.6,
		},
		{
			name:     "everything caps at one",
			context:  richContext,
			solution: structuredSolution,
			want:     1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calculateConfidence(tt.context, tt.solution), 1e-9)
		})
	}
}

func TestGenerateFillsState(t *testing.T) {
	client := agent.NewMockLLMClient([]llm.CompletionResponse{
		{Content: structuredSolution, Usage: llm.Usage{PromptTokens: 500, CompletionTokens: 120}},
	}, nil)
	ledger := usage.NewLedger()
	gen := NewGenerator(client, "gpt-4o-mini", ledger)

	s := RequestState{Question: "solve x^2+5x+6=0", Context: strings.Repeat("Example ", 20)}
	gen.Generate(context.Background(), &s)

	assert.Equal(t, structuredSolution, s.Solution)
	assert.InDelta(t, 1.0, s.Confidence, 1e-9)
	assert.False(t, s.NeedsHumanFeedback)
	assert.Equal(t, 620, s.TokensUsed)
	assert.Greater(t, s.CostEstimate, 0.0)

	// Prompt embeds question and context.
	reqs := client.Requests()
	require.Len(t, reqs, 1)
	prompt := reqs[0].Messages[0].Content
	assert.Contains(t, prompt, "solve x^2+5x+6=0")
	assert.Contains(t, prompt, "Example")

	totals := ledger.Totals()
	assert.Equal(t, 1, totals.Calls)
	assert.Equal(t, 620, totals.TotalTokens())
}

func TestGenerateLowConfidenceFlagsFeedback(t *testing.T) {
	client := agent.NewMockLLMClient([]llm.CompletionResponse{
		{Content: "It is forty-two and that is the whole of the explanation for this problem today."},
	}, nil)
	gen := NewGenerator(client, "gpt-4o-mini", nil)

	s := RequestState{Question: "q", Context: limitedContextFallback}
	gen.Generate(context.Background(), &s)

	// Base 0.5 only: no steps, no answer phrase, no notation, fallback context.
	assert.InDelta(t, 0.5, s.Confidence, 1e-9)
	assert.True(t, s.NeedsHumanFeedback)
}

func TestGenerateAbsorbsModelFailure(t *testing.T) {
	client := agent.NewMockLLMClient(nil, []error{
		llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "too many requests"),
	})
	gen := NewGenerator(client, "gpt-4o-mini", usage.NewLedger())

	s := RequestState{Question: "q", Context: "ctx"}
	gen.Generate(context.Background(), &s)

	assert.Contains(t, s.Solution, "I apologize, but I encountered an error generating the solution")
	assert.Zero(t, s.Confidence)
	assert.True(t, s.NeedsHumanFeedback)
	assert.Zero(t, s.GenerationTime)
	assert.Zero(t, s.TokensUsed)
}

func TestGenerateEstimatesTokensWhenUnreported(t *testing.T) {
	client := agent.NewMockLLMClient([]llm.CompletionResponse{
		{Content: "Step 1: done\nStep 2: also done"},
	}, nil)
	gen := NewGenerator(client, "gpt-4o-mini", nil)

	s := RequestState{Question: "q", Context: "c"}
	gen.Generate(context.Background(), &s)

	assert.Greater(t, s.TokensUsed, 0)
}
