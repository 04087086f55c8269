package tutor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mathtutor/pkg/agent"
	"mathtutor/pkg/agent/llm"
	"mathtutor/pkg/agent/llmerrors"
	"mathtutor/pkg/usage"
)

func TestRouteParsesValidTokens(t *testing.T) {
	tests := []struct {
		response string
		want     Route
	}{
		{"knowledge_base", RouteKnowledgeBase},
		{"web_search", RouteWebSearch},
		{"both", RouteBoth},
		{"  Knowledge_Base \n", RouteKnowledgeBase}, // whitespace and case normalized
		{"BOTH", RouteBoth},
	}

	for _, tt := range tests {
		t.Run(tt.response, func(t *testing.T) {
			client := agent.NewMockLLMClient([]llm.CompletionResponse{{Content: tt.response}}, nil)
			router := NewRouter(client, "gpt-3.5-turbo", nil)

			route, elapsed := router.Route(context.Background(), "solve x+1=2")
			assert.Equal(t, tt.want, route)
			assert.Greater(t, elapsed, time.Duration(0))
		})
	}
}

func TestRouteFallsBackOnUnexpectedResponse(t *testing.T) {
	for _, content := range []string{"", "websearch", "use the knowledge base please", "knowledge_base."} {
		client := agent.NewMockLLMClient([]llm.CompletionResponse{{Content: content}}, nil)
		router := NewRouter(client, "gpt-3.5-turbo", nil)

		route, _ := router.Route(context.Background(), "solve x+1=2")
		assert.Equal(t, RouteKnowledgeBase, route, "response %q", content)
	}
}

func TestRouteFallsBackOnError(t *testing.T) {
	client := agent.NewMockLLMClient(nil, []error{
		llmerrors.NewError(llmerrors.ErrorTypeTransient, "connection reset"),
	})
	ledger := usage.NewLedger()
	router := NewRouter(client, "gpt-3.5-turbo", ledger)

	route, elapsed := router.Route(context.Background(), "solve x+1=2")
	assert.Equal(t, RouteKnowledgeBase, route)
	assert.Zero(t, elapsed)
	// Failed calls are not accounted.
	assert.Zero(t, ledger.Totals().Calls)
}

func TestRoutePromptEmbedsQuestion(t *testing.T) {
	client := agent.NewMockLLMClient([]llm.CompletionResponse{{Content: "knowledge_base"}}, nil)
	router := NewRouter(client, "gpt-3.5-turbo", nil)

	_, _ = router.Route(context.Background(), "integrate sin(x) dx")

	reqs := client.Requests()
	require.Len(t, reqs, 1)
	prompt := reqs[0].Messages[0].Content
	assert.Contains(t, prompt, `Question: "integrate sin(x) dx"`)
	assert.Contains(t, prompt, "Respond with exactly one word")
	assert.Zero(t, reqs[0].Temperature)
}

func TestRouteAccountsUsage(t *testing.T) {
	client := agent.NewMockLLMClient([]llm.CompletionResponse{
		{Content: "both", Usage: llm.Usage{PromptTokens: 180, CompletionTokens: 2}},
	}, nil)
	ledger := usage.NewLedger()
	router := NewRouter(client, "gpt-3.5-turbo", ledger)

	_, _ = router.Route(context.Background(), "solve x+1=2")

	records := ledger.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "router", records[0].Stage)
	assert.Equal(t, 182, records[0].PromptTokens+records[0].CompletionTokens)
	assert.Greater(t, records[0].Cost, 0.0)
}

func TestRouteEstimatesTokensWhenUnreported(t *testing.T) {
	client := agent.NewMockLLMClient([]llm.CompletionResponse{{Content: "knowledge_base"}}, nil)
	ledger := usage.NewLedger()
	router := NewRouter(client, "gpt-3.5-turbo", ledger)

	_, _ = router.Route(context.Background(), "solve x+1=2")

	records := ledger.Records()
	require.Len(t, records, 1)
	assert.Greater(t, records[0].PromptTokens, 0)
}
