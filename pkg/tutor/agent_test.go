package tutor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mathtutor/pkg/agent"
	"mathtutor/pkg/agent/llm"
	"mathtutor/pkg/config"
	"mathtutor/pkg/persistence"
	"mathtutor/pkg/retrieval"
	"mathtutor/pkg/usage"
)

type stubRetriever struct {
	result retrieval.Result
	calls  int
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string) retrieval.Result {
	s.calls++
	return s.result
}

type captureAudit struct {
	saved []*persistence.Interaction
}

func (c *captureAudit) SaveInteraction(_ context.Context, in *persistence.Interaction) error {
	c.saved = append(c.saved, in)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			MaxContextLength:  2000,
			MaxQuestionLength: 1000,
		},
	}
}

func newTestAgent(routerResp, generatorResp string, kb, web Retriever, audit AuditStore) (*Agent, *usage.Ledger) {
	ledger := usage.NewLedger()

	routerClient := agent.NewMockLLMClient([]llm.CompletionResponse{
		{Content: routerResp, Usage: llm.Usage{PromptTokens: 150, CompletionTokens: 2}},
	}, nil)
	generatorClient := agent.NewMockLLMClient([]llm.CompletionResponse{
		{Content: generatorResp, Usage: llm.Usage{PromptTokens: 600, CompletionTokens: 200}},
	}, nil)

	a := NewAgent(testConfig(), Deps{
		Router:    NewRouter(routerClient, "gpt-3.5-turbo", ledger),
		Generator: NewGenerator(generatorClient, "gpt-4o-mini", ledger),
		Knowledge: kb,
		Web:       web,
		Audit:     audit,
	}, "session-test")

	return a, ledger
}

func TestSolveKnowledgeBaseRoute(t *testing.T) {
	kb := &stubRetriever{result: retrieval.OK("Example 1:\nProblem: similar problem\nSolution: Step 1: ...")}
	web := &stubRetriever{result: retrieval.OK("should not be called")}
	audit := &captureAudit{}

	a, ledger := newTestAgent("knowledge_base", structuredSolution, kb, web, audit)

	resp, err := a.Solve(context.Background(), "solve x^2+5x+6=0")
	require.NoError(t, err)

	assert.True(t, resp.Answered)
	assert.Equal(t, RouteKnowledgeBase, resp.Route)
	assert.Equal(t, structuredSolution, resp.Solution)
	assert.InDelta(t, 1.0, resp.Confidence, 1e-9)
	assert.False(t, resp.NeedsHumanFeedback)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, 800, resp.TokensUsed)

	assert.Equal(t, 1, kb.calls)
	assert.Zero(t, web.calls)

	// Router and generator both accounted.
	assert.Equal(t, 2, ledger.Totals().Calls)

	require.Len(t, audit.saved, 1)
	assert.Equal(t, resp.RequestID, audit.saved[0].RequestID)
	assert.Equal(t, "session-test", audit.saved[0].SessionID)
	assert.True(t, audit.saved[0].Answered)
}

func TestSolveWebSearchRoute(t *testing.T) {
	kb := &stubRetriever{result: retrieval.OK("kb content")}
	web := &stubRetriever{result: retrieval.OK("Result 1:\nTitle: current math news")}

	a, _ := newTestAgent("web_search", structuredSolution, kb, web, nil)

	resp, err := a.Solve(context.Background(), "solve the latest millennium problem")
	require.NoError(t, err)

	assert.True(t, resp.Answered)
	assert.Equal(t, RouteWebSearch, resp.Route)
	assert.Zero(t, kb.calls)
	assert.Equal(t, 1, web.calls)
}

func TestSolveBothRouteSearchesKBThenWeb(t *testing.T) {
	kb := &stubRetriever{result: retrieval.OK("kb content")}
	web := &stubRetriever{result: retrieval.OK("web content")}

	a, _ := newTestAgent("both", structuredSolution, kb, web, nil)

	resp, err := a.Solve(context.Background(), "derive the latest bounds on prime gaps")
	require.NoError(t, err)

	assert.True(t, resp.Answered)
	assert.Equal(t, RouteBoth, resp.Route)
	assert.Equal(t, 1, kb.calls)
	assert.Equal(t, 1, web.calls)
}

func TestSolveBothSourcesFailStillAnswers(t *testing.T) {
	kb := &stubRetriever{result: retrieval.Failed("Knowledge base search failed: qdrant down")}
	web := &stubRetriever{result: retrieval.Failed("Web search failed: offline")}

	generatorClient := agent.NewMockLLMClient([]llm.CompletionResponse{
		{Content: structuredSolution},
	}, nil)
	routerClient := agent.NewMockLLMClient([]llm.CompletionResponse{{Content: "both"}}, nil)

	a := NewAgent(testConfig(), Deps{
		Router:    NewRouter(routerClient, "gpt-3.5-turbo", nil),
		Generator: NewGenerator(generatorClient, "gpt-4o-mini", nil),
		Knowledge: kb,
		Web:       web,
	}, "session-test")

	resp, err := a.Solve(context.Background(), "solve x^2 = 2")
	require.NoError(t, err)

	require.True(t, resp.Answered)
	// Generator saw the fallback context, not the failure reasons.
	reqs := generatorClient.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Messages[0].Content, limitedContextFallback)
	assert.NotContains(t, reqs[0].Messages[0].Content, "qdrant down")
}

func TestSolveRejectedQuestionSkipsModels(t *testing.T) {
	kb := &stubRetriever{}
	web := &stubRetriever{}
	audit := &captureAudit{}

	routerClient := agent.NewMockLLMClient(nil, nil) // any call would error
	generatorClient := agent.NewMockLLMClient(nil, nil)

	a := NewAgent(testConfig(), Deps{
		Router:    NewRouter(routerClient, "gpt-3.5-turbo", nil),
		Generator: NewGenerator(generatorClient, "gpt-4o-mini", nil),
		Knowledge: kb,
		Web:       web,
		Audit:     audit,
	}, "session-test")

	resp, err := a.Solve(context.Background(), "hi")
	require.NoError(t, err)

	assert.False(t, resp.Answered)
	assert.Equal(t, msgTooShort, resp.RejectionReason)
	assert.Empty(t, resp.Solution)
	assert.Zero(t, kb.calls)
	assert.Zero(t, web.calls)
	assert.Empty(t, routerClient.Requests())
	assert.Empty(t, generatorClient.Requests())

	require.Len(t, audit.saved, 1)
	assert.False(t, audit.saved[0].Answered)
	assert.Equal(t, msgTooShort, audit.saved[0].RejectionReason)
}

func TestSolveRouterFallbackOnGibberish(t *testing.T) {
	kb := &stubRetriever{result: retrieval.OK("kb content")}
	web := &stubRetriever{}

	a, _ := newTestAgent("flip a coin", structuredSolution, kb, web, nil)

	resp, err := a.Solve(context.Background(), "solve x+1=2")
	require.NoError(t, err)

	assert.Equal(t, RouteKnowledgeBase, resp.Route)
	assert.Equal(t, 1, kb.calls)
	assert.Zero(t, web.calls)
}

func TestSolveCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, _ := newTestAgent("knowledge_base", structuredSolution, &stubRetriever{}, &stubRetriever{}, nil)

	_, err := a.Solve(ctx, "solve x+1=2")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolveOutputGuardrailAppliesToPipeline(t *testing.T) {
	kb := &stubRetriever{result: retrieval.Empty()}
	web := &stubRetriever{}

	// Generator emits a too-short solution; the output guardrail replaces it.
	a, _ := newTestAgent("knowledge_base", "x = 4", kb, web, nil)

	resp, err := a.Solve(context.Background(), "solve 2x = 8")
	require.NoError(t, err)

	assert.Equal(t, tooShortSolutionReplacement, resp.Solution)
	assert.InDelta(t, 0.2, resp.Confidence, 1e-9)
	assert.True(t, resp.NeedsHumanFeedback)
}
