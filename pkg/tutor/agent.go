package tutor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mathtutor/pkg/config"
	"mathtutor/pkg/logx"
	"mathtutor/pkg/persistence"
	"mathtutor/pkg/retrieval"
	"mathtutor/pkg/workflow"
)

// Node names in the pipeline graph.
const (
	nodeInputGuardrails  = "input_guardrails"
	nodeRouteQuestion    = "route_question"
	nodeSearchKB         = "search_kb"
	nodeSearchWeb        = "search_web"
	nodeCombineContext   = "combine_context"
	nodeGenerateSolution = "generate_solution"
	nodeOutputGuardrails = "output_guardrails"
)

// Retriever retrieves formatted context for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) retrieval.Result
}

// AuditStore records finished interactions. Implementations must tolerate
// concurrent calls; the agent logs and continues on save failures.
type AuditStore interface {
	SaveInteraction(ctx context.Context, in *persistence.Interaction) error
}

// Deps bundles the collaborating components an Agent runs on.
type Deps struct {
	Router    *Router
	Generator *Generator
	Knowledge Retriever
	Web       Retriever
	Audit     AuditStore // optional
}

// Agent answers math questions through the guarded retrieval/generation
// pipeline. Safe for concurrent use when its dependencies are.
type Agent struct {
	deps              Deps
	graph             *workflow.Graph[RequestState]
	maxContextLength  int
	maxQuestionLength int
	sessionID         string
	logger            *logx.Logger
}

// NewAgent creates an agent and builds its pipeline graph.
func NewAgent(cfg *config.Config, deps Deps, sessionID string) *Agent {
	a := &Agent{
		deps:              deps,
		maxContextLength:  cfg.Pipeline.MaxContextLength,
		maxQuestionLength: cfg.Pipeline.MaxQuestionLength,
		sessionID:         sessionID,
		logger:            logx.NewLogger("tutor"),
	}
	a.graph = a.buildGraph()
	return a
}

// SessionID identifies this agent's session in metrics and audit records.
func (a *Agent) SessionID() string {
	return a.sessionID
}

// buildGraph wires the pipeline:
//
//	input_guardrails → route_question → search_kb | search_web
//	search_kb / search_web → combine_context
//	combine_context → search_web (when route "both" hasn't searched the web yet)
//	combine_context → generate_solution → output_guardrails → END
func (a *Agent) buildGraph() *workflow.Graph[RequestState] {
	g := workflow.NewGraph[RequestState]("tutor")

	g.AddNode(nodeInputGuardrails, func(_ context.Context, s *RequestState) error {
		applyInputGuardrails(s, a.maxQuestionLength)
		return nil
	})

	g.AddNode(nodeRouteQuestion, func(ctx context.Context, s *RequestState) error {
		s.Route, s.RoutingTime = a.deps.Router.Route(ctx, s.Question)
		return nil
	})

	g.AddNode(nodeSearchKB, func(ctx context.Context, s *RequestState) error {
		s.KnowledgeResults = a.deps.Knowledge.Retrieve(ctx, s.Question)
		s.KBSearched = true
		return nil
	})

	g.AddNode(nodeSearchWeb, func(ctx context.Context, s *RequestState) error {
		s.WebResults = a.deps.Web.Retrieve(ctx, s.Question)
		s.WebSearched = true
		return nil
	})

	g.AddNode(nodeCombineContext, func(_ context.Context, s *RequestState) error {
		s.Context = combineContext(s.KnowledgeResults, s.WebResults, a.maxContextLength)
		return nil
	})

	g.AddNode(nodeGenerateSolution, func(ctx context.Context, s *RequestState) error {
		a.deps.Generator.Generate(ctx, s)
		return nil
	})

	g.AddNode(nodeOutputGuardrails, func(_ context.Context, s *RequestState) error {
		applyOutputGuardrails(s)
		return nil
	})

	g.SetEntryPoint(nodeInputGuardrails)

	g.AddConditionalEdge(nodeInputGuardrails, func(s *RequestState) string {
		if s.GuardrailPassed {
			return nodeRouteQuestion
		}
		return workflow.End
	})

	g.AddConditionalEdge(nodeRouteQuestion, func(s *RequestState) string {
		switch s.Route {
		case RouteWebSearch:
			return nodeSearchWeb
		case RouteBoth:
			// Start with the knowledge base, the web follows.
			return nodeSearchKB
		default:
			return nodeSearchKB
		}
	})

	g.AddEdge(nodeSearchKB, nodeCombineContext)
	g.AddEdge(nodeSearchWeb, nodeCombineContext)

	g.AddConditionalEdge(nodeCombineContext, func(s *RequestState) string {
		if s.Route == RouteBoth && !s.WebSearched {
			return nodeSearchWeb
		}
		return nodeGenerateSolution
	})

	g.AddEdge(nodeGenerateSolution, nodeOutputGuardrails)
	g.AddEdge(nodeOutputGuardrails, workflow.End)

	return g
}

// Solve runs one question through the pipeline. Rejections and absorbed
// stage failures come back inside the Response; the returned error covers
// only structural failures (canceled context, broken graph).
func (a *Agent) Solve(ctx context.Context, question string) (*Response, error) {
	start := time.Now()

	state := RequestState{
		RequestID: uuid.NewString(),
		Question:  question,
	}

	if err := a.graph.Run(ctx, &state); err != nil {
		return nil, err
	}

	resp := &Response{
		RequestID:          state.RequestID,
		Question:           state.Question,
		Route:              state.Route,
		ProcessingTime:     time.Since(start),
		Confidence:         state.Confidence,
		NeedsHumanFeedback: state.NeedsHumanFeedback,
		TokensUsed:         state.TokensUsed,
		CostEstimate:       state.CostEstimate,
	}

	if state.GuardrailPassed {
		resp.Answered = true
		resp.Solution = state.Solution
	} else {
		resp.RejectionReason = state.ErrorMessage
	}

	a.audit(ctx, resp)
	return resp, nil
}

func (a *Agent) audit(ctx context.Context, resp *Response) {
	if a.deps.Audit == nil {
		return
	}

	err := a.deps.Audit.SaveInteraction(ctx, &persistence.Interaction{
		RequestID:          resp.RequestID,
		SessionID:          a.sessionID,
		Question:           resp.Question,
		Answered:           resp.Answered,
		RejectionReason:    resp.RejectionReason,
		Route:              string(resp.Route),
		Solution:           resp.Solution,
		Confidence:         resp.Confidence,
		NeedsHumanFeedback: resp.NeedsHumanFeedback,
		ProcessingTime:     resp.ProcessingTime,
		TokensUsed:         resp.TokensUsed,
		CostEstimate:       resp.CostEstimate,
	})
	if err != nil {
		a.logger.Warn("failed to save interaction %s: %v", resp.RequestID, err)
	}
}
