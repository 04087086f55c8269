package tutor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mathtutor/pkg/agent/llm"
	"mathtutor/pkg/config"
	"mathtutor/pkg/logx"
	"mathtutor/pkg/usage"
)

const routerTemperature = 0.0

const routingPromptTemplate = `Analyze this mathematics question and decide the best information source.

Question: "%s"

Choose ONE option:
- "knowledge_base": Standard math problems, textbook concepts, homework-style questions, established mathematical procedures
- "web_search": Recent developments, current research, latest mathematical discoveries, very specific modern applications
- "both": Complex questions that might benefit from both historical knowledge and current information

Guidelines:
- Most student math questions should use "knowledge_base"
- Only use "web_search" for explicitly current/recent topics
- Use "both" sparingly for complex research-level questions

Respond with exactly one word: knowledge_base, web_search, or both`

// Router classifies a question into a retrieval route using a cheap model.
type Router struct {
	client llm.LLMClient
	model  string
	ledger *usage.Ledger
	logger *logx.Logger
}

// NewRouter creates a router over the given client. The ledger may be nil.
func NewRouter(client llm.LLMClient, model string, ledger *usage.Ledger) *Router {
	return &Router{
		client: client,
		model:  model,
		ledger: ledger,
		logger: logx.NewLogger("router"),
	}
}

// Route classifies the question. Any model failure or unexpected response
// falls back to the knowledge base; a failed call reports zero elapsed time.
func (r *Router) Route(ctx context.Context, question string) (Route, time.Duration) {
	prompt := fmt.Sprintf(routingPromptTemplate, question)

	start := time.Now()
	resp, err := r.client.Complete(ctx, llm.SingleUserRequest(prompt, routerTemperature, 16))
	if err != nil {
		r.logger.Warn("routing failed, falling back to knowledge base: %v", err)
		return RouteKnowledgeBase, 0
	}
	elapsed := time.Since(start)

	r.account(prompt, resp, elapsed)

	route := Route(strings.ToLower(strings.TrimSpace(resp.Content)))
	if !validRoutes[route] {
		r.logger.Debug("unexpected route %q, falling back to knowledge base", resp.Content)
		route = RouteKnowledgeBase
	}

	return route, elapsed
}

func (r *Router) account(prompt string, resp llm.CompletionResponse, elapsed time.Duration) {
	if r.ledger == nil {
		return
	}

	promptTokens := resp.Usage.PromptTokens
	completionTokens := resp.Usage.CompletionTokens
	if promptTokens == 0 && completionTokens == 0 {
		// Provider reported nothing; estimate from word count.
		promptTokens = len(strings.Fields(prompt)) + 10
	}

	r.ledger.Add(usage.Record{
		Model:            r.model,
		Stage:            "router",
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Cost:             config.CalculateCost(r.model, promptTokens, completionTokens),
		Duration:         elapsed,
	})
}
