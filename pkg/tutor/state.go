// Package tutor implements the math question-answering pipeline: input
// guardrails, source routing, retrieval, context combination, solution
// generation with a confidence heuristic, and output guardrails. Stages run
// as nodes on a workflow graph over a shared RequestState.
package tutor

import (
	"time"

	"mathtutor/pkg/retrieval"
)

// Route identifies which retrieval source(s) a question should use.
type Route string

const (
	// RouteKnowledgeBase answers from stored worked problems.
	RouteKnowledgeBase Route = "knowledge_base"
	// RouteWebSearch answers from current web content.
	RouteWebSearch Route = "web_search"
	// RouteBoth consults the knowledge base first, then the web.
	RouteBoth Route = "both"
)

// validRoutes is the closed set a router response must match exactly.
var validRoutes = map[Route]bool{
	RouteKnowledgeBase: true,
	RouteWebSearch:     true,
	RouteBoth:          true,
}

// RequestState is the shared state one question flows through. Nodes set
// only the fields they produce; everything else carries through.
type RequestState struct {
	RequestID string
	Question  string

	// Input guardrail outcome.
	GuardrailPassed bool
	ErrorMessage    string

	// Routing.
	Route       Route
	RoutingTime time.Duration

	// Retrieval. The *Searched flags record that a source was attempted,
	// which the zero Result value cannot express.
	KnowledgeResults retrieval.Result
	KBSearched       bool
	WebResults       retrieval.Result
	WebSearched      bool

	// Combined context handed to the generator.
	Context string

	// Generation.
	Solution           string
	Confidence         float64
	NeedsHumanFeedback bool
	GenerationTime     time.Duration
	TokensUsed         int
	CostEstimate       float64
}

// Response is the externally visible outcome of one question.
type Response struct {
	RequestID          string
	Question           string
	Answered           bool
	Solution           string
	RejectionReason    string
	Route              Route
	Confidence         float64
	NeedsHumanFeedback bool
	ProcessingTime     time.Duration
	TokensUsed         int
	CostEstimate       float64
}
