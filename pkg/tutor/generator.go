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

const (
	generatorTemperature = 0.1
	generatorMaxTokens   = 2048

	// feedbackThreshold: solutions below this confidence are flagged for
	// human review.
	feedbackThreshold = 0.7
)

const solutionPromptTemplate = `You are an expert mathematics tutor. Provide a clear, step-by-step solution for this question.

Question: %s

Context (use this to inform your solution):
%s

Requirements:
1. Provide clear, numbered steps
2. Explain the reasoning for each step
3. Show all mathematical work
4. End with a clearly marked final answer
5. Make it educational and suitable for students
6. If the context doesn't fully address the question, use your mathematical knowledge

Format your response as:
**Step-by-Step Solution:**
Step 1: [explanation with work]
Step 2: [explanation with work]
...
**Final Answer:** [clear final result]`

// Generator produces step-by-step solutions using the premium model.
type Generator struct {
	client llm.LLMClient
	model  string
	ledger *usage.Ledger
	logger *logx.Logger
}

// NewGenerator creates a generator over the given client. The ledger may be nil.
func NewGenerator(client llm.LLMClient, model string, ledger *usage.Ledger) *Generator {
	return &Generator{
		client: client,
		model:  model,
		ledger: ledger,
		logger: logx.NewLogger("generator"),
	}
}

// Generate produces a solution and fills the generation fields of the state.
// A model failure is absorbed into an apologetic fallback solution with zero
// confidence; it never aborts the pipeline.
func (g *Generator) Generate(ctx context.Context, s *RequestState) {
	prompt := fmt.Sprintf(solutionPromptTemplate, s.Question, s.Context)

	start := time.Now()
	resp, err := g.client.Complete(ctx, llm.SingleUserRequest(prompt, generatorTemperature, generatorMaxTokens))
	if err != nil {
		g.logger.Warn("solution generation failed: %v", err)
		s.Solution = fmt.Sprintf("I apologize, but I encountered an error generating the solution: %v", err)
		s.Confidence = 0.0
		s.NeedsHumanFeedback = true
		s.GenerationTime = 0
		s.TokensUsed = 0
		s.CostEstimate = g.totalCost()
		return
	}
	elapsed := time.Since(start)

	promptTokens := resp.Usage.PromptTokens
	completionTokens := resp.Usage.CompletionTokens
	if promptTokens == 0 && completionTokens == 0 {
		promptTokens = len(strings.Fields(prompt))
		completionTokens = len(strings.Fields(resp.Content))
	}

	if g.ledger != nil {
		g.ledger.Add(usage.Record{
			Model:            g.model,
			Stage:            "generator",
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			Cost:             config.CalculateCost(g.model, promptTokens, completionTokens),
			Duration:         elapsed,
		})
	}

	confidence := calculateConfidence(s.Context, resp.Content)

	s.Solution = resp.Content
	s.Confidence = confidence
	s.NeedsHumanFeedback = needsHumanFeedback(confidence)
	s.GenerationTime = elapsed
	s.TokensUsed = promptTokens + completionTokens
	s.CostEstimate = g.totalCost()
}

func (g *Generator) totalCost() float64 {
	if g.ledger == nil {
		return 0
	}
	return g.ledger.Totals().Cost
}

// needsHumanFeedback keeps the review flag consistent with confidence.
func needsHumanFeedback(confidence float64) bool {
	return confidence < feedbackThreshold
}

// solutionMathIndicators signal mathematical notation in a solution. This
// set differs from the input allowlist on purpose: it looks for worked math,
// not question phrasing.
var solutionMathIndicators = []string{"=", "+", "-", "×", "÷", "∫", "∑", "√", "²", "³"}

var finalAnswerPhrases = []string{"Final Answer", "Answer:", "Solution:"}

// calculateConfidence scores a solution deterministically from observable
// structure. Base 0.5; +0.2 for substantial non-fallback context; +0.2 for
// at least two "Step" markers; +0.1 for a marked final answer; +0.1 for
// mathematical notation; capped at 1.0.
func calculateConfidence(contextText, solution string) float64 {
	confidence := 0.5

	if contextText != "" && len(contextText) > 100 && !strings.Contains(contextText, "Limited context") {
		confidence += 0.2
	}

	if strings.Count(solution, "Step") >= 2 {
		confidence += 0.2
	}

	for _, phrase := range finalAnswerPhrases {
		if strings.Contains(solution, phrase) {
			confidence += 0.1
			break
		}
	}

	for _, indicator := range solutionMathIndicators {
		if strings.Contains(solution, indicator) {
			confidence += 0.1
			break
		}
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}
