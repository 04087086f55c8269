// Metrics middleware for LLM clients.
package metrics

import (
	"context"
	"time"

	"mathtutor/pkg/agent/llm"
	"mathtutor/pkg/agent/llmerrors"
	"mathtutor/pkg/config"
	"mathtutor/pkg/logx"
	"mathtutor/pkg/utils"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// SessionProvider supplies the current session ID for metric labels.
type SessionProvider interface {
	SessionID() string
}

// UsageExtractor extracts token usage from a request and response pair.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor prefers provider-reported usage and falls back to
// local token counting when the provider reports nothing.
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		return resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}

	var promptText string
	for i := range req.Messages {
		promptText += req.Messages[i].Content + "\n"
	}
	return utils.CountTokensSimple(promptText), utils.CountTokensSimple(resp.Content)
}

// Middleware returns a middleware that records metrics for LLM operations.
// It tracks request latency, token usage, cost, success/failure rates, and
// error types, labeled by model and pipeline stage.
func Middleware(recorder Recorder, model, stage string, sessions SessionProvider, usageExtractor UsageExtractor, logger *logx.Logger) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.ClientFunc(func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
			start := time.Now()

			resp, err := next.Complete(ctx, req)
			duration := time.Since(start)

			var promptTokens, completionTokens int
			if err == nil {
				promptTokens, completionTokens = usageExtractor(req, resp)
			}

			errorType := ""
			if err != nil {
				errorType = llmerrors.TypeOf(err).String()
			}

			sessionID := ""
			if sessions != nil {
				sessionID = sessions.SessionID()
			}

			cost := config.CalculateCost(model, promptTokens, completionTokens)

			recorder.ObserveRequest(
				model,
				sessionID,
				stage,
				promptTokens,
				completionTokens,
				cost,
				err == nil,
				errorType,
				duration,
			)

			if logger != nil {
				status := statusSuccess
				if err != nil {
					status = statusError
				}
				totalTokens := promptTokens + completionTokens
				logger.Debug("LLM request: model=%s stage=%s tokens=%d+%d=%d status=%s duration=%dms",
					model, stage, promptTokens, completionTokens, totalTokens, status, duration.Milliseconds())
			}

			return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
		})
	}
}
