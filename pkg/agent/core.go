// Package agent provides LLM client construction with middleware chains.
// Provider implementations live under internal/llmimpl and are reached only
// through the factory here.
package agent

import (
	"fmt"

	"mathtutor/pkg/agent/internal/llmimpl/anthropic"
	"mathtutor/pkg/agent/internal/llmimpl/google"
	"mathtutor/pkg/agent/internal/llmimpl/ollama"
	"mathtutor/pkg/agent/internal/llmimpl/openaiofficial"
	"mathtutor/pkg/agent/llm"
	"mathtutor/pkg/agent/middleware/metrics"
	"mathtutor/pkg/config"
	"mathtutor/pkg/logx"
)

// Re-export commonly used LLM types so callers don't need to import the llm
// package directly.
type (
	// LLMClient is the provider-independent completion interface.
	LLMClient = llm.LLMClient
	// CompletionRequest is a request to generate a completion.
	CompletionRequest = llm.CompletionRequest
	// CompletionResponse is a response from a completion request.
	CompletionResponse = llm.CompletionResponse
	// CompletionMessage is a single message in a completion request.
	CompletionMessage = llm.CompletionMessage
	// Usage reports token consumption for a completion.
	Usage = llm.Usage
)

// LLMClientFactory creates LLM clients with configured middleware chains.
type LLMClientFactory struct {
	config   *config.Config
	recorder metrics.Recorder
	sessions metrics.SessionProvider
	logger   *logx.Logger
}

// NewLLMClientFactory creates a factory. The session provider may be nil;
// metric series are then recorded without a session label.
func NewLLMClientFactory(cfg *config.Config, sessions metrics.SessionProvider) *LLMClientFactory {
	var recorder metrics.Recorder = metrics.Nop()
	if cfg.Metrics.Enabled {
		recorder = metrics.NewPrometheusRecorder()
	}

	return &LLMClientFactory{
		config:   cfg,
		recorder: recorder,
		sessions: sessions,
		logger:   logx.NewLogger("llm"),
	}
}

// CreateClient creates an LLM client for the given model, wrapped with the
// metrics middleware. The stage label identifies the pipeline stage the
// client serves (e.g. "router", "generator").
func (f *LLMClientFactory) CreateClient(modelName, stage string) (LLMClient, error) {
	provider, err := config.GetModelProvider(modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to determine provider for model %s: %w", modelName, err)
	}

	var rawClient LLMClient
	switch provider {
	case config.ProviderOllama:
		// Local runtime, no API key.
		rawClient = ollama.NewOllamaClientWithModel(f.config.Knowledge.OllamaURL, modelName)
	default:
		apiKey, keyErr := config.GetAPIKeyForModel(modelName)
		if keyErr != nil {
			return nil, fmt.Errorf("failed to get API key for model %s: %w", modelName, keyErr)
		}

		switch provider {
		case config.ProviderAnthropic:
			rawClient = anthropic.NewClaudeClientWithModel(apiKey, modelName)
		case config.ProviderOpenAI:
			rawClient = openaiofficial.NewOfficialClientWithModel(apiKey, modelName)
		case config.ProviderGoogle:
			rawClient = google.NewGeminiClientWithModel(apiKey, modelName)
		default:
			return nil, fmt.Errorf("unsupported provider: %s", provider)
		}
	}

	client := llm.Chain(rawClient,
		metrics.Middleware(f.recorder, modelName, stage, f.sessions, nil, f.logger),
	)

	return client, nil
}

// CreateEmbedder creates an Ollama-backed embedding client for the
// configured embedding model.
func (f *LLMClientFactory) CreateEmbedder() llm.Embedder {
	return ollama.NewOllamaClientWithModel(f.config.Knowledge.OllamaURL, f.config.Models.Embedding)
}
