// Package config provides configuration loading, validation, and management
// for the math tutoring pipeline. It handles the YAML config file, environment
// variable overrides, the static model registry, and cost calculation.
package config

import (
	"fmt"
	"strings"
	"sync"

	"mathtutor/pkg/logx"
)

// API provider identifiers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Model name constants used as defaults.
const (
	// ModelRouterDefault is the cheap classification model for routing decisions.
	ModelRouterDefault = "gpt-3.5-turbo"
	// ModelGeneratorDefault is the higher-quality model for solution generation.
	ModelGeneratorDefault = "gpt-4o-mini"
	// ModelEmbeddingDefault is the local embedding model served by Ollama.
	ModelEmbeddingDefault = "all-minilm"
)

// Pipeline limits. These bound retrieval volume and generation cost.
const (
	// DefaultMaxContextLength caps the assembled context in characters.
	DefaultMaxContextLength = 2000
	// DefaultKnowledgeLimit is the number of knowledge-base hits fetched per question.
	DefaultKnowledgeLimit = 3
	// DefaultSolutionPreviewChars caps the rendered solution preview per hit.
	DefaultSolutionPreviewChars = 600
	// DefaultWebResults is the number of web results fetched per question.
	DefaultWebResults = 3
)

// Global config instance with mutex protection.
//
//nolint:gochecknoglobals // Intentional singleton pattern for config management
var (
	config *Config
	logger *logx.Logger
	mu     sync.RWMutex
)

// getLogger returns the config logger, initializing it if needed.
func getLogger() *logx.Logger {
	if logger == nil {
		logger = logx.NewLogger("config")
	}
	return logger
}

// LogInfo logs an info message using the config logger.
func LogInfo(format string, args ...interface{}) {
	getLogger().Info(format, args...)
}

// ModelInfo contains static information about a known LLM model.
// This data is hardcoded in the application, not user-configurable.
type ModelInfo struct {
	Provider         string  // API provider (anthropic, openai, google, ollama)
	InputCPM         float64 // Cost per million input tokens (USD)
	OutputCPM        float64 // Cost per million output tokens (USD)
	MaxContextTokens int     // Maximum context window size in tokens
	MaxOutputTokens  int     // Maximum output tokens per request
}

// KnownModels registry contains pricing and provider information for common models.
// This is optional - unknown models will be inferred via ProviderPatterns.
//
//nolint:gochecknoglobals // Intentional global for static model registry
var KnownModels = map[string]ModelInfo{
	// OpenAI models
	"gpt-3.5-turbo": {
		Provider:         ProviderOpenAI,
		InputCPM:         0.50,
		OutputCPM:        1.50,
		MaxContextTokens: 16385,
		MaxOutputTokens:  4096,
	},
	"gpt-4o-mini": {
		Provider:         ProviderOpenAI,
		InputCPM:         0.15,
		OutputCPM:        0.60,
		MaxContextTokens: 128000,
		MaxOutputTokens:  16384,
	},
	"gpt-4o": {
		Provider:         ProviderOpenAI,
		InputCPM:         2.50,
		OutputCPM:        10.0,
		MaxContextTokens: 128000,
		MaxOutputTokens:  16384,
	},
	// Claude models (Anthropic)
	"claude-3-5-haiku-latest": {
		Provider:         ProviderAnthropic,
		InputCPM:         0.80,
		OutputCPM:        4.0,
		MaxContextTokens: 200000,
		MaxOutputTokens:  8192,
	},
	"claude-sonnet-4-20250514": {
		Provider:         ProviderAnthropic,
		InputCPM:         3.0,
		OutputCPM:        15.0,
		MaxContextTokens: 200000,
		MaxOutputTokens:  8192,
	},
	// Gemini models (Google)
	"gemini-2.0-flash": {
		Provider:         ProviderGoogle,
		InputCPM:         0.10,
		OutputCPM:        0.40,
		MaxContextTokens: 1000000,
		MaxOutputTokens:  8192,
	},
}

// ProviderPattern maps a model name prefix to an API provider.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

// ProviderPatterns are inference rules for models missing from KnownModels.
//
//nolint:gochecknoglobals // Intentional global for inference rules
var ProviderPatterns = []ProviderPattern{
	{"claude", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	// Ollama models - common open-source model prefixes
	{"phi", ProviderOllama},
	{"llama", ProviderOllama},
	{"qwen", ProviderOllama},
	{"mistral", ProviderOllama},
	{"deepseek", ProviderOllama},
	{"all-minilm", ProviderOllama},
	{"nomic-embed", ProviderOllama},
	{"ollama:", ProviderOllama}, // Explicit prefix like "ollama:phi4"
}

// GetModelProvider returns the API provider for a given model.
// First checks KnownModels, then tries pattern matching.
// Returns error if model cannot be mapped to a provider.
func GetModelProvider(modelName string) (string, error) {
	if info, exists := KnownModels[modelName]; exists {
		return info.Provider, nil
	}

	for i := range ProviderPatterns {
		if strings.HasPrefix(modelName, ProviderPatterns[i].Prefix) {
			return ProviderPatterns[i].Provider, nil
		}
	}

	return "", fmt.Errorf("unknown model '%s': no known provider mapping or pattern match - cannot determine API provider", modelName)
}

// GetModelInfo returns the ModelInfo for a given model name.
// Returns the info and true if found in KnownModels, or a default info with
// inferred provider and false if not found.
func GetModelInfo(modelName string) (ModelInfo, bool) {
	if info, exists := KnownModels[modelName]; exists {
		return info, true
	}

	provider := ""
	for i := range ProviderPatterns {
		if strings.HasPrefix(modelName, ProviderPatterns[i].Prefix) {
			provider = ProviderPatterns[i].Provider
			break
		}
	}

	// Conservative defaults for unknown models: no cost tracking.
	return ModelInfo{
		Provider:         provider,
		InputCPM:         0.0,
		OutputCPM:        0.0,
		MaxContextTokens: 32000,
		MaxOutputTokens:  4096,
	}, false
}

// CalculateCost calculates the cost in USD for a given model and token usage.
// Returns 0 cost for unknown models (allows using new models without pricing data).
func CalculateCost(modelName string, promptTokens, completionTokens int) float64 {
	info, _ := GetModelInfo(modelName)
	inputCost := (float64(promptTokens) / 1_000_000.0) * info.InputCPM
	outputCost := (float64(completionTokens) / 1_000_000.0) * info.OutputCPM
	return inputCost + outputCost
}

// ModelsConfig selects the models used by each pipeline stage.
type ModelsConfig struct {
	Router    string `yaml:"router"`    // Cheap classification model
	Generator string `yaml:"generator"` // Higher-quality generation model
	Embedding string `yaml:"embedding"` // Local embedding model (Ollama)
}

// KnowledgeConfig configures the external knowledge-base collaborator.
type KnowledgeConfig struct {
	QdrantURL  string `yaml:"qdrant_url"`  // Qdrant server base URL
	Collection string `yaml:"collection"`  // Qdrant collection name
	OllamaURL  string `yaml:"ollama_url"`  // Ollama server for embeddings
	Limit      int    `yaml:"limit"`       // Hits per search
	VectorSize int    `yaml:"vector_size"` // Embedding dimensionality
}

// WebSearchConfig configures the web retrieval collaborator.
type WebSearchConfig struct {
	GoogleAPIKey string `yaml:"google_api_key"`
	GoogleCX     string `yaml:"google_cx"`
	MaxResults   int    `yaml:"max_results"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	PrometheusURL string `yaml:"prometheus_url"` // For the usage query service
}

// PipelineConfig bounds the request pipeline.
type PipelineConfig struct {
	MaxContextLength  int `yaml:"max_context_length"`  // Max assembled context (chars)
	MaxQuestionLength int `yaml:"max_question_length"` // Input guardrail cap
}

// Config is the root configuration for the math tutoring pipeline.
type Config struct {
	Models    ModelsConfig    `yaml:"models"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	WebSearch WebSearchConfig `yaml:"web_search"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	DBPath    string          `yaml:"db_path"` // SQLite request audit log
}

// Get returns the loaded configuration. Panics if LoadConfig has not run.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()

	if config == nil {
		panic("config.LoadConfig must be called before config.Get")
	}
	return config
}

// IsLoaded reports whether a configuration has been loaded.
func IsLoaded() bool {
	mu.RLock()
	defer mu.RUnlock()
	return config != nil
}

// set installs a loaded configuration (test hook and loader internal).
func set(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	config = cfg
}

// SetForTest installs a configuration directly. Tests only.
func SetForTest(cfg *Config) {
	set(cfg)
}
