package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by the loader.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGoogleKey    = "GEMINI_API_KEY"
	EnvQdrantURL    = "QDRANT_URL"
	EnvOllamaURL    = "OLLAMA_HOST"
	EnvGoogleCSEKey = "GOOGLE_SEARCH_API_KEY"
	EnvGoogleCSECX  = "GOOGLE_SEARCH_CX"
)

// defaultConfig returns the built-in defaults applied before file and env overrides.
func defaultConfig() *Config {
	return &Config{
		Models: ModelsConfig{
			Router:    ModelRouterDefault,
			Generator: ModelGeneratorDefault,
			Embedding: ModelEmbeddingDefault,
		},
		Knowledge: KnowledgeConfig{
			QdrantURL:  "http://localhost:6333",
			Collection: "math_knowledge_hybrid",
			OllamaURL:  "http://localhost:11434",
			Limit:      DefaultKnowledgeLimit,
			VectorSize: 384,
		},
		WebSearch: WebSearchConfig{
			MaxResults: DefaultWebResults,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		Pipeline: PipelineConfig{
			MaxContextLength:  DefaultMaxContextLength,
			MaxQuestionLength: 1000,
		},
		DBPath: "mathtutor.db",
	}
}

// LoadConfig loads configuration with the precedence:
// built-in defaults < YAML config file < environment variables.
// Passing an empty path skips the file layer.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		getLogger().Info("Loaded config file: %s", path)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	set(cfg)
	return cfg, nil
}

// applyEnvOverrides layers environment variables over the file config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvQdrantURL); v != "" {
		cfg.Knowledge.QdrantURL = v
	}
	if v := os.Getenv(EnvOllamaURL); v != "" {
		cfg.Knowledge.OllamaURL = v
	}
	if v := os.Getenv(EnvGoogleCSEKey); v != "" {
		cfg.WebSearch.GoogleAPIKey = v
	}
	if v := os.Getenv(EnvGoogleCSECX); v != "" {
		cfg.WebSearch.GoogleCX = v
	}
}

// Validate checks structural invariants of the configuration.
func (c *Config) Validate() error {
	if c.Models.Router == "" {
		return fmt.Errorf("models.router is required")
	}
	if c.Models.Generator == "" {
		return fmt.Errorf("models.generator is required")
	}
	if _, err := GetModelProvider(c.Models.Router); err != nil {
		return fmt.Errorf("models.router: %w", err)
	}
	if _, err := GetModelProvider(c.Models.Generator); err != nil {
		return fmt.Errorf("models.generator: %w", err)
	}
	if c.Pipeline.MaxContextLength <= 0 {
		return fmt.Errorf("pipeline.max_context_length must be positive, got %d", c.Pipeline.MaxContextLength)
	}
	if c.Knowledge.Limit <= 0 {
		return fmt.Errorf("knowledge.limit must be positive, got %d", c.Knowledge.Limit)
	}
	return nil
}

// APIKeyEnvForProvider maps a provider to the environment variable holding its key.
func APIKeyEnvForProvider(provider string) (string, bool) {
	switch provider {
	case ProviderOpenAI:
		return EnvOpenAIKey, true
	case ProviderAnthropic:
		return EnvAnthropicKey, true
	case ProviderGoogle:
		return EnvGoogleKey, true
	default:
		// Ollama is local and keyless.
		return "", false
	}
}

// GetAPIKeyForModel resolves the API key for a model via the secrets store
// and environment. Returns an empty key with nil error for keyless providers.
func GetAPIKeyForModel(modelName string) (string, error) {
	provider, err := GetModelProvider(modelName)
	if err != nil {
		return "", err
	}

	envName, needsKey := APIKeyEnvForProvider(provider)
	if !needsKey {
		return "", nil
	}

	key, err := GetSecret(envName)
	if err != nil {
		return "", fmt.Errorf("no API key for model %s: %w", modelName, err)
	}

	if err := validateAPIKeyShape(provider, key); err != nil {
		return "", err
	}
	return key, nil
}

// validateAPIKeyShape rejects obviously malformed keys before any paid call.
func validateAPIKeyShape(provider, key string) error {
	switch provider {
	case ProviderOpenAI:
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (expected sk- prefix)")
		}
	case ProviderAnthropic:
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (expected sk-ant- prefix)")
		}
	}
	return nil
}
