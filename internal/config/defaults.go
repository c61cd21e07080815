package config

// DefaultConfig returns a Config with sensible defaults, mirroring the
// teacher's DefaultConfig shape.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderAnthropic,
			Model:       "claude-sonnet-4-5-20250929",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Embedding: EmbeddingConfig{
			Provider: ProviderOpenAI,
			Model:    "text-embedding-3-small",
		},
		Agent: AgentConfig{
			MaxIterations:         10,
			MaxOrchestrationDepth: 3,
		},
		Storage: StorageConfig{
			SQLitePath: "data/agentgw.db",
			VectorDir:  "data/vectordb",
			LogDir:     "data/logs",
		},
		Webhook: WebhookConfig{
			Timeout:    30,
			MaxRetries: 3,
		},
		HTTP: HTTPConfig{
			Port: 8090,
		},
		SkillsDir:   "skills",
		JobsDir:     "config/jobs.yaml",
		WebhooksDir: "config/webhooks.yaml",
	}
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderXAI:
		return "XAI_API_KEY"
	default:
		return ""
	}
}

// EmbeddingAPIKeyEnvVar returns the conventional environment variable name
// for the API key of the given embedding provider. Ollama runs locally and
// needs no key.
func EmbeddingAPIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}
