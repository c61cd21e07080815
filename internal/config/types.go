package config

// ProviderType identifies an LLM provider implementation.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderXAI       ProviderType = "xai"

	// ProviderGoogle and ProviderOllama are valid only as an
	// embedding.provider; neither backs an LLMProvider implementation.
	ProviderGoogle ProviderType = "google"
	ProviderOllama ProviderType = "ollama"
)

// LLMConfig selects the default LLM provider and model, overridable per skill.
type LLMConfig struct {
	Provider    ProviderType `yaml:"provider" koanf:"provider"`
	Model       string       `yaml:"model" koanf:"model"`
	Temperature float64      `yaml:"temperature" koanf:"temperature"`
	MaxTokens   int          `yaml:"max_tokens" koanf:"max_tokens"`
}

// EmbeddingConfig selects the embedding provider used by the vector store.
type EmbeddingConfig struct {
	Provider ProviderType `yaml:"provider" koanf:"provider"`
	Model    string       `yaml:"model" koanf:"model"`
}

// AgentConfig bounds orchestration depth. MaxIterations is defaulted and
// validated at load but not read by the agent loop, whose per-run cap comes
// from each skill's max_iterations.
type AgentConfig struct {
	MaxIterations         int `yaml:"max_iterations" koanf:"max_iterations"`
	MaxOrchestrationDepth int `yaml:"max_orchestration_depth" koanf:"max_orchestration_depth"`
}

// StorageConfig locates the daemon's on-disk state.
type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path" koanf:"sqlite_path"`
	VectorDir  string `yaml:"vector_dir" koanf:"vector_dir"`
	LogDir     string `yaml:"log_dir" koanf:"log_dir"`
}

// WebhookConfig holds webhook delivery settings. They are defaulted and
// validated at load but not read by the dispatcher, which always makes up
// to 3 attempts with a 30-second per-request timeout.
type WebhookConfig struct {
	Timeout    int `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	MaxRetries int `yaml:"max_retries" koanf:"max_retries"`
}

// HTTPConfig configures the façade's listener and auth.
type HTTPConfig struct {
	Port   int    `yaml:"port" koanf:"port"`
	APIKey string `yaml:"api_key" koanf:"api_key"`
}

// Config is the top-level daemon configuration, corresponding to agentgw.yml.
type Config struct {
	LLM        LLMConfig       `yaml:"llm" koanf:"llm"`
	Embedding  EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Agent      AgentConfig     `yaml:"agent" koanf:"agent"`
	Storage    StorageConfig   `yaml:"storage" koanf:"storage"`
	Webhook    WebhookConfig   `yaml:"webhook" koanf:"webhook"`
	HTTP       HTTPConfig      `yaml:"http" koanf:"http"`
	SkillsDir  string          `yaml:"skills_dir" koanf:"skills_dir"`
	JobsDir    string          `yaml:"jobs_dir" koanf:"jobs_dir"`
	WebhooksDir string         `yaml:"webhooks_dir" koanf:"webhooks_dir"`
}
