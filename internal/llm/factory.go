package llm

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/agentgw/internal/config"
)

// NewProvider creates an LLM provider for the given provider type and
// model, reading the API key from the provider's conventional environment
// variable.
func NewProvider(providerType config.ProviderType, model string) (Provider, error) {
	envVar := config.APIKeyEnvVar(providerType)
	apiKey := os.Getenv(envVar)
	if apiKey == "" && envVar != "" {
		return nil, fmt.Errorf("%s environment variable is not set", envVar)
	}

	switch providerType {
	case config.ProviderAnthropic:
		return NewAnthropicProvider(apiKey, model), nil
	case config.ProviderOpenAI:
		return NewOpenAIProvider(apiKey, model), nil
	case config.ProviderXAI:
		return NewXAIProvider(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
