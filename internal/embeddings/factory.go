package embeddings

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/agentgw/internal/config"
)

// NewEmbedder creates an Embedder for the given provider type and model,
// reading the API key from the provider's conventional environment
// variable. ollamaBaseURL is only consulted for config.ProviderOllama and
// may be empty to use the local default.
func NewEmbedder(providerType config.ProviderType, model, ollamaBaseURL string) (Embedder, error) {
	switch providerType {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.EmbeddingAPIKeyEnvVar(providerType))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		m := OpenAIModel(model)
		if m == "" {
			m = ModelTextEmbedding3Small
		}
		return NewOpenAIEmbedder(apiKey, m), nil
	case config.ProviderGoogle:
		apiKey := os.Getenv(config.EmbeddingAPIKeyEnvVar(providerType))
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is not set")
		}
		m := GoogleModel(model)
		if m == "" {
			m = ModelGeminiEmbedding001
		}
		return NewGoogleEmbedder(apiKey, m), nil
	case config.ProviderOllama:
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllamaEmbedder(model, 768, ollamaBaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
