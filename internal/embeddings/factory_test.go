package embeddings

import (
	"testing"

	"github.com/ziadkadry99/agentgw/internal/config"
)

func TestNewEmbedderReturnsErrorForMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	for _, p := range []config.ProviderType{config.ProviderOpenAI, config.ProviderGoogle} {
		if _, err := NewEmbedder(p, "", ""); err == nil {
			t.Errorf("expected error for provider %q with missing API key", p)
		}
	}
}

func TestNewEmbedderCreatesOllamaWithoutAPIKey(t *testing.T) {
	embedder, err := NewEmbedder(config.ProviderOllama, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embedder.Name() != "ollama/nomic-embed-text" {
		t.Errorf("expected default ollama model, got %s", embedder.Name())
	}
}

func TestNewEmbedderReturnsErrorForUnknownProvider(t *testing.T) {
	if _, err := NewEmbedder("unknown", "", ""); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewEmbedderCreatesOpenAIEmbedder(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	embedder, err := NewEmbedder(config.ProviderOpenAI, "text-embedding-3-small", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embedder.Dimensions() != 1536 {
		t.Errorf("expected 1536 dimensions, got %d", embedder.Dimensions())
	}
}
