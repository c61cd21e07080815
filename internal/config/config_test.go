package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != ProviderAnthropic {
		t.Errorf("expected default provider anthropic, got %s", cfg.LLM.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AGENTGW_LLM__MODEL", "gpt-4o")
	t.Setenv("AGENTGW_HTTP__PORT", "9090")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected env override of llm.model, got %s", cfg.LLM.Model)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected env override of http.port, got %d", cfg.HTTP.Port)
	}
}

func TestValidateRejectsBadProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Provider = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown provider")
	}
}

func TestValidateRejectsBadEmbeddingProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.Provider = "anthropic"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error: anthropic does not offer an embedding API")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	path := filepath.Join(t.TempDir(), "agentgw.yml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LLM.Model != cfg.LLM.Model {
		t.Errorf("round trip mismatch: got %s want %s", loaded.LLM.Model, cfg.LLM.Model)
	}
}
