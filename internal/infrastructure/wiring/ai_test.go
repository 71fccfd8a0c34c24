package wiring

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/critique/internal/infrastructure/config"
	infraai "github.com/felixgeelhaar/critique/pkg/ai"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CRITIQUE_AI_PROVIDER", "")
	t.Setenv("CRITIQUE_AI_MODEL", "")
}

func TestLoadAIProviderDefaults(t *testing.T) {
	clearProviderEnv(t)
	tempDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tempDir, ".critique"), 0700); err != nil {
		t.Fatalf("mkdir .critique: %v", err)
	}

	provider, err := LoadAIProvider(tempDir)
	if err != nil {
		t.Fatalf("load provider: %v", err)
	}
	if provider.ID() != "ollama:llama3" {
		t.Fatalf("unexpected provider id: %s", provider.ID())
	}
}

func TestLoadAIProviderFromConfig(t *testing.T) {
	clearProviderEnv(t)
	tempDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tempDir, ".critique"), 0700); err != nil {
		t.Fatalf("mkdir .critique: %v", err)
	}

	cfg := config.Default()
	cfg.Provider = "mock"
	cfg.Model = "test"
	cfg.MaxRetries = 5
	cfg.RetryDelayMs = 20
	cfg.TimeoutSec = 7
	if err := config.Save(tempDir, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	provider, err := LoadAIProvider(tempDir)
	if err != nil {
		t.Fatalf("load provider: %v", err)
	}
	if provider.ID() != "mock:test" {
		t.Fatalf("unexpected provider id: %s", provider.ID())
	}
	resilient, ok := provider.(*infraai.ResilientProvider)
	if !ok {
		t.Fatalf("expected resilient wrapper, got %T", provider)
	}
	rc := resilient.Config()
	if rc.MaxRetries != 5 || rc.RetryDelay != 20*time.Millisecond || rc.Timeout != 7*time.Second {
		t.Fatalf("unexpected resilience config: %+v", rc)
	}
}

func TestLoadAIProviderUnknown(t *testing.T) {
	clearProviderEnv(t)
	cfg := config.Default()
	cfg.Provider = "carrier-pigeon"
	if _, err := ProviderFromConfig(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
