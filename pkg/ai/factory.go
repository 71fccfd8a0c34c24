package ai

import (
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/critique/pkg/domain/ai"
)

// Provider names accepted by NewProvider.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// SupportedProviders lists the accepted provider names.
func SupportedProviders() []string {
	return []string{ProviderOllama, ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderMock}
}

// NewProvider builds a backend by name. API keys and hosts come from the
// environment.
func NewProvider(providerName string, modelName string) (ai.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(providerName)) {
	case ProviderOllama, "":
		return NewOllamaProviderWithClient(modelName, os.Getenv("OLLAMA_HOST"), nil), nil
	case ProviderMock:
		return &MockProvider{Model: modelName}, nil
	case ProviderOpenAI:
		return NewOpenAIProviderWithBaseURL(modelName, os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_BASE_URL")), nil
	case ProviderAnthropic:
		return NewAnthropicProviderWithBaseURL(modelName, os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("ANTHROPIC_BASE_URL")), nil
	case ProviderGemini:
		return NewGeminiProvider(modelName, os.Getenv("GEMINI_API_KEY")), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", providerName)
	}
}

// GetDefaultProvider applies CRITIQUE_AI_PROVIDER / CRITIQUE_AI_MODEL on top
// of the configured names.
func GetDefaultProvider(providerName, modelName string) (ai.Provider, error) {
	if envProvider := os.Getenv("CRITIQUE_AI_PROVIDER"); envProvider != "" {
		providerName = envProvider
	}
	if envModel := os.Getenv("CRITIQUE_AI_MODEL"); envModel != "" {
		modelName = envModel
	}
	return NewProvider(providerName, modelName)
}
