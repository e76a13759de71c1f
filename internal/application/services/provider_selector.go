package services

import (
	"fmt"
	"strings"

	"github.com/rssnews/orchestrator/internal/domain/models"
	domainServices "github.com/rssnews/orchestrator/internal/domain/services"
)

// ProviderSelector selects the appropriate LLM provider based on the model
// name's prefix family.
type ProviderSelector struct {
	providers map[string]domainServices.LLMProvider
}

// NewProviderSelector creates a new ProviderSelector instance.
func NewProviderSelector(providers map[string]domainServices.LLMProvider) *ProviderSelector {
	return &ProviderSelector{
		providers: providers,
	}
}

// SelectProvider returns the provider for the given model, falling back to
// the registered "mock" provider when the registry has nothing for the
// detected family (graceful absence of clients, §4.2).
func (s *ProviderSelector) SelectProvider(model string) (domainServices.LLMProvider, error) {
	providerName := s.detectProvider(model)

	if provider, ok := s.providers[providerName]; ok {
		return provider, nil
	}
	if provider, ok := s.providers["mock"]; ok {
		return provider, nil
	}

	return nil, fmt.Errorf("%w: %s", models.ErrProviderNotFound, providerName)
}

// detectProvider determines which provider family to use for a model label.
func (s *ProviderSelector) detectProvider(model string) string {
	modelLower := strings.ToLower(model)

	switch {
	case strings.HasPrefix(modelLower, "gpt-"), strings.HasPrefix(modelLower, "o1-"), strings.HasPrefix(modelLower, "o3-"):
		return "openai"
	case strings.HasPrefix(modelLower, "claude-"):
		return "anthropic"
	case strings.HasPrefix(modelLower, "gemini-"):
		return "gemini"
	case strings.HasPrefix(modelLower, "deepseek-"):
		return "deepseek"
	default:
		return "ollama"
	}
}

// GetAvailableProviders returns the list of available provider names.
func (s *ProviderSelector) GetAvailableProviders() []string {
	providers := make([]string, 0, len(s.providers))
	for name := range s.providers {
		providers = append(providers, name)
	}
	return providers
}
