package providers

import (
	"context"

	"github.com/rssnews/orchestrator/internal/domain/services"
	"github.com/rssnews/orchestrator/internal/infrastructure/config"
)

// OllamaProvider delegates to the OpenAI-compatible implementation,
// since Ollama's chat-completions wire format matches OpenAI's.
type OllamaProvider struct {
	openai *OpenAIProvider
}

// NewOllamaProvider creates a new Ollama provider instance.
func NewOllamaProvider(cfg config.ProviderConfig) services.LLMProvider {
	return &OllamaProvider{openai: newCompatibleProvider("ollama", cfg)}
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Call delegates to the OpenAI-compatible implementation.
func (p *OllamaProvider) Call(ctx context.Context, prompt string, maxOutputTokens int, temperature float64) (string, int, int, error) {
	return p.openai.Call(ctx, prompt, maxOutputTokens, temperature)
}
