package providers

import (
	"context"

	"github.com/rssnews/orchestrator/internal/domain/services"
	"github.com/rssnews/orchestrator/internal/infrastructure/config"
)

// DeepSeekProvider delegates to the OpenAI-compatible implementation,
// since DeepSeek's chat-completions wire format matches OpenAI's.
type DeepSeekProvider struct {
	openai *OpenAIProvider
}

// NewDeepSeekProvider creates a new DeepSeek provider instance.
func NewDeepSeekProvider(cfg config.ProviderConfig) services.LLMProvider {
	return &DeepSeekProvider{openai: newCompatibleProvider("deepseek", cfg)}
}

// Name returns the provider identifier.
func (p *DeepSeekProvider) Name() string {
	return "deepseek"
}

// Call delegates to the OpenAI-compatible implementation.
func (p *DeepSeekProvider) Call(ctx context.Context, prompt string, maxOutputTokens int, temperature float64) (string, int, int, error) {
	return p.openai.Call(ctx, prompt, maxOutputTokens, temperature)
}
