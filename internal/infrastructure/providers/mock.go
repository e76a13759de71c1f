package providers

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/rssnews/orchestrator/internal/domain/services"
)

// MockProvider is a deterministic stand-in LLM used when no real
// provider credentials are configured, so the orchestrator degrades
// gracefully instead of failing outright (§4.2).
type MockProvider struct{}

// NewMockProvider creates a new deterministic mock provider.
func NewMockProvider() services.LLMProvider {
	return &MockProvider{}
}

// Name returns the provider identifier.
func (p *MockProvider) Name() string {
	return "mock"
}

// Call returns a deterministic, prompt-derived response so tests and
// offline runs are reproducible.
func (p *MockProvider) Call(ctx context.Context, prompt string, maxOutputTokens int, temperature float64) (string, int, int, error) {
	sum := md5.Sum([]byte(prompt))
	digest := hex.EncodeToString(sum[:])[:8]

	text := fmt.Sprintf("[mock:%s] summary unavailable without a live model provider", digest)
	inputTokens := len(prompt) / 4
	outputTokens := len(text) / 4

	return text, inputTokens, outputTokens, nil
}
