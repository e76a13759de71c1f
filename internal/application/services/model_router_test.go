package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rssnews/orchestrator/internal/domain/models"
	domainServices "github.com/rssnews/orchestrator/internal/domain/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    string
	text    string
	in, out int
	err     error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Call(ctx context.Context, prompt string, maxOutputTokens int, temperature float64) (string, int, int, error) {
	if p.err != nil {
		return "", 0, 0, p.err
	}
	return p.text, p.in, p.out, nil
}

func TestModelRouter_CallWithFallback_PrimarySucceeds(t *testing.T) {
	registry := map[string]domainServices.LLMProvider{
		"openai": &fakeProvider{name: "openai", text: "hello", in: 100, out: 50},
	}
	router := NewModelRouter(registry, nil)

	text, usage, err := router.CallWithFallback(context.Background(), "prompt", "gpt-5", nil, 5, 200, 0.3)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.False(t, usage.FallbackUsed)
	assert.Equal(t, "gpt-5", usage.Model)
	assert.Equal(t, 150, usage.TokensUsed)
	assert.Greater(t, usage.CostCents, 0.0)
}

func TestModelRouter_CallWithFallback_FallsBackOnPrimaryError(t *testing.T) {
	registry := map[string]domainServices.LLMProvider{
		"openai":    &fakeProvider{name: "openai", err: errors.New("rate limited")},
		"anthropic": &fakeProvider{name: "anthropic", text: "fallback answer", in: 80, out: 40},
	}
	router := NewModelRouter(registry, nil)

	text, usage, err := router.CallWithFallback(context.Background(), "prompt", "gpt-5", []string{"claude-4.5"}, 5, 200, 0.3)
	require.NoError(t, err)
	assert.Equal(t, "fallback answer", text)
	assert.True(t, usage.FallbackUsed)
	assert.Equal(t, "claude-4.5", usage.Model)
}

func TestModelRouter_CallWithFallback_AllModelsFail(t *testing.T) {
	registry := map[string]domainServices.LLMProvider{
		"openai":    &fakeProvider{name: "openai", err: errors.New("down")},
		"anthropic": &fakeProvider{name: "anthropic", err: errors.New("down")},
	}
	router := NewModelRouter(registry, nil)

	_, _, err := router.CallWithFallback(context.Background(), "prompt", "gpt-5", []string{"claude-4.5"}, 5, 200, 0.3)
	require.Error(t, err)
}

func TestModelRouter_CallWithFallback_EstimatesTokensWhenProviderReportsZero(t *testing.T) {
	registry := map[string]domainServices.LLMProvider{
		"openai": &fakeProvider{name: "openai", text: "a reasonably long response body here"},
	}
	router := NewModelRouter(registry, nil)

	_, usage, err := router.CallWithFallback(context.Background(), "a reasonably long prompt body here", "gpt-5", nil, 5, 200, 0.3)
	require.NoError(t, err)
	assert.Greater(t, usage.TokensUsed, 0)
}

func TestBuildContext_TruncatesSnippetsAndCapsAtTen(t *testing.T) {
	docs := make([]*models.Document, 0, 12)
	longSnippet := make([]byte, 300)
	for i := range longSnippet {
		longSnippet[i] = 'x'
	}
	for i := 0; i < 12; i++ {
		docs = append(docs, &models.Document{
			ArticleID: "a",
			Title:     "title",
			URL:       "https://example.com",
			Snippet:   string(longSnippet),
		})
	}

	ctx := BuildContext(docs)
	lines := strings.Count(ctx, "\n")
	assert.Equal(t, 10, lines)
	assert.NotContains(t, ctx, string(longSnippet))
}
