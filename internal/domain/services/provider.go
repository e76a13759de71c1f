package services

import "context"

// LLMProvider is the narrow interface every model family implements.
// This interface follows the Dependency Inversion Principle: it is
// defined in the domain layer and implemented in the infrastructure
// layer, keeping the router provider-agnostic (OpenAI-compatible,
// Anthropic-compatible, Gemini-compatible, DeepSeek-compatible, or the
// Ollama-style local default).
//
// Unlike a chat-proxy's streaming contract, the orchestration core only
// ever needs a single synchronous completion per call: the router
// already owns retries/fallback/timeout, so providers stay as thin as
// possible.
type LLMProvider interface {
	// Name returns the provider's identifier (e.g. "openai", "anthropic").
	Name() string

	// Call sends one completion request and returns the full text plus
	// token usage. Providers that cannot report separate input/output
	// counts should return their best estimate; the router's cost model
	// falls back to a 70/30 split when both counts are zero.
	Call(ctx context.Context, prompt string, maxOutputTokens int, temperature float64) (text string, inputTokens int, outputTokens int, err error)
}
