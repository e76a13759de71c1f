package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rssnews/orchestrator/internal/domain/models"
	domainServices "github.com/rssnews/orchestrator/internal/domain/services"
	"github.com/rssnews/orchestrator/internal/infrastructure/logging"
)

// costPair is (input_cost_per_1k, output_cost_per_1k) in cents.
type costPair struct {
	input, output float64
}

// costTable is the literal per-model cost table (§4.2.1). Unknown model
// labels default to gpt-5-mini's pair.
var costTable = map[string]costPair{
	"gpt-5":          {0.8, 2.4},
	"gpt-5-mini":     {0.25, 0.75},
	"gpt-5-nano":     {0.12, 0.36},
	"claude-4.5":     {0.3, 1.5},
	"gemini-2.5-pro": {0.125, 0.375},
}

func costFor(model string) costPair {
	if c, ok := costTable[model]; ok {
		return c
	}
	return costTable["gpt-5-mini"]
}

// Usage is the per-call accounting the router returns alongside content.
type Usage struct {
	TokensUsed   int
	CostCents    float64
	LatencyMS    int64
	FallbackUsed bool
	Model        string
}

// ModelRouter invokes LLM providers with a fallback chain, per-call
// timeout, and cost estimation.
type ModelRouter struct {
	selector *ProviderSelector
	logger   *logging.StructuredLogger
}

// NewModelRouter constructs a router over the given provider registry.
func NewModelRouter(providers map[string]domainServices.LLMProvider, logger *logging.StructuredLogger) *ModelRouter {
	return &ModelRouter{
		selector: NewProviderSelector(providers),
		logger:   logger,
	}
}

// CallWithFallback tries primary then each fallback model in order, subject
// to a per-attempt timeout. It returns the successful text, the label of
// the model that produced it, and usage metadata. If every model fails it
// returns ErrModelUnavailable carrying the last error and attempted list.
func (r *ModelRouter) CallWithFallback(
	ctx context.Context,
	prompt string,
	primaryModel string,
	fallbackModels []string,
	timeoutSeconds int,
	maxOutputTokens int,
	temperature float64,
) (text string, usage Usage, err error) {
	chain := append([]string{primaryModel}, fallbackModels...)
	var lastErr error
	attempted := make([]string, 0, len(chain))

	for i, model := range chain {
		attempted = append(attempted, model)

		provider, selErr := r.selector.SelectProvider(model)
		if selErr != nil {
			lastErr = selErr
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
		start := time.Now()
		content, inTok, outTok, callErr := provider.Call(callCtx, prompt, maxOutputTokens, temperature)
		latency := time.Since(start)
		cancel()

		if r.logger != nil {
			r.logger.WithFields(map[string]interface{}{
				"model":      model,
				"provider":   provider.Name(),
				"latency_ms": latency.Milliseconds(),
				"success":    callErr == nil,
			}).Info("model_router_attempt")
		}

		if callErr != nil {
			lastErr = fmt.Errorf("provider %s model %s: %w", provider.Name(), model, callErr)
			continue
		}

		if inTok == 0 && outTok == 0 {
			// Provider could not report token counts; estimate a 70/30 split.
			estTotal := estimateTokens(prompt, content, maxOutputTokens)
			inTok = int(float64(estTotal) * 0.7)
			outTok = estTotal - inTok
		}

		cp := costFor(model)
		cost := float64(inTok)/1000*cp.input + float64(outTok)/1000*cp.output

		return content, Usage{
			TokensUsed:   inTok + outTok,
			CostCents:    cost,
			LatencyMS:    latency.Milliseconds(),
			FallbackUsed: i > 0,
			Model:        model,
		}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no models configured")
	}
	return "", Usage{}, fmt.Errorf("%w: attempted %s: %v", models.ErrModelUnavailable, strings.Join(attempted, ", "), lastErr)
}

// estimateTokens is a rough length-based fallback when a provider does not
// report its own token counts.
func estimateTokens(prompt, content string, maxOutputTokens int) int {
	est := (len(prompt) + len(content)) / 4
	if est == 0 {
		est = 1
	}
	if maxOutputTokens > 0 && est > maxOutputTokens*4 {
		est = maxOutputTokens * 4
	}
	return est
}

// BuildContext assembles a compact textual context of up to 10 documents,
// each rendered as "[i] title / date / url / truncated snippet (<=200 chars)".
// Order is preserved from input; assembly is deterministic.
func BuildContext(docs []*models.Document) string {
	var b strings.Builder
	limit := len(docs)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		d := docs[i]
		snippet := d.Snippet
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		fmt.Fprintf(&b, "[%d] %s / %s / %s / %s\n", i+1, d.Title, d.Date.Format("2006-01-02"), d.URL, snippet)
	}
	return b.String()
}
