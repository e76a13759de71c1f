package agents

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rssnews/orchestrator/internal/application/services"
	"github.com/rssnews/orchestrator/internal/domain/models"
)

// RetrieveFunc re-retrieves documents for a reformulated query mid-loop.
type RetrieveFunc func(ctx context.Context, query string, windowDays int, kFinal int) ([]*models.Document, error)

// IterativeAgent answers a question with n iterations of
// retrieve-reason-refine, where n is clamped by the caller and further
// reduced by the budget manager.
type IterativeAgent struct {
	router *services.ModelRouter
}

// NewIterativeAgent constructs an IterativeAgent over the given router.
func NewIterativeAgent(router *services.ModelRouter) *IterativeAgent {
	return &IterativeAgent{router: router}
}

// IterativeParams bundles the inputs to Run.
type IterativeParams struct {
	Query        string
	InitialDocs  []*models.Document
	Depth        int
	DisableSelfCheck bool
	Budget       *services.BudgetManager
	Lang         string
	WindowDays   int
	Retrieve     RetrieveFunc
}

// Run executes the iterative-QA loop described in §4.3.
func (a *IterativeAgent) Run(ctx context.Context, p IterativeParams) (*models.IterativeResult, []string) {
	var warnings []string
	result := &models.IterativeResult{}

	accumulatedDocs := append([]*models.Document{}, p.InitialDocs...)
	seen := make(map[string]bool, len(accumulatedDocs))
	for _, d := range accumulatedDocs {
		seen[docKey(d)] = true
	}

	query := p.Query
	var fragments []string
	currentDocs := p.InitialDocs

	depth := p.Depth
	if depth < 1 {
		depth = 1
	}

	for i := 1; i <= depth; i++ {
		if !p.Budget.Budget().CanAfford(500, 0.5, 0) {
			warnings = append(warnings, fmt.Sprintf("stopped early at iteration %d", i-1))
			break
		}

		reason := "initial retrieval"
		if i == 1 {
			currentDocs = p.InitialDocs
		} else {
			reason = a.refineOrReformulate(ctx, p, &query, &currentDocs, accumulatedDocs, seen, &warnings)
		}

		if len(currentDocs) > 10 {
			currentDocs = currentDocs[:10]
		}

		fragment := a.generateAnswer(ctx, p.Budget, query, currentDocs, &warnings)
		fragments = append(fragments, fragment)

		q := query
		if len(q) > 180 {
			q = q[:180]
		}
		if len(reason) > 200 {
			reason = reason[:200]
		}
		result.Steps = append(result.Steps, models.IterativeStep{
			Iteration: i,
			Query:     q,
			NDocs:     len(currentDocs),
			Reason:    reason,
		})

		for _, d := range currentDocs {
			if !seen[docKey(d)] {
				seen[docKey(d)] = true
				accumulatedDocs = append(accumulatedDocs, d)
			}
		}
	}

	result.Answer = a.synthesize(ctx, p.Budget, p.Query, fragments)
	result.FollowUps = followUpQuestions(p.Lang, result.Answer)

	return result, warnings
}

// refineOrReformulate runs the sufficiency self-check and either keeps the
// accumulated evidence or reformulates and re-retrieves.
func (a *IterativeAgent) refineOrReformulate(ctx context.Context, p IterativeParams, query *string, currentDocs *[]*models.Document, accumulatedDocs []*models.Document, seen map[string]bool, warnings *[]string) string {
	if p.DisableSelfCheck {
		*currentDocs = accumulatedDocs // Run keeps the first 10
		return "self-check and refinement"
	}

	sufficient, reformulated := a.sufficiencyCheck(ctx, p.Budget, *query, accumulatedDocs)

	if sufficient {
		*currentDocs = accumulatedDocs // Run keeps the first 10
		return "self-check and refinement"
	}

	if reformulated != "" {
		if len(reformulated) > 180 {
			reformulated = reformulated[:180]
		}
		*query = reformulated
	}

	if p.Retrieve != nil {
		docs, err := p.Retrieve(ctx, *query, p.WindowDays, 5)
		if err == nil {
			*currentDocs = docs
			return "query reformulated for deeper evidence"
		}
		*warnings = append(*warnings, fmt.Sprintf("re-retrieval failed: %v", err))
	}
	*currentDocs = lastN(accumulatedDocs, 10)
	return "query reformulated for deeper evidence"
}

// sufficiencyCheck runs the sufficiency self-check LLM call (§4.3.1).
// primary gpt-5, fallback claude-4.5, timeout 10s, max_tokens 200, temp 0.3.
// On failure: treat as sufficient, keep the original query.
func (a *IterativeAgent) sufficiencyCheck(ctx context.Context, bm *services.BudgetManager, query string, docs []*models.Document) (sufficient bool, reformulated string) {
	prompt := fmt.Sprintf("Question: %s\nEvidence so far:\n%s\nIs this evidence sufficient to answer fully? Reply SUFFICIENT: yes|no and, if no, REFORMULATED: <new query>.", query, services.BuildContext(docs))
	text, usage, err := a.router.CallWithFallback(ctx, prompt, "gpt-5", []string{"claude-4.5"}, 10, 200, 0.3)
	if err != nil {
		return true, ""
	}
	bm.Budget().RecordUsage(usage.TokensUsed, usage.CostCents, float64(usage.LatencyMS)/1000)

	lower := strings.ToLower(text)
	if strings.Contains(lower, "sufficient: yes") {
		return true, ""
	}
	if idx := strings.Index(lower, "reformulated:"); idx >= 0 {
		return false, strings.TrimSpace(text[idx+len("reformulated:"):])
	}
	return false, ""
}

// generateAnswer runs the answer-generation LLM call (§4.3.1).
// primary gpt-5, fallback [claude-4.5, gemini-2.5-pro], timeout 15s,
// max_tokens 400, temp 0.7. On failure: short explanatory fragment, continue.
func (a *IterativeAgent) generateAnswer(ctx context.Context, bm *services.BudgetManager, query string, docs []*models.Document, warnings *[]string) string {
	prompt := fmt.Sprintf("Question: %s\nContext:\n%s\nAnswer concisely using only this context.", query, services.BuildContext(docs))
	text, usage, err := a.router.CallWithFallback(ctx, prompt, "gpt-5", []string{"claude-4.5", "gemini-2.5-pro"}, 15, 400, 0.7)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("answer generation failed: %v", err))
		return "Unable to generate an answer fragment for this iteration."
	}
	bm.Budget().RecordUsage(usage.TokensUsed, usage.CostCents, float64(usage.LatencyMS)/1000)
	return text
}

// synthesize runs the final synthesis LLM call (§4.3.1). primary gpt-5,
// fallback [claude-4.5], timeout 12s, max_tokens 600, temp 0.7. On
// failure: concatenate fragments and truncate to 600 chars.
func (a *IterativeAgent) synthesize(ctx context.Context, bm *services.BudgetManager, query string, fragments []string) string {
	if len(fragments) == 0 {
		return ""
	}
	prompt := fmt.Sprintf("Question: %s\nMerge these answer fragments into one coherent final answer (<=600 chars):\n%s", query, strings.Join(fragments, "\n---\n"))
	text, usage, err := a.router.CallWithFallback(ctx, prompt, "gpt-5", []string{"claude-4.5"}, 12, 600, 0.7)
	if err != nil {
		concat := strings.Join(fragments, " ")
		if len(concat) > 600 {
			concat = concat[:600]
		}
		return concat
	}
	bm.Budget().RecordUsage(usage.TokensUsed, usage.CostCents, float64(usage.LatencyMS)/1000)
	if len(text) > 600 {
		text = text[:600]
	}
	return text
}

// followUpQuestions produces up to five follow-up questions (§4.3.1):
// a base set of 3 language-conditional templates, prepending a
// regulatory-angle question when the answer mentions AI, capped at 5.
func followUpQuestions(lang, answer string) []string {
	var base []string
	switch lang {
	case "es":
		base = []string{
			"¿Qué fuentes adicionales respaldan esta conclusión?",
			"¿Cómo ha cambiado esta tendencia en los últimos meses?",
			"¿Qué actores clave están involucrados?",
		}
	default:
		base = []string{
			"What additional sources support this conclusion?",
			"How has this trend changed in recent months?",
			"Which key actors are involved?",
		}
	}

	lower := strings.ToLower(answer)
	if mentionsAI(lower) {
		reg := "What regulatory considerations apply here?"
		if lang == "es" {
			reg = "¿Qué consideraciones regulatorias aplican aquí?"
		}
		base = append([]string{reg}, base...)
	}

	if len(base) > 5 {
		base = base[:5]
	}
	return base
}

// mentionsAI reports whether lower (already lowercased) mentions AI as a
// whole word, not merely as a substring of an unrelated word like "maintain".
func mentionsAI(lower string) bool {
	if strings.Contains(lower, "artificial intelligence") {
		return true
	}
	for _, word := range strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if word == "ai" {
			return true
		}
	}
	return false
}

func docKey(d *models.Document) string {
	return d.ArticleID + "|" + d.URL
}

func lastN(docs []*models.Document, n int) []*models.Document {
	if len(docs) <= n {
		return docs
	}
	return docs[len(docs)-n:]
}
