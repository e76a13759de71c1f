package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rssnews/orchestrator/internal/application/services"
	"github.com/rssnews/orchestrator/internal/domain/models"
)

// SynthesisAgent merges caller-supplied prior AgentOutputs into a single
// summary/conflicts/actions result (§4.4). It never invokes other agents
// or performs retrieval itself.
type SynthesisAgent struct {
	router *services.ModelRouter
}

// NewSynthesisAgent constructs a SynthesisAgent over the given router.
func NewSynthesisAgent(router *services.ModelRouter) *SynthesisAgent {
	return &SynthesisAgent{router: router}
}

// Run merges outputs into the Synthesis result.
func (a *SynthesisAgent) Run(ctx context.Context, bm *services.BudgetManager, outputs []models.AgentOutput) (*models.SynthesisResult, []string) {
	var warnings []string

	result, err := a.mergeViaLLM(ctx, bm, outputs)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("synthesis LLM merge failed, using deterministic fallback: %v", err))
		result = deterministicMerge(outputs)
	}

	return result, warnings
}

// mergeViaLLM issues the merge LLM call (§4.4): primary gpt-5, fallback
// [claude-4.5], timeout 15s, max_tokens 500, temp 0.5.
func (a *SynthesisAgent) mergeViaLLM(ctx context.Context, bm *services.BudgetManager, outputs []models.AgentOutput) (*models.SynthesisResult, error) {
	var b strings.Builder
	for i, o := range outputs {
		fmt.Fprintf(&b, "[%d] command=%s confidence=%.2f result=%v\n", i, o.Command, o.Confidence, o.Result)
	}

	prompt := fmt.Sprintf("Merge these prior analytical outputs into a summary (<=400 chars):\n%s", b.String())
	text, usage, err := a.router.CallWithFallback(ctx, prompt, "gpt-5", []string{"claude-4.5"}, 15, 500, 0.5)
	if err != nil {
		return nil, err
	}
	bm.Budget().RecordUsage(usage.TokensUsed, usage.CostCents, float64(usage.LatencyMS)/1000)

	if len(text) > 400 {
		text = text[:400]
	}

	return &models.SynthesisResult{
		Summary:   text,
		Conflicts: extractConflicts(outputs),
		Actions:   extractActions(outputs),
	}, nil
}

// deterministicMerge is the fallback heuristic: the summary lists each
// input's command and confidence, every input becomes one medium-impact
// "Review findings from <command>" action, and at most one conflict is
// built by extractConflicts. Inputs are not inspected for their own
// insights or conflict tags.
func deterministicMerge(outputs []models.AgentOutput) *models.SynthesisResult {
	var summaries []string
	for _, o := range outputs {
		summaries = append(summaries, fmt.Sprintf("%s (confidence %.2f)", o.Command, o.Confidence))
	}
	summary := "Aggregated findings from: " + strings.Join(summaries, ", ")
	if len(summary) > 400 {
		summary = summary[:400]
	}

	return &models.SynthesisResult{
		Summary:   summary,
		Conflicts: extractConflicts(outputs),
		Actions:   extractActions(outputs),
	}
}

func extractActions(outputs []models.AgentOutput) []models.SynthesisAction {
	var actions []models.SynthesisAction
	for _, o := range outputs {
		actions = append(actions, models.SynthesisAction{
			Recommendation: fmt.Sprintf("Review findings from %s", o.Command),
			Impact:         models.ImpactMedium,
			EvidenceRefs:   []models.EvidenceRef{{Date: "1970-01-01"}},
		})
	}
	return actions
}

// extractConflicts derives conflicts from the two most disagreeing
// outputs (lowest/highest confidence as the disagreement proxy); dropped
// if fewer than two applicable outputs exist.
func extractConflicts(outputs []models.AgentOutput) []models.SynthesisConflict {
	if len(outputs) < 2 {
		return nil
	}
	lo, hi := outputs[0], outputs[0]
	for _, o := range outputs {
		if o.Confidence < lo.Confidence {
			lo = o
		}
		if o.Confidence > hi.Confidence {
			hi = o
		}
	}
	if lo.Command == hi.Command {
		return nil
	}
	return []models.SynthesisConflict{{
		Description:  fmt.Sprintf("%s and %s diverge in confidence", lo.Command, hi.Command),
		EvidenceRefs: []models.EvidenceRef{{Date: "1970-01-01"}, {Date: "1970-01-01"}},
	}}
}
