package services

import "github.com/rssnews/orchestrator/internal/domain/models"

// BudgetManager wraps a request's Budget ledger with the degradation
// policy table (§4.1). One BudgetManager is constructed per request; it
// is never shared across requests.
type BudgetManager struct {
	budget *models.Budget
}

// NewBudgetManager wraps an existing per-request budget ledger.
func NewBudgetManager(budget *models.Budget) *BudgetManager {
	return &BudgetManager{budget: budget}
}

// Budget exposes the underlying ledger for direct CanAfford/RecordUsage use.
func (m *BudgetManager) Budget() *models.Budget {
	return m.budget
}

// DegradedParams is the mutable parameter bag the degradation table acts on.
// Agents read back whichever fields are relevant to their command.
type DegradedParams struct {
	Depth             int
	DisableSelfCheck  bool
	DisableRerank     bool
	HopLimit          int
	MaxNodes          int
	MaxEdges          int
	DisableAlternatives bool
	KFinal            int
	Operation         string // forces memory operation to "recall"
}

// Degrade applies the degradation table for command against the budget's
// current minimum remaining percentage, returning the mutated params and
// appending a warning per change to the budget ledger.
//
// Open Question decision (DESIGN.md): rules apply additively — the
// command-specific rule fires first (if its threshold is crossed), then
// the global <20% rule is applied on top of whatever k_final the
// command-specific rule already produced. Because every rule only ever
// lowers k_final via min(), double-firing never increases it.
func (m *BudgetManager) Degrade(command string, params DegradedParams) DegradedParams {
	pct := m.budget.MinRemainingPct()

	switch command {
	case "/ask":
		if pct < 50 {
			params.Depth = minInt(2, orDefault(params.Depth, 2))
			params.DisableSelfCheck = true
			m.budget.AddWarning("degraded: iterative-qa depth capped at 2, self-check disabled (<50% budget remaining)")
		}
		if pct < 30 {
			params.Depth = 1
			params.DisableSelfCheck = true
			params.DisableRerank = true
			m.budget.AddWarning("degraded: iterative-qa depth capped at 1, self-check and rerank disabled (<30% budget remaining)")
		}
	case "/graph":
		if pct < 50 {
			params.HopLimit = 2
			params.MaxNodes = 120
			params.MaxEdges = 360
			m.budget.AddWarning("degraded: graph hop_limit=2, max_nodes=120, max_edges=360 (<50% budget remaining)")
		}
		if pct < 30 {
			params.HopLimit = 1
			params.MaxNodes = 60
			params.MaxEdges = 180
			params.DisableRerank = true
			m.budget.AddWarning("degraded: graph hop_limit=1, max_nodes=60, max_edges=180, rerank disabled (<30% budget remaining)")
		}
	case "/events":
		if pct < 50 {
			params.DisableAlternatives = true
			m.budget.AddWarning("degraded: events alternative interpretations disabled (<50% budget remaining)")
		}
		if pct < 30 {
			params.KFinal = minInt(5, orDefault(params.KFinal, 5))
			params.DisableAlternatives = true
			params.DisableRerank = true
			m.budget.AddWarning("degraded: events k_final capped at 5, alternatives and rerank disabled (<30% budget remaining)")
		}
	case "/memory":
		if pct < 30 {
			params.Operation = "recall"
			m.budget.AddWarning("degraded: memory operation forced to recall (<30% budget remaining)")
		}
	case "/synthesize":
		if pct < 30 {
			params.KFinal = minInt(5, orDefault(params.KFinal, 5))
			params.DisableRerank = true
			m.budget.AddWarning("degraded: synthesis k_final capped at 5, rerank disabled (<30% budget remaining)")
		}
	}

	// Global rule, evaluated after command-specific rules (additive).
	if pct < 20 {
		params.KFinal = minInt(3, orDefault(params.KFinal, 3))
		m.budget.AddWarning("degraded: k_final capped at 3 across all commands (<20% budget remaining)")
	}

	return params
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
