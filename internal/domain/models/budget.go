package models

import (
	"fmt"
	"sync"
)

// Budget tracks per-request token/cost/time spend against fixed caps.
// A Budget is owned by exactly one request, but the request's agents may
// run concurrently against it (e.g. the /trends, /analyze parallel-agent
// flow), so the counters are guarded by mu.
type Budget struct {
	mu sync.Mutex

	SpentTokens  int
	SpentCents   float64
	SpentSeconds float64

	MaxTokens  int
	MaxCents   float64
	MaxSeconds float64

	Warnings []string
}

// NewBudget constructs a Budget with the given caps and zeroed counters.
func NewBudget(maxTokens int, maxCents, maxSeconds float64) *Budget {
	return &Budget{
		MaxTokens:  maxTokens,
		MaxCents:   maxCents,
		MaxSeconds: maxSeconds,
	}
}

// CanAfford reports whether all three estimated increments still fit
// under their respective caps.
func (b *Budget) CanAfford(estTokens int, estCents, estSeconds float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.SpentTokens+estTokens <= b.MaxTokens &&
		b.SpentCents+estCents <= b.MaxCents &&
		b.SpentSeconds+estSeconds <= b.MaxSeconds
}

// RecordUsage monotonically increments the spend counters.
func (b *Budget) RecordUsage(tokens int, cents, seconds float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.SpentTokens += tokens
	b.SpentCents += cents
	b.SpentSeconds += seconds
}

// RemainingPct reports the fraction of each cap still unspent, as percentages.
type RemainingPct struct {
	TokensPct float64
	CostPct   float64
	TimePct   float64
}

// RemainingPct computes (cap-spent)/cap*100 for each dimension. A zero cap
// is treated as fully remaining (100%) to avoid division by zero.
func (b *Budget) RemainingPct() RemainingPct {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remainingPctLocked()
}

func (b *Budget) remainingPctLocked() RemainingPct {
	pct := func(spent, cap float64) float64 {
		if cap <= 0 {
			return 100
		}
		v := (cap - spent) / cap * 100
		if v < 0 {
			return 0
		}
		return v
	}
	return RemainingPct{
		TokensPct: pct(float64(b.SpentTokens), float64(b.MaxTokens)),
		CostPct:   pct(b.SpentCents, b.MaxCents),
		TimePct:   pct(b.SpentSeconds, b.MaxSeconds),
	}
}

// ShouldDegrade reports whether the smallest remaining-pct dimension has
// dropped below 30%.
func (b *Budget) ShouldDegrade() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.remainingPctLocked()
	return min3(r.TokensPct, r.CostPct, r.TimePct) < 30
}

// MinRemainingPct returns the smallest of the three remaining percentages,
// the value the degradation table keys off of.
func (b *Budget) MinRemainingPct() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.remainingPctLocked()
	return min3(r.TokensPct, r.CostPct, r.TimePct)
}

// CheckExceeded returns ErrBudgetExceeded if any counter strictly exceeds its cap.
func (b *Budget) CheckExceeded() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SpentTokens > b.MaxTokens || b.SpentCents > b.MaxCents || b.SpentSeconds > b.MaxSeconds {
		return fmt.Errorf("%w: spent(tokens=%d, cents=%.2f, seconds=%.2f) caps(tokens=%d, cents=%.2f, seconds=%.2f)",
			ErrBudgetExceeded, b.SpentTokens, b.SpentCents, b.SpentSeconds, b.MaxTokens, b.MaxCents, b.MaxSeconds)
	}
	return nil
}

// Reset zeroes counters and warnings, leaving caps untouched.
func (b *Budget) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.SpentTokens = 0
	b.SpentCents = 0
	b.SpentSeconds = 0
	b.Warnings = nil
}

// AddWarning appends a human-readable degradation/early-stop note.
func (b *Budget) AddWarning(w string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Warnings = append(b.Warnings, w)
}

// BudgetSummary is the observability snapshot returned by summary().
type BudgetSummary struct {
	Spent struct {
		Tokens  int     `json:"tokens"`
		Cents   float64 `json:"cents"`
		Seconds float64 `json:"seconds"`
	} `json:"spent"`
	Limits struct {
		Tokens  int     `json:"tokens"`
		Cents   float64 `json:"cents"`
		Seconds float64 `json:"seconds"`
	} `json:"limits"`
	RemainingPct RemainingPct `json:"remaining_pct"`
	Warnings     []string     `json:"warnings"`
}

// Summary produces the ambient observability snapshot used by the
// structured logger and the /execute response meta.
func (b *Budget) Summary() BudgetSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	var s BudgetSummary
	s.Spent.Tokens = b.SpentTokens
	s.Spent.Cents = b.SpentCents
	s.Spent.Seconds = b.SpentSeconds
	s.Limits.Tokens = b.MaxTokens
	s.Limits.Cents = b.MaxCents
	s.Limits.Seconds = b.MaxSeconds
	s.RemainingPct = b.remainingPctLocked()
	s.Warnings = b.Warnings
	return s
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
