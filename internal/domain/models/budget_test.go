package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudget_CanAfford(t *testing.T) {
	b := NewBudget(100, 1.0, 10)
	assert.True(t, b.CanAfford(50, 0.5, 5))
	assert.False(t, b.CanAfford(150, 0, 0))
}

func TestBudget_RecordUsageAccumulates(t *testing.T) {
	b := NewBudget(1000, 10, 100)
	b.RecordUsage(100, 1.0, 2.5)
	b.RecordUsage(50, 0.5, 1.0)
	assert.Equal(t, 150, b.SpentTokens)
	assert.InDelta(t, 1.5, b.SpentCents, 0.0001)
	assert.InDelta(t, 3.5, b.SpentSeconds, 0.0001)
}

func TestBudget_RemainingPct_ZeroCapTreatedAsFullyRemaining(t *testing.T) {
	b := NewBudget(0, 0, 0)
	r := b.RemainingPct()
	assert.Equal(t, 100.0, r.TokensPct)
	assert.Equal(t, 100.0, r.CostPct)
	assert.Equal(t, 100.0, r.TimePct)
}

func TestBudget_RemainingPct_ComputesFractionSpent(t *testing.T) {
	b := NewBudget(100, 10, 10)
	b.RecordUsage(25, 5, 0)
	r := b.RemainingPct()
	assert.InDelta(t, 75.0, r.TokensPct, 0.0001)
	assert.InDelta(t, 50.0, r.CostPct, 0.0001)
	assert.InDelta(t, 100.0, r.TimePct, 0.0001)
}

func TestBudget_ShouldDegrade_TrueBelowThirtyPercentRemaining(t *testing.T) {
	b := NewBudget(100, 100, 100)
	b.RecordUsage(75, 0, 0)
	assert.True(t, b.ShouldDegrade())
}

func TestBudget_ShouldDegrade_FalseWhenHealthy(t *testing.T) {
	b := NewBudget(100, 100, 100)
	b.RecordUsage(10, 0, 0)
	assert.False(t, b.ShouldDegrade())
}

func TestBudget_MinRemainingPct_PicksSmallestDimension(t *testing.T) {
	b := NewBudget(100, 100, 100)
	b.RecordUsage(10, 50, 0)
	assert.InDelta(t, 50.0, b.MinRemainingPct(), 0.0001)
}

func TestBudget_CheckExceeded_NilWhenWithinCaps(t *testing.T) {
	b := NewBudget(100, 10, 10)
	b.RecordUsage(50, 5, 5)
	assert.NoError(t, b.CheckExceeded())
}

func TestBudget_CheckExceeded_ErrorWhenOverAnyCap(t *testing.T) {
	b := NewBudget(100, 10, 10)
	b.RecordUsage(150, 0, 0)
	err := b.CheckExceeded()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBudgetExceeded))
}

func TestBudget_Reset_ZeroesCountersButKeepsCaps(t *testing.T) {
	b := NewBudget(100, 10, 10)
	b.RecordUsage(50, 5, 5)
	b.AddWarning("near limit")
	b.Reset()
	assert.Equal(t, 0, b.SpentTokens)
	assert.Equal(t, 0.0, b.SpentCents)
	assert.Equal(t, 0.0, b.SpentSeconds)
	assert.Empty(t, b.Warnings)
	assert.Equal(t, 100, b.MaxTokens)
}

func TestBudget_AddWarning_Appends(t *testing.T) {
	b := NewBudget(100, 10, 10)
	b.AddWarning("first")
	b.AddWarning("second")
	require.Len(t, b.Warnings, 2)
	assert.Equal(t, "first", b.Warnings[0])
	assert.Equal(t, "second", b.Warnings[1])
}

func TestBudget_Summary_ReflectsSpendAndCaps(t *testing.T) {
	b := NewBudget(100, 10, 10)
	b.RecordUsage(25, 2.5, 1)
	s := b.Summary()
	assert.Equal(t, 25, s.Spent.Tokens)
	assert.Equal(t, 100, s.Limits.Tokens)
	assert.InDelta(t, 75.0, s.RemainingPct.TokensPct, 0.0001)
}
