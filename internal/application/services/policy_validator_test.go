package services

import (
	"testing"

	"github.com/rssnews/orchestrator/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validResponse() *models.Response {
	return &models.Response{
		Header: "Answer",
		TLDR:   "short summary",
		Insights: []models.Insight{
			{Kind: models.InsightFact, Text: "fact", EvidenceRefs: []models.EvidenceRef{{ArticleID: "a1", Date: "2026-01-01"}}},
		},
		Evidence: []models.Evidence{
			{Title: "t", Snippet: "s", URL: "https://reuters.com/a1", Date: "2026-01-01"},
		},
		Result: &models.IterativeResult{Answer: "yes"},
		Meta:   models.Meta{Model: "gpt-5", CorrelationID: "corr-1"},
	}
}

func TestPolicyValidator_Validate_Passes(t *testing.T) {
	v := NewPolicyValidator(DefaultDomainLists())
	ok, msg := v.Validate(validResponse())
	require.True(t, ok, msg)
}

func TestPolicyValidator_Validate_IdempotentOnUnchangedEnvelope(t *testing.T) {
	v := NewPolicyValidator(DefaultDomainLists())
	resp := validResponse()
	ok1, _ := v.Validate(resp)
	ok2, _ := v.Validate(resp)
	assert.Equal(t, ok1, ok2)
}

func TestPolicyValidator_Validate_RejectsOverlongTLDR(t *testing.T) {
	v := NewPolicyValidator(DefaultDomainLists())
	resp := validResponse()
	long := make([]byte, 221)
	for i := range long {
		long[i] = 'x'
	}
	resp.TLDR = string(long)

	ok, msg := v.Validate(resp)
	assert.False(t, ok)
	assert.Contains(t, msg, "tldr exceeds")
}

func TestPolicyValidator_Validate_RejectsInsightWithoutEvidenceRefs(t *testing.T) {
	v := NewPolicyValidator(DefaultDomainLists())
	resp := validResponse()
	resp.Insights[0].EvidenceRefs = nil

	ok, msg := v.Validate(resp)
	assert.False(t, ok)
	assert.Contains(t, msg, "no evidence refs")
}

func TestPolicyValidator_Validate_RejectsPII(t *testing.T) {
	v := NewPolicyValidator(DefaultDomainLists())
	resp := validResponse()
	resp.TLDR = "reach me at 555-123-4567"

	ok, msg := v.Validate(resp)
	assert.False(t, ok)
	assert.Contains(t, msg, "PII")
}

func TestPolicyValidator_Validate_RejectsBlacklistedEvidenceURL(t *testing.T) {
	v := NewPolicyValidator(DefaultDomainLists())
	resp := validResponse()
	resp.Evidence[0].URL = "https://clickbait-daily.com/a1"

	ok, msg := v.Validate(resp)
	assert.False(t, ok)
	assert.Contains(t, msg, "blacklisted")
}

func TestPolicyValidator_Validate_RejectsMissingRequiredFields(t *testing.T) {
	v := NewPolicyValidator(DefaultDomainLists())
	resp := validResponse()
	resp.Meta.CorrelationID = ""

	ok, msg := v.Validate(resp)
	assert.False(t, ok)
	assert.Contains(t, msg, "correlation_id")
}

func TestPolicyValidator_ValidateResultShape_SynthesisRequiresActions(t *testing.T) {
	v := NewPolicyValidator(DefaultDomainLists())
	ok, msg := v.ValidateResultShape("/synthesize", &models.SynthesisResult{})
	assert.False(t, ok)
	assert.Contains(t, msg, "actions")
}

func TestPolicyValidator_ValidateResultShape_SynthesisConflictNeedsTwoRefs(t *testing.T) {
	v := NewPolicyValidator(DefaultDomainLists())
	result := &models.SynthesisResult{
		Actions: []models.SynthesisAction{{Recommendation: "do x"}},
		Conflicts: []models.SynthesisConflict{
			{Description: "conflict", EvidenceRefs: []models.EvidenceRef{{ArticleID: "a1", Date: "2026-01-01"}}},
		},
	}
	ok, msg := v.ValidateResultShape("/synthesize", result)
	assert.False(t, ok)
	assert.Contains(t, msg, ">=2 evidence refs")
}

func TestPolicyValidator_ValidateResultShape_ForecastRejectsInvertedInterval(t *testing.T) {
	v := NewPolicyValidator(DefaultDomainLists())
	result := &models.ForecastResult{
		Items: []models.ForecastItem{
			{
				Topic:              "ai regulation",
				ConfidenceInterval: models.ConfidenceInterval{Lower: 0.8, Upper: 0.2},
				Drivers:            []models.ForecastDriver{{Rationale: "r"}},
			},
		},
	}
	ok, msg := v.ValidateResultShape("/predict", result)
	assert.False(t, ok)
	assert.Contains(t, msg, "lower > upper")
}

func TestPolicyValidator_ValidateResultShape_CompetitorsRequiresTopDomainsWhenPositioned(t *testing.T) {
	v := NewPolicyValidator(DefaultDomainLists())
	result := &models.CompetitorsResult{
		Positioning: []models.CompetitorPositioning{{Domain: "reuters.com", Stance: "neutral"}},
	}
	ok, msg := v.ValidateResultShape("/competitors", result)
	assert.False(t, ok)
	assert.Contains(t, msg, "top_domains")
}

func TestPolicyValidator_ValidateResultShape_UnrecognizedCommandPasses(t *testing.T) {
	v := NewPolicyValidator(DefaultDomainLists())
	ok, _ := v.ValidateResultShape("/ask", &models.IterativeResult{Answer: "x"})
	assert.True(t, ok)
}
