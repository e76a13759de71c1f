package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rssnews/orchestrator/internal/domain/models"
)

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// PolicyValidator is the post-hoc gate on every response envelope: length
// limits, evidence-required, PII, domain trust, and per-command result
// shape checks. It fails fast on the first violation.
type PolicyValidator struct {
	domains DomainLists
}

// NewPolicyValidator constructs a validator over the given domain lists.
func NewPolicyValidator(domains DomainLists) *PolicyValidator {
	return &PolicyValidator{domains: domains}
}

// Validate runs every envelope-level check in order, returning (true, "")
// on success or (false, message) naming the first failure. Validate is
// idempotent: two calls against the same unchanged envelope return the
// same verdict.
func (v *PolicyValidator) Validate(resp *models.Response) (bool, string) {
	if ok, msg := v.checkLengths(resp); !ok {
		return false, msg
	}
	if ok, msg := v.checkEvidenceRequired(resp); !ok {
		return false, msg
	}
	if ok, msg := v.checkPII(resp); !ok {
		return false, msg
	}
	if ok, msg := v.checkDomainSafety(resp); !ok {
		return false, msg
	}
	if ok, msg := v.checkRequiredFields(resp); !ok {
		return false, msg
	}
	return true, ""
}

func (v *PolicyValidator) checkLengths(resp *models.Response) (bool, string) {
	if len(resp.Header) > 100 {
		return false, "header exceeds 100 characters"
	}
	if len(resp.TLDR) > 220 {
		return false, "tldr exceeds 220 characters"
	}
	if len(resp.Insights) < 1 || len(resp.Insights) > 5 {
		return false, fmt.Sprintf("insights count %d outside [1,5]", len(resp.Insights))
	}
	for i, ins := range resp.Insights {
		if len(ins.Text) > 180 {
			return false, fmt.Sprintf("insight[%d] text exceeds 180 characters", i)
		}
	}
	for i, e := range resp.Evidence {
		if len(e.Snippet) > 240 {
			return false, fmt.Sprintf("evidence[%d] snippet exceeds 240 characters", i)
		}
		if len(e.Title) > 200 {
			return false, fmt.Sprintf("evidence[%d] title exceeds 200 characters", i)
		}
	}
	return true, ""
}

func (v *PolicyValidator) checkEvidenceRequired(resp *models.Response) (bool, string) {
	for i, ins := range resp.Insights {
		if len(ins.EvidenceRefs) < 1 {
			return false, fmt.Sprintf("insight[%d] has no evidence refs", i)
		}
		for j, ref := range ins.EvidenceRefs {
			if !isoDatePattern.MatchString(ref.Date) {
				return false, fmt.Sprintf("insight[%d].evidence_refs[%d] date %q is not YYYY-MM-DD", i, j, ref.Date)
			}
		}
	}
	return true, ""
}

func (v *PolicyValidator) checkPII(resp *models.Response) (bool, string) {
	if ContainsPII(resp.TLDR) {
		return false, "tldr contains PII"
	}
	for i, ins := range resp.Insights {
		if ContainsPII(ins.Text) {
			return false, fmt.Sprintf("insight[%d] contains PII", i)
		}
	}
	for i, e := range resp.Evidence {
		if ContainsPII(e.Snippet) {
			return false, fmt.Sprintf("evidence[%d] snippet contains PII", i)
		}
	}
	return true, ""
}

func (v *PolicyValidator) checkDomainSafety(resp *models.Response) (bool, string) {
	for i, e := range resp.Evidence {
		if e.URL == "" {
			continue
		}
		if !strings.HasPrefix(e.URL, "http://") && !strings.HasPrefix(e.URL, "https://") {
			return false, fmt.Sprintf("evidence[%d] url does not start with http(s)://", i)
		}
		if v.domains.IsBlacklisted(e.URL) {
			return false, fmt.Sprintf("evidence[%d] url is from a blacklisted domain", i)
		}
	}
	return true, ""
}

func (v *PolicyValidator) checkRequiredFields(resp *models.Response) (bool, string) {
	if resp.Header == "" {
		return false, "header is required"
	}
	if resp.TLDR == "" {
		return false, "tldr is required"
	}
	if len(resp.Insights) == 0 {
		return false, "at least one insight is required"
	}
	if len(resp.Evidence) == 0 {
		return false, "at least one evidence item is required"
	}
	if resp.Result == nil {
		return false, "result is required"
	}
	if resp.Meta.Model == "" {
		return false, "meta.model is required"
	}
	if resp.Meta.CorrelationID == "" {
		return false, "meta.correlation_id is required"
	}
	return true, ""
}

// ValidateResultShape checks command-specific invariants named in §3 that
// the generic envelope checks above cannot express.
func (v *PolicyValidator) ValidateResultShape(variant string, result interface{}) (bool, string) {
	switch variant {
	case "/synthesize":
		r, ok := result.(*models.SynthesisResult)
		if !ok {
			return false, "synthesis result has wrong type"
		}
		if len(r.Actions) == 0 {
			return false, "synthesis.actions must be non-empty"
		}
		for i, c := range r.Conflicts {
			if len(c.EvidenceRefs) < 2 {
				return false, fmt.Sprintf("synthesis.conflicts[%d] requires >=2 evidence refs", i)
			}
		}
	case "/predict":
		r, ok := result.(*models.ForecastResult)
		if !ok {
			return false, "forecast result has wrong type"
		}
		for i, item := range r.Items {
			if item.ConfidenceInterval.Lower > item.ConfidenceInterval.Upper {
				return false, fmt.Sprintf("forecast.items[%d] confidence_interval lower > upper", i)
			}
			if len(item.Drivers) == 0 {
				return false, fmt.Sprintf("forecast.items[%d] requires >=1 driver", i)
			}
		}
	case "/competitors":
		r, ok := result.(*models.CompetitorsResult)
		if !ok {
			return false, "competitors result has wrong type"
		}
		if len(r.Positioning) > 0 && len(r.TopDomains) == 0 {
			return false, "competitors.top_domains must be non-empty when positioning is present"
		}
	}
	return true, ""
}
