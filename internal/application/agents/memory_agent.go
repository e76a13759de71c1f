package agents

import (
	"context"
	"fmt"

	"github.com/rssnews/orchestrator/internal/application/services"
	"github.com/rssnews/orchestrator/internal/domain/models"
	domainServices "github.com/rssnews/orchestrator/internal/domain/services"
)

// MemoryAgent dispatches on operation: recall, suggest, or store (§4.4).
type MemoryAgent struct {
	store     domainServices.MemoryStore
	sanitizer *services.EvidenceSanitizer
}

// NewMemoryAgent constructs a MemoryAgent over the given store.
func NewMemoryAgent(store domainServices.MemoryStore, sanitizer *services.EvidenceSanitizer) *MemoryAgent {
	return &MemoryAgent{store: store, sanitizer: sanitizer}
}

// MemoryParams bundles the inputs to Run.
type MemoryParams struct {
	Operation     models.MemoryOperation
	Query         string
	UserID        string
	Limit         int
	MinSimilarity float64
	Docs          []*models.Document
	StoreContent  string
	StoreKind     string
	StoreImportance float64
	StoreTTLDays    int
	StoreRefs       []models.EvidenceRef
}

// Run executes the requested memory operation.
func (a *MemoryAgent) Run(ctx context.Context, p MemoryParams) (*models.MemoryResult, []string) {
	var warnings []string

	switch p.Operation {
	case models.MemoryRecall:
		records, err := a.store.Recall(ctx, p.Query, p.UserID, p.Limit, p.MinSimilarity)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("recall failed: %v", err))
			return &models.MemoryResult{Operation: models.MemoryRecall}, warnings
		}
		return &models.MemoryResult{Operation: models.MemoryRecall, Recalled: records}, warnings

	case models.MemorySuggest:
		records, err := a.store.Suggest(ctx, p.Docs, p.Limit)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("suggest failed: %v", err))
			return &models.MemoryResult{Operation: models.MemorySuggest}, warnings
		}
		return &models.MemoryResult{Operation: models.MemorySuggest, Suggestions: records}, warnings

	case models.MemoryStore:
		// Never persist raw PII, and bound length the same way evidence snippets are (§4.5 check 1).
		sanitized := a.sanitizer.Sanitize([]models.Evidence{{Title: "", Snippet: truncate(p.StoreContent, 240), Date: "1970-01-01"}})
		content := truncate(p.StoreContent, 240)
		if len(sanitized.Evidence) > 0 {
			content = sanitized.Evidence[0].Snippet
		}

		id, err := a.store.Store(ctx, content, p.StoreKind, p.StoreImportance, p.StoreTTLDays, p.StoreRefs, p.UserID)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("store failed: %v", err))
			return &models.MemoryResult{Operation: models.MemoryStore}, warnings
		}
		return &models.MemoryResult{Operation: models.MemoryStore, Stored: &models.MemoryRecord{
			ID: id, Content: content, Kind: p.StoreKind, Importance: p.StoreImportance,
			TTLDays: p.StoreTTLDays, Refs: refArticleIDs(p.StoreRefs), UserID: p.UserID,
		}}, warnings

	default:
		warnings = append(warnings, fmt.Sprintf("unknown memory operation %q, defaulting to recall", p.Operation))
		records, _ := a.store.Recall(ctx, p.Query, p.UserID, p.Limit, p.MinSimilarity)
		return &models.MemoryResult{Operation: models.MemoryRecall, Recalled: records}, warnings
	}
}

func refArticleIDs(refs []models.EvidenceRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.ArticleID)
	}
	return out
}
