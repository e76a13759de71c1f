package services

import (
	"context"

	"github.com/rssnews/orchestrator/internal/domain/models"
)

// RetrievalClient is the external collaborator that turns a query into an
// ordered list of candidate documents. The production vector/full-text
// backend is out of scope; a deterministic in-process reference
// implementation lives in internal/infrastructure/retrieval and is good
// enough to exercise every orchestrator path.
type RetrievalClient interface {
	Retrieve(ctx context.Context, query string, windowDays int, lang string, kFinal int, useRerank bool, sources []string) ([]*models.Document, error)
}
