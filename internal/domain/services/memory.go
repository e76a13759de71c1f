package services

import (
	"context"

	"github.com/rssnews/orchestrator/internal/domain/models"
)

// MemoryStore is the external collaborator backing the memory agent.
// The reference implementation is Redis-backed (internal/infrastructure/memorystore);
// a production vector-similarity backend is out of scope.
type MemoryStore interface {
	Store(ctx context.Context, content string, kind string, importance float64, ttlDays int, refs []models.EvidenceRef, userID string) (id string, err error)
	Recall(ctx context.Context, query string, userID string, limit int, minSimilarity float64) ([]models.MemoryRecord, error)
	Suggest(ctx context.Context, docs []*models.Document, max int) ([]models.MemoryRecord, error)
}

// EmbeddingsService is the external collaborator the memory agent uses to
// rank recall candidates. A deterministic stub (internal/infrastructure/memorystore)
// stands in for the real embedding backend.
type EmbeddingsService interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}
