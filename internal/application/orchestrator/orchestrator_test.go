package orchestrator

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rssnews/orchestrator/internal/application/services"
	"github.com/rssnews/orchestrator/internal/domain/models"
	domainServices "github.com/rssnews/orchestrator/internal/domain/services"
	"github.com/rssnews/orchestrator/internal/infrastructure/logging"
	"github.com/rssnews/orchestrator/internal/infrastructure/providers"
	"github.com/rssnews/orchestrator/internal/infrastructure/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetrics struct {
	starts    []string
	successes []string
	errors    []string
}

func (f *fakeMetrics) RecordOrchestratorStart(command string) { f.starts = append(f.starts, command) }
func (f *fakeMetrics) RecordOrchestratorSuccess(command string, durationMS int64) {
	f.successes = append(f.successes, command)
}
func (f *fakeMetrics) RecordOrchestratorError(command, errorCode string) {
	f.errors = append(f.errors, command+":"+errorCode)
}
func (f *fakeMetrics) RecordModelRouterCall(model string, latencyMS int64, costCents float64, tokens int) {
}

func sampleDocs() []*models.Document {
	now := time.Now()
	return []*models.Document{
		{ArticleID: "a1", Title: "Fed raises rates", URL: "https://reuters.com/a1", Date: now.AddDate(0, 0, -2), Score: 0.9, Snippet: "The Fed raised rates again.", Entities: []string{"federal reserve"}},
		{ArticleID: "a2", Title: "Markets react to Fed", URL: "https://bloomberg.com/a2", Date: now.AddDate(0, 0, -1), Score: 0.8, Snippet: "Markets dipped after the announcement.", Entities: []string{"federal reserve", "s&p 500"}},
	}
}

func newTestOrchestrator(t *testing.T, docs []*models.Document) (*CommandOrchestrator, *fakeMetrics) {
	t.Helper()
	registry := map[string]domainServices.LLMProvider{"mock": providers.NewMockProvider()}
	router := services.NewModelRouter(registry, nil)
	experiment := services.NewExperimentRouter()
	sanitizer := services.NewEvidenceSanitizer(services.DefaultDomainLists())
	policy := services.NewPolicyValidator(services.DefaultDomainLists())
	throttle := services.NewRequestThrottler(4)
	logger := logging.NewStructuredLogger(io.Discard, logging.ErrorLevel)
	metrics := &fakeMetrics{}
	client := retrieval.NewInMemoryClient(docs)

	orch := NewCommandOrchestrator(
		client, router, experiment, sanitizer, policy, throttle, metrics, logger,
		&fakeMemoryStore{}, // unused outside the /memory test below
		BudgetDefaults{MaxTokens: 1_000_000, MaxCents: 1000, MaxSeconds: 1000},
		RetrievalDefaults{KFinal: 10, EnableRerank: false, WindowDays: 30},
		"gpt-5",
	)
	return orch, metrics
}

// fakeMemoryStore is an in-process double for domainServices.MemoryStore,
// avoiding a real Redis dependency in orchestrator-level tests.
type fakeMemoryStore struct {
	stored []string
}

func (f *fakeMemoryStore) Store(ctx context.Context, content, kind string, importance float64, ttlDays int, refs []models.EvidenceRef, userID string) (string, error) {
	f.stored = append(f.stored, content)
	return "rec-1", nil
}

func (f *fakeMemoryStore) Recall(ctx context.Context, query, userID string, limit int, minSimilarity float64) ([]models.MemoryRecord, error) {
	return nil, nil
}

func (f *fakeMemoryStore) Suggest(ctx context.Context, docs []*models.Document, max int) ([]models.MemoryRecord, error) {
	return nil, nil
}

func TestCommandOrchestrator_Execute_Ask(t *testing.T) {
	orch, metrics := newTestOrchestrator(t, sampleDocs())

	resp, errResp := orch.Execute(context.Background(), ExecuteParams{
		Command: "/ask", Query: "what happened with rates?", CorrelationID: "c1", Lang: "en",
	})

	require.Nil(t, errResp)
	require.NotNil(t, resp)
	assert.Equal(t, "Answer", resp.Header)
	assert.NotEmpty(t, resp.Evidence)
	assert.Contains(t, metrics.successes, "/ask")
}

func TestCommandOrchestrator_Execute_NoDataReturnsErrorEnvelope(t *testing.T) {
	orch, metrics := newTestOrchestrator(t, nil)

	resp, errResp := orch.Execute(context.Background(), ExecuteParams{
		Command: "/ask", Query: "anything", CorrelationID: "c2",
	})

	assert.Nil(t, resp)
	require.NotNil(t, errResp)
	assert.Equal(t, models.ErrCodeNoData, errResp.Code)
	assert.Contains(t, metrics.errors, "/ask:NO_DATA")
}

func TestCommandOrchestrator_Execute_UnrecognizedCommand(t *testing.T) {
	orch, _ := newTestOrchestrator(t, sampleDocs())

	resp, errResp := orch.Execute(context.Background(), ExecuteParams{
		Command: "/bogus", Query: "x", CorrelationID: "c3",
	})

	assert.Nil(t, resp)
	require.NotNil(t, errResp)
	assert.Equal(t, models.ErrCodeValidationFailed, errResp.Code)
}

func TestCommandOrchestrator_Execute_TrendsRunsAgentsConcurrentlyAndAggregates(t *testing.T) {
	orch, _ := newTestOrchestrator(t, sampleDocs())

	resp, errResp := orch.Execute(context.Background(), ExecuteParams{
		Command: "/trends", Query: "fed policy", CorrelationID: "c4",
	})

	require.Nil(t, errResp)
	require.NotNil(t, resp)
	agg, ok := resp.Result.(*models.AggregateResult)
	require.True(t, ok)
	assert.NotNil(t, agg.Forecast)
	assert.NotNil(t, agg.Events)
	assert.NotNil(t, agg.Competitors)
	assert.Equal(t, "Aggregate Analysis", resp.Header)
}

func TestCommandOrchestrator_Execute_AnalyzeAliasesTrends(t *testing.T) {
	orch, _ := newTestOrchestrator(t, sampleDocs())

	resp, errResp := orch.Execute(context.Background(), ExecuteParams{
		Command: "/analyze", Query: "fed policy", CorrelationID: "c5",
	})

	require.Nil(t, errResp)
	require.NotNil(t, resp)
	assert.Equal(t, "Aggregate Analysis", resp.Header)
}

func TestCommandOrchestrator_Execute_Competitors(t *testing.T) {
	orch, _ := newTestOrchestrator(t, sampleDocs())

	resp, errResp := orch.Execute(context.Background(), ExecuteParams{
		Command: "/competitors", Query: "fed policy", CorrelationID: "c6",
	})

	require.Nil(t, errResp)
	require.NotNil(t, resp)
	assert.Equal(t, "Competitive Landscape", resp.Header)
}

func TestCommandOrchestrator_Execute_Dashboard(t *testing.T) {
	orch, _ := newTestOrchestrator(t, sampleDocs())

	resp, errResp := orch.Execute(context.Background(), ExecuteParams{
		Command: "/dashboard", CorrelationID: "c7",
	})

	require.Nil(t, errResp)
	require.NotNil(t, resp)
	assert.Equal(t, "Dashboard", resp.Header)
}

func TestCommandOrchestrator_Execute_MemoryStoreTruncatesLongContent(t *testing.T) {
	registry := map[string]domainServices.LLMProvider{"mock": providers.NewMockProvider()}
	router := services.NewModelRouter(registry, nil)
	experiment := services.NewExperimentRouter()
	sanitizer := services.NewEvidenceSanitizer(services.DefaultDomainLists())
	policy := services.NewPolicyValidator(services.DefaultDomainLists())
	throttle := services.NewRequestThrottler(4)
	logger := logging.NewStructuredLogger(io.Discard, logging.ErrorLevel)
	metrics := &fakeMetrics{}
	memStore := &fakeMemoryStore{}
	client := retrieval.NewInMemoryClient(sampleDocs())

	orch := NewCommandOrchestrator(
		client, router, experiment, sanitizer, policy, throttle, metrics, logger,
		memStore,
		BudgetDefaults{MaxTokens: 1_000_000, MaxCents: 1000, MaxSeconds: 1000},
		RetrievalDefaults{KFinal: 10, EnableRerank: false, WindowDays: 30},
		"gpt-5",
	)

	resp, errResp := orch.Execute(context.Background(), ExecuteParams{
		Command:         "/memory",
		MemoryOperation: models.MemoryStore,
		StoreContent:    "a very long note that exceeds the two hundred forty character evidence snippet bound by quite a margin, repeated repeated repeated repeated repeated repeated repeated repeated repeated repeated repeated repeated content to push well past the limit",
		UserID:          "u1",
		CorrelationID:   "c8",
	})

	require.Nil(t, errResp)
	require.NotNil(t, resp)
	require.Len(t, memStore.stored, 1)
	assert.LessOrEqual(t, len(memStore.stored[0]), 240)
}
