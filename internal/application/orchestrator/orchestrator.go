// Package orchestrator wires the application-layer services and agents
// into the single entry point every /execute request passes through. It
// sits above both internal/application/services and
// internal/application/agents (which itself depends on services) so that
// dispatching to an agent never has to reach back down into the package
// that builds it.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rssnews/orchestrator/internal/application/agents"
	"github.com/rssnews/orchestrator/internal/application/services"
	"github.com/rssnews/orchestrator/internal/domain/models"
	domainServices "github.com/rssnews/orchestrator/internal/domain/services"
	"github.com/rssnews/orchestrator/internal/infrastructure/logging"
)

// MetricsRecorder is the narrow slice of metrics.Collector the orchestrator
// needs; kept as an interface so tests can substitute a fake.
type MetricsRecorder interface {
	RecordOrchestratorStart(command string)
	RecordOrchestratorSuccess(command string, durationMS int64)
	RecordOrchestratorError(command, errorCode string)
	RecordModelRouterCall(model string, latencyMS int64, costCents float64, tokens int)
}

// CommandOrchestrator is the single entry point every /execute request
// passes through (§4.8). It owns the pipeline: throttle, budget
// construction, experiment-arm assignment, retrieval, per-command agent
// dispatch, evidence sanitization, envelope assembly, and policy
// validation, wrapping everything in metrics and structured logging.
type CommandOrchestrator struct {
	retrieval  domainServices.RetrievalClient
	router     *services.ModelRouter
	experiment *services.ExperimentRouter
	sanitizer  *services.EvidenceSanitizer
	policy     *services.PolicyValidator
	throttle   *services.RequestThrottler
	metrics    MetricsRecorder
	logger     *logging.StructuredLogger

	iterative   *agents.IterativeAgent
	events      *agents.EventsAgent
	graph       *agents.GraphAgent
	forecast    *agents.ForecastAgent
	competitors *agents.CompetitorsAgent
	memory      *agents.MemoryAgent
	synthesis   *agents.SynthesisAgent

	budgetDefaults    BudgetDefaults
	retrievalDefaults RetrievalDefaults
	primaryModel      string
	version           string
}

// BudgetDefaults seeds a fresh per-request Budget ledger.
type BudgetDefaults struct {
	MaxTokens  int
	MaxCents   float64
	MaxSeconds float64
}

// RetrievalDefaults seeds a request's retrieval parameters absent explicit overrides.
type RetrievalDefaults struct {
	KFinal       int
	EnableRerank bool
	WindowDays   int
}

// NewCommandOrchestrator wires every collaborator the orchestrator needs.
func NewCommandOrchestrator(
	retrieval domainServices.RetrievalClient,
	router *services.ModelRouter,
	experiment *services.ExperimentRouter,
	sanitizer *services.EvidenceSanitizer,
	policy *services.PolicyValidator,
	throttle *services.RequestThrottler,
	metrics MetricsRecorder,
	logger *logging.StructuredLogger,
	memoryStore domainServices.MemoryStore,
	budgetDefaults BudgetDefaults,
	retrievalDefaults RetrievalDefaults,
	primaryModel string,
) *CommandOrchestrator {
	return &CommandOrchestrator{
		retrieval:  retrieval,
		router:     router,
		experiment: experiment,
		sanitizer:  sanitizer,
		policy:     policy,
		throttle:   throttle,
		metrics:    metrics,
		logger:     logger,

		iterative:   agents.NewIterativeAgent(router),
		events:      agents.NewEventsAgent(router),
		graph:       agents.NewGraphAgent(router),
		forecast:    agents.NewForecastAgent(router),
		competitors: agents.NewCompetitorsAgent(),
		memory:      agents.NewMemoryAgent(memoryStore, sanitizer),
		synthesis:   agents.NewSynthesisAgent(router),

		budgetDefaults:    budgetDefaults,
		retrievalDefaults: retrievalDefaults,
		primaryModel:      primaryModel,
		version:           "1.0.0",
	}
}

// ExecuteParams bundles the inbound request fields the presentation layer
// parses from the /execute payload.
type ExecuteParams struct {
	Command       string
	Query         string
	CorrelationID string
	UserID        string
	Lang          string
	WindowDays    int
	KFinal        int
	UseRerank     bool
	Sources       []string
	ExperimentID  string

	// /memory-specific
	MemoryOperation models.MemoryOperation
	StoreContent    string
	StoreKind       string
	StoreImportance float64
	StoreTTLDays    int
	StoreRefs       []models.EvidenceRef

	// /synthesize-specific: prior outputs the caller assembled
	PriorOutputs []models.AgentOutput
}

// Execute runs the full pipeline for one request and returns either a
// success envelope or an error envelope; it never returns a Go error for
// a well-formed, recognized command — failures surface as ErrorResponse.
func (o *CommandOrchestrator) Execute(ctx context.Context, p ExecuteParams) (*models.Response, *models.ErrorResponse) {
	start := time.Now()
	o.metrics.RecordOrchestratorStart(p.Command)

	if err := o.throttle.Acquire(ctx); err != nil {
		o.metrics.RecordOrchestratorError(p.Command, string(models.ErrCodeInternal))
		return nil, o.errEnvelope(models.ErrCodeInternal, "the service is at capacity, please retry shortly", err, p.CorrelationID)
	}
	defer o.throttle.Release()

	budget := models.NewBudget(o.budgetDefaults.MaxTokens, o.budgetDefaults.MaxCents, o.budgetDefaults.MaxSeconds)
	bm := services.NewBudgetManager(budget)

	expID, armID, _ := o.experiment.ArmForRequest(p.Command, p.UserID, p.ExperimentID)

	kFinal := p.KFinal
	if kFinal <= 0 {
		kFinal = o.retrievalDefaults.KFinal
	}
	windowDays := p.WindowDays
	if windowDays <= 0 {
		windowDays = o.retrievalDefaults.WindowDays
	}
	useRerank := p.UseRerank || o.retrievalDefaults.EnableRerank

	degraded := bm.Degrade(p.Command, services.DegradedParams{
		Depth:         3,
		HopLimit:      3,
		MaxNodes:      200,
		MaxEdges:      600,
		KFinal:        kFinal,
		DisableRerank: !useRerank,
	})
	if degraded.KFinal > 0 {
		kFinal = degraded.KFinal
	}
	useRerank = useRerank && !degraded.DisableRerank

	var docs []*models.Document
	var err error
	if p.Command != "/memory" || p.MemoryOperation != models.MemoryStore {
		docs, err = o.retrieval.Retrieve(ctx, p.Query, windowDays, p.Lang, kFinal, useRerank, p.Sources)
		if err != nil {
			o.metrics.RecordOrchestratorError(p.Command, string(models.ErrCodeInternal))
			return nil, o.errEnvelope(models.ErrCodeInternal, "retrieval failed", err, p.CorrelationID)
		}
		recall := p.Command == "/memory" && p.MemoryOperation == models.MemoryRecall
		if len(docs) == 0 && requiresEvidence(p.Command) && !recall {
			o.metrics.RecordOrchestratorError(p.Command, string(models.ErrCodeNoData))
			return nil, o.errEnvelope(models.ErrCodeNoData, "no documents matched this query", models.ErrNoData, p.CorrelationID)
		}
	}

	retrieveFn := func(ctx context.Context, query string, windowDays, kFinal int) ([]*models.Document, error) {
		return o.retrieval.Retrieve(ctx, query, windowDays, p.Lang, kFinal, useRerank, p.Sources)
	}

	var (
		result     interface{}
		warnings   []string
		header     string
		tldr       string
		insights   []models.Insight
		confidence = 1.0
	)

	switch p.Command {
	case "/ask":
		r, w := o.iterative.Run(ctx, agents.IterativeParams{
			Query: p.Query, InitialDocs: docs, Depth: orDefault(degraded.Depth, 3),
			DisableSelfCheck: degraded.DisableSelfCheck, Budget: bm, Lang: p.Lang,
			WindowDays: windowDays, Retrieve: retrieveFn,
		})
		warnings = w
		result = r
		header = "Answer"
		tldr = truncate(r.Answer, 220)
		insights = []models.Insight{{Kind: models.InsightFact, Text: truncate(r.Answer, 180), EvidenceRefs: docRefs(docs, 3)}}

	case "/events":
		r, w := o.events.Run(ctx, agents.EventsParams{Docs: docs, Budget: bm, DisableAlternatives: degraded.DisableAlternatives})
		warnings = w
		result = r
		header = "Event Timeline"
		tldr = fmt.Sprintf("%d events, %d causal links identified", len(r.Events), len(r.CausalLinks))
		insights = eventsInsights(r)

	case "/graph":
		r, w := o.graph.Run(ctx, agents.GraphParams{
			Docs: docs, Budget: bm, HopLimit: degraded.HopLimit, MaxNodes: degraded.MaxNodes, MaxEdges: degraded.MaxEdges,
		})
		warnings = w
		result = r
		header = "Relationship Graph"
		tldr = truncate(r.Answer, 220)
		insights = []models.Insight{{Kind: models.InsightFact, Text: truncate(r.Answer, 180), EvidenceRefs: docRefs(docs, 3)}}

	case "/predict":
		r, w := o.forecast.Run(ctx, agents.ForecastParams{Docs: docs, Budget: bm})
		warnings = w
		result = r
		header = "Forecast"
		tldr = fmt.Sprintf("%d topic forecasts generated", len(r.Items))
		insights = forecastInsights(r)

	case "/competitors":
		r := o.competitors.Run(docs)
		result = r
		header = "Competitive Landscape"
		tldr = fmt.Sprintf("%d domains analyzed", len(r.TopDomains))
		insights = competitorsInsights(r)

	case "/synthesize":
		r, w := o.synthesis.Run(ctx, bm, p.PriorOutputs)
		warnings = w
		result = r
		header = "Synthesis"
		tldr = truncate(r.Summary, 220)
		insights = synthesisInsights(r)

	case "/memory":
		r, w := o.memory.Run(ctx, agents.MemoryParams{
			Operation: orMemoryOp(degraded.Operation, p.MemoryOperation), Query: p.Query, UserID: p.UserID,
			Limit: kFinal, MinSimilarity: 0.1, Docs: docs,
			StoreContent: p.StoreContent, StoreKind: p.StoreKind, StoreImportance: p.StoreImportance,
			StoreTTLDays: p.StoreTTLDays, StoreRefs: p.StoreRefs,
		})
		warnings = w
		result = r
		header = "Memory"
		tldr = memoryTLDR(r)
		insights = memoryInsights(r)

	case "/trends", "/analyze":
		agg := &models.AggregateResult{}
		var forecastWarnings, eventWarnings []string

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			agg.Forecast, forecastWarnings = o.forecast.Run(ctx, agents.ForecastParams{Docs: docs, Budget: bm})
		}()
		go func() {
			defer wg.Done()
			agg.Events, eventWarnings = o.events.Run(ctx, agents.EventsParams{Docs: docs, Budget: bm, DisableAlternatives: degraded.DisableAlternatives})
		}()
		agg.Competitors = o.competitors.Run(docs)
		wg.Wait()

		warnings = append(warnings, forecastWarnings...)
		warnings = append(warnings, eventWarnings...)
		result = agg
		header = "Aggregate Analysis"
		tldr = fmt.Sprintf("%d forecasts, %d domains, %d events", len(agg.Forecast.Items), len(agg.Competitors.TopDomains), len(agg.Events.Events))
		insights = forecastInsights(agg.Forecast)

	case "/dashboard", "/reports":
		summaries := make([]models.ExperimentSummary, 0)
		for _, id := range o.experiment.ListActive() {
			if s, err := o.experiment.Summary(id); err == nil {
				summaries = append(summaries, s)
			}
		}
		result = &models.DashboardResult{
			Experiments: summaries,
			Operability: map[string]int{"throttle_in_flight": o.throttle.Stats().InFlight, "throttle_queued": o.throttle.Stats().Queued},
		}
		header = "Dashboard"
		tldr = fmt.Sprintf("%d active experiments", len(summaries))
		insights = []models.Insight{{Kind: models.InsightFact, Text: tldr, EvidenceRefs: []models.EvidenceRef{{Date: "1970-01-01"}}}}

	default:
		o.metrics.RecordOrchestratorError(p.Command, string(models.ErrCodeValidationFailed))
		return nil, o.errEnvelope(models.ErrCodeValidationFailed, "unrecognized command", models.ErrCommandNotFound, p.CorrelationID)
	}

	evidence := buildEvidence(docs)
	sanitized := o.sanitizer.Sanitize(evidence)
	confidence *= sanitized.ConfidenceMultiplier

	resp := &models.Response{
		Header:   header,
		TLDR:     tldr,
		Insights: insights,
		Evidence: sanitized.Evidence,
		Result:   result,
		Warnings: append(warnings, budget.Warnings...),
		Meta: models.Meta{
			Confidence:    confidence,
			Model:         o.primaryModel,
			Version:       o.version,
			CorrelationID: p.CorrelationID,
			Experiment:    expID,
			Arm:           armID,
		},
	}
	if len(resp.Evidence) == 0 {
		resp.Evidence = []models.Evidence{{Title: "no supporting evidence retrieved", Date: "1970-01-01"}}
	}

	if ok, msg := o.policy.Validate(resp); !ok {
		o.metrics.RecordOrchestratorError(p.Command, string(models.ErrCodeValidationFailed))
		return nil, o.errEnvelope(models.ErrCodeValidationFailed, "response failed policy validation", fmt.Errorf("%w: %s", models.ErrValidationFailed, msg), p.CorrelationID)
	}
	if ok, msg := o.policy.ValidateResultShape(p.Command, result); !ok {
		o.metrics.RecordOrchestratorError(p.Command, string(models.ErrCodeValidationFailed))
		return nil, o.errEnvelope(models.ErrCodeValidationFailed, "response failed shape validation", fmt.Errorf("%w: %s", models.ErrValidationFailed, msg), p.CorrelationID)
	}

	if err := budget.CheckExceeded(); err != nil {
		o.logger.WithFields(map[string]interface{}{"command": p.Command, "correlation_id": p.CorrelationID}).Error("budget exceeded after completion", err)
	}

	durationMS := time.Since(start).Milliseconds()
	o.metrics.RecordOrchestratorSuccess(p.Command, durationMS)
	o.metrics.RecordModelRouterCall(resp.Meta.Model, durationMS, budget.SpentCents, budget.SpentTokens)

	if expID != "" {
		o.experiment.Record(expID, armID, "latency_ms", float64(durationMS), nil)
		o.experiment.Record(expID, armID, "confidence", confidence, nil)
	}

	return resp, nil
}

func (o *CommandOrchestrator) errEnvelope(code models.ErrorCode, userMsg string, err error, correlationID string) *models.ErrorResponse {
	return &models.ErrorResponse{
		Code:        code,
		UserMessage: userMsg,
		TechMessage: err.Error(),
		Retryable:   models.Retryable(code),
		Meta: models.Meta{
			Version:       o.version,
			CorrelationID: correlationID,
		},
	}
}

func requiresEvidence(command string) bool {
	switch command {
	case "/dashboard", "/reports":
		return false
	default:
		return true
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orMemoryOp(forced string, requested models.MemoryOperation) models.MemoryOperation {
	if forced == "recall" {
		return models.MemoryRecall
	}
	return requested
}

func docRefs(docs []*models.Document, max int) []models.EvidenceRef {
	if len(docs) > max {
		docs = docs[:max]
	}
	refs := make([]models.EvidenceRef, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, models.EvidenceRef{ArticleID: d.ArticleID, URL: d.URL, Date: d.Date.Format("2006-01-02")})
	}
	return refs
}

func buildEvidence(docs []*models.Document) []models.Evidence {
	out := make([]models.Evidence, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.Evidence{
			Title:     d.Title,
			ArticleID: d.ArticleID,
			URL:       d.URL,
			Date:      d.Date.Format("2006-01-02"),
			Snippet:   truncate(d.Snippet, 240),
		})
	}
	return out
}

func eventsInsights(r *models.EventsResult) []models.Insight {
	var insights []models.Insight
	for i, e := range r.Events {
		if i >= 5 {
			break
		}
		insights = append(insights, models.Insight{Kind: models.InsightFact, Text: truncate(e.Title, 180), EvidenceRefs: nonEmptyRefs(e.Docs)})
	}
	if len(insights) == 0 {
		insights = []models.Insight{{Kind: models.InsightFact, Text: "no distinct events identified in this window", EvidenceRefs: []models.EvidenceRef{{Date: "1970-01-01"}}}}
	}
	return insights
}

func forecastInsights(r *models.ForecastResult) []models.Insight {
	var insights []models.Insight
	for i, item := range r.Items {
		if i >= 5 {
			break
		}
		refs := make([]models.EvidenceRef, 0, len(item.Drivers))
		for _, d := range item.Drivers {
			refs = append(refs, d.Evidence)
		}
		insights = append(insights, models.Insight{
			Kind:         models.InsightHypothesis,
			Text:         truncate(fmt.Sprintf("%s trending %s", item.Topic, item.Direction), 180),
			EvidenceRefs: nonEmptyRefs(refs),
		})
	}
	if len(insights) == 0 {
		insights = []models.Insight{{Kind: models.InsightHypothesis, Text: "insufficient data to forecast any topic", EvidenceRefs: []models.EvidenceRef{{Date: "1970-01-01"}}}}
	}
	return insights
}

func competitorsInsights(r *models.CompetitorsResult) []models.Insight {
	var insights []models.Insight
	for i, p := range r.Positioning {
		if i >= 5 {
			break
		}
		insights = append(insights, models.Insight{
			Kind:         models.InsightFact,
			Text:         truncate(fmt.Sprintf("%s: %s", p.Domain, p.Stance), 180),
			EvidenceRefs: []models.EvidenceRef{{Date: "1970-01-01"}},
		})
	}
	if len(insights) == 0 {
		insights = []models.Insight{{Kind: models.InsightFact, Text: "no domains with sufficient coverage", EvidenceRefs: []models.EvidenceRef{{Date: "1970-01-01"}}}}
	}
	return insights
}

func synthesisInsights(r *models.SynthesisResult) []models.Insight {
	var insights []models.Insight
	for i, a := range r.Actions {
		if i >= 5 {
			break
		}
		insights = append(insights, models.Insight{Kind: models.InsightRecommendation, Text: truncate(a.Recommendation, 180), EvidenceRefs: nonEmptyRefs(a.EvidenceRefs)})
	}
	for _, c := range r.Conflicts {
		if len(insights) >= 5 {
			break
		}
		insights = append(insights, models.Insight{Kind: models.InsightConflict, Text: truncate(c.Description, 180), EvidenceRefs: nonEmptyRefs(c.EvidenceRefs)})
	}
	if len(insights) == 0 {
		insights = []models.Insight{{Kind: models.InsightRecommendation, Text: "no actionable synthesis produced", EvidenceRefs: []models.EvidenceRef{{Date: "1970-01-01"}}}}
	}
	return insights
}

func memoryTLDR(r *models.MemoryResult) string {
	switch r.Operation {
	case models.MemoryStore:
		return "memory record stored"
	case models.MemorySuggest:
		return fmt.Sprintf("%d memory suggestions", len(r.Suggestions))
	default:
		return fmt.Sprintf("%d memories recalled", len(r.Recalled))
	}
}

func memoryInsights(r *models.MemoryResult) []models.Insight {
	var insights []models.Insight
	switch r.Operation {
	case models.MemoryStore:
		if r.Stored != nil {
			insights = append(insights, models.Insight{Kind: models.InsightFact, Text: truncate(r.Stored.Content, 180), EvidenceRefs: []models.EvidenceRef{{Date: "1970-01-01"}}})
		}
	case models.MemorySuggest:
		for i, m := range r.Suggestions {
			if i >= 5 {
				break
			}
			insights = append(insights, models.Insight{Kind: models.InsightFact, Text: truncate(m.Content, 180), EvidenceRefs: []models.EvidenceRef{{Date: "1970-01-01"}}})
		}
	default:
		for i, m := range r.Recalled {
			if i >= 5 {
				break
			}
			insights = append(insights, models.Insight{Kind: models.InsightFact, Text: truncate(m.Content, 180), EvidenceRefs: []models.EvidenceRef{{Date: "1970-01-01"}}})
		}
	}
	if len(insights) == 0 {
		insights = []models.Insight{{Kind: models.InsightFact, Text: "no memory records found", EvidenceRefs: []models.EvidenceRef{{Date: "1970-01-01"}}}}
	}
	return insights
}

func nonEmptyRefs(refs []models.EvidenceRef) []models.EvidenceRef {
	if len(refs) == 0 {
		return []models.EvidenceRef{{Date: "1970-01-01"}}
	}
	return refs
}
