// Package api exposes the orchestrator over HTTP: a single /execute
// command endpoint plus health and metrics surfaces.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/rssnews/orchestrator/internal/application/orchestrator"
	"github.com/rssnews/orchestrator/internal/domain/models"
	"github.com/rssnews/orchestrator/internal/infrastructure/config"
	"github.com/rssnews/orchestrator/internal/infrastructure/logging"
	"github.com/rssnews/orchestrator/internal/infrastructure/metrics"
)

// Handler serves the command API.
type Handler struct {
	orchestrator *orchestrator.CommandOrchestrator
	config       *config.Config
	logger       *logging.StructuredLogger
	exporter     *metrics.PrometheusExporter
}

// NewHandler constructs a Handler.
func NewHandler(orch *orchestrator.CommandOrchestrator, cfg *config.Config, logger *logging.StructuredLogger, exporter *metrics.PrometheusExporter) *Handler {
	return &Handler{orchestrator: orch, config: cfg, logger: logger, exporter: exporter}
}

// executeRequest is the JSON body accepted by POST /execute.
type executeRequest struct {
	Command         string              `json:"command"`
	Query           string              `json:"query"`
	UserID          string              `json:"user_id"`
	Lang            string              `json:"lang"`
	WindowDays      int                 `json:"window_days"`
	KFinal          int                 `json:"k_final"`
	UseRerank       bool                `json:"use_rerank"`
	Sources         []string            `json:"sources"`
	ExperimentID    string              `json:"experiment_id"`
	MemoryOperation string              `json:"memory_operation"`
	StoreContent    string              `json:"store_content"`
	StoreKind       string              `json:"store_kind"`
	StoreImportance float64             `json:"store_importance"`
	StoreTTLDays    int                 `json:"store_ttl_days"`
	StoreRefs       []models.EvidenceRef `json:"store_refs"`
	PriorOutputs    []models.AgentOutput `json:"prior_outputs"`
}

// Execute handles POST /execute, the single entry point for every command
// in §4.8's dispatch table.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, &models.ErrorResponse{
			Code:        models.ErrCodeValidationFailed,
			UserMessage: "request body is not valid JSON",
			TechMessage: err.Error(),
			Retryable:   false,
		})
		return
	}
	if req.Command == "" {
		h.writeError(w, http.StatusBadRequest, &models.ErrorResponse{
			Code:        models.ErrCodeValidationFailed,
			UserMessage: "command is required",
			TechMessage: "missing field: command",
			Retryable:   false,
		})
		return
	}

	correlationID := r.Header.Get("X-Correlation-ID")
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	resp, errResp := h.orchestrator.Execute(r.Context(), orchestrator.ExecuteParams{
		Command:         req.Command,
		Query:           req.Query,
		CorrelationID:   correlationID,
		UserID:          req.UserID,
		Lang:            req.Lang,
		WindowDays:      req.WindowDays,
		KFinal:          req.KFinal,
		UseRerank:       req.UseRerank,
		Sources:         req.Sources,
		ExperimentID:    req.ExperimentID,
		MemoryOperation: models.MemoryOperation(req.MemoryOperation),
		StoreContent:    req.StoreContent,
		StoreKind:       req.StoreKind,
		StoreImportance: req.StoreImportance,
		StoreTTLDays:    req.StoreTTLDays,
		StoreRefs:       req.StoreRefs,
		PriorOutputs:    req.PriorOutputs,
	})
	if errResp != nil {
		h.writeError(w, statusForCode(errResp.Code), errResp)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Correlation-ID", correlationID)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode response", err, map[string]interface{}{"correlation_id": correlationID})
	}
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Metrics handles GET /metrics, serving the Prometheus text exposition format.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(h.exporter.Export()))
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errResp *models.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errResp)
}

func statusForCode(code models.ErrorCode) int {
	switch code {
	case models.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case models.ErrCodeNoData:
		return http.StatusNotFound
	case models.ErrCodeBudgetExceeded:
		return http.StatusPaymentRequired
	case models.ErrCodeModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
