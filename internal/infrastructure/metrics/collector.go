package metrics

import (
	"sync"
	"time"
)

// Collector aggregates orchestrator-run metrics per command and exports
// them through the same MetricsCollectorInterface contract used by the
// Prometheus exporter.
//
// Tracked metrics (§6.1):
//   - orchestrator_start / orchestrator_success / orchestrator_error (by command)
//   - model_router_latency_ms / model_router_cost_cents (by model)
type Collector struct {
	sessionID string
	startTime time.Time

	mu              sync.RWMutex
	commandMetrics  map[string]*CommandMetrics
	modelMetrics    map[string]*ModelMetrics

	totalDuration time.Duration
	totalCostCents float64
	totalTokens    int
}

// CommandMetrics tracks start/success/error counts for one command.
type CommandMetrics struct {
	Command         string
	StartCount      int
	SuccessCount    int
	ErrorCount      int
	TotalDurationMS int64
	AvgDurationMS   int64
	LastErrorCode   string
}

// ModelMetrics tracks router-level latency/cost for one model.
type ModelMetrics struct {
	Model          string
	CallCount      int
	TotalLatencyMS int64
	AvgLatencyMS   int64
	TotalCostCents float64
}

// NewCollector creates a new metrics collector for one orchestrator session.
func NewCollector(sessionID string) *Collector {
	return &Collector{
		sessionID:      sessionID,
		startTime:      time.Now(),
		commandMetrics: make(map[string]*CommandMetrics),
		modelMetrics:   make(map[string]*ModelMetrics),
	}
}

// GetName returns the collector name for metric prefixing.
func (c *Collector) GetName() string {
	return "orchestrator"
}

// RecordOrchestratorStart increments the start counter for a command.
func (c *Collector) RecordOrchestratorStart(command string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.commandOrNew(command)
	m.StartCount++
}

// RecordOrchestratorSuccess increments the success counter and accumulates duration.
func (c *Collector) RecordOrchestratorSuccess(command string, durationMS int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.commandOrNew(command)
	m.SuccessCount++
	m.TotalDurationMS += durationMS
	total := m.SuccessCount + m.ErrorCount
	if total > 0 {
		m.AvgDurationMS = m.TotalDurationMS / int64(total)
	}
	c.totalDuration += time.Duration(durationMS) * time.Millisecond
}

// RecordOrchestratorError increments the error counter for a command.
func (c *Collector) RecordOrchestratorError(command, errorCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.commandOrNew(command)
	m.ErrorCount++
	m.LastErrorCode = errorCode
}

// RecordModelRouterCall records one ModelRouter attempt's latency and cost.
func (c *Collector) RecordModelRouterCall(model string, latencyMS int64, costCents float64, tokens int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.modelMetrics[model]
	if !ok {
		m = &ModelMetrics{Model: model}
		c.modelMetrics[model] = m
	}
	m.CallCount++
	m.TotalLatencyMS += latencyMS
	m.AvgLatencyMS = m.TotalLatencyMS / int64(m.CallCount)
	m.TotalCostCents += costCents

	c.totalCostCents += costCents
	c.totalTokens += tokens
}

func (c *Collector) commandOrNew(command string) *CommandMetrics {
	m, ok := c.commandMetrics[command]
	if !ok {
		m = &CommandMetrics{Command: command}
		c.commandMetrics[command] = m
	}
	return m
}

// GetCommandMetrics returns a copy of the metrics for one command, or nil.
func (c *Collector) GetCommandMetrics(command string) *CommandMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.commandMetrics[command]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

// GetAllCommandMetrics returns a deep copy of every command's metrics.
func (c *Collector) GetAllCommandMetrics() map[string]*CommandMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*CommandMetrics, len(c.commandMetrics))
	for k, v := range c.commandMetrics {
		cp := *v
		result[k] = &cp
	}
	return result
}

// SessionMetrics represents session-level aggregate metrics.
type SessionMetrics struct {
	SessionID       string
	StartTime       time.Time
	TotalDurationMS int64
	TotalStarts     int
	TotalSuccess    int
	TotalErrors     int
	TotalTokens     int
	TotalCostCents  float64
	CommandCount    int
}

// GetSessionMetrics returns session-level aggregate metrics.
func (c *Collector) GetSessionMetrics() SessionMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var starts, success, errs int
	for _, m := range c.commandMetrics {
		starts += m.StartCount
		success += m.SuccessCount
		errs += m.ErrorCount
	}

	return SessionMetrics{
		SessionID:       c.sessionID,
		StartTime:       c.startTime,
		TotalDurationMS: c.totalDuration.Milliseconds(),
		TotalStarts:     starts,
		TotalSuccess:    success,
		TotalErrors:     errs,
		TotalTokens:     c.totalTokens,
		TotalCostCents:  c.totalCostCents,
		CommandCount:    len(c.commandMetrics),
	}
}

// SuccessRate returns the success rate as a percentage (0-100).
func (m *SessionMetrics) SuccessRate() float64 {
	if m.TotalStarts == 0 {
		return 0.0
	}
	return float64(m.TotalSuccess) / float64(m.TotalStarts) * 100.0
}

// ExportPrometheusMetrics implements MetricsCollectorInterface.
func (c *Collector) ExportPrometheusMetrics() []PrometheusMetric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []PrometheusMetric
	for command, m := range c.commandMetrics {
		out = append(out,
			PrometheusMetric{Name: "orchestrator_start", Type: PrometheusCounter, Help: "Orchestrator command invocations", Labels: map[string]string{"command": command}, Value: m.StartCount},
			PrometheusMetric{Name: "orchestrator_success", Type: PrometheusCounter, Help: "Orchestrator successful completions", Labels: map[string]string{"command": command}, Value: m.SuccessCount},
			PrometheusMetric{Name: "orchestrator_error", Type: PrometheusCounter, Help: "Orchestrator failed completions", Labels: map[string]string{"command": command}, Value: m.ErrorCount},
		)
	}
	for model, m := range c.modelMetrics {
		out = append(out,
			PrometheusMetric{Name: "model_router_latency_ms", Type: PrometheusGauge, Help: "Average model call latency in milliseconds", Labels: map[string]string{"model": model}, Value: m.AvgLatencyMS},
			PrometheusMetric{Name: "model_router_cost_cents", Type: PrometheusCounter, Help: "Cumulative model call cost in cents", Labels: map[string]string{"model": model}, Value: m.TotalCostCents},
		)
	}
	return out
}

// Reset clears all metrics (useful for testing or session restart).
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.commandMetrics = make(map[string]*CommandMetrics)
	c.modelMetrics = make(map[string]*ModelMetrics)
	c.totalDuration = 0
	c.totalCostCents = 0
	c.totalTokens = 0
	c.startTime = time.Now()
}
