package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting application metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - Chat turn throughput and outcomes
//   - LLM request performance and token consumption
//   - Tool execution patterns and latencies
//   - Verification mismatches and extraction fallbacks
//   - HTTP request latency
type Metrics struct {
	// TurnCounter counts processed chat turns.
	// Labels: status (success|error)
	TurnCounter *prometheus.CounterVec

	// LLMRequestDuration measures LLM API call latency in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM requests.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// VerificationMismatchCounter counts post-mutation read-backs that did
	// not match the expected state, by tool and final outcome.
	// Labels: tool_name, outcome (recovered|failed)
	VerificationMismatchCounter *prometheus.CounterVec

	// ExtractionFallbackCounter counts turns where invocations had to be
	// recovered from free text instead of structured output.
	ExtractionFallbackCounter prometheus.Counter

	// ErrorCounter tracks errors by component and error type.
	// Labels: component (agent|tool|storage|gateway), error_type
	ErrorCounter *prometheus.CounterVec

	// HTTPRequestDuration measures HTTP API request latency.
	// Labels: method, path, status_code
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestCounter counts HTTP requests.
	// Labels: method, path, status_code
	HTTPRequestCounter *prometheus.CounterVec

	// RemindersSent counts reminder notifications dispatched.
	RemindersSent prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics with the default
// registry. Call once at application startup.
func NewMetrics() *Metrics {
	return &Metrics{
		TurnCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskpilot_turns_total",
				Help: "Total number of chat turns processed by status",
			},
			[]string{"status"},
		),

		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskpilot_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskpilot_llm_requests_total",
				Help: "Total number of LLM requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskpilot_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskpilot_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool_name"},
		),

		VerificationMismatchCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskpilot_verification_mismatches_total",
				Help: "Total number of post-mutation read-back mismatches by tool and outcome",
			},
			[]string{"tool_name", "outcome"},
		),

		ExtractionFallbackCounter: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskpilot_extraction_fallbacks_total",
				Help: "Total number of turns where tool calls were recovered from free text",
			},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskpilot_errors_total",
				Help: "Total number of errors by component and error type",
			},
			[]string{"component", "error_type"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskpilot_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskpilot_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),

		RemindersSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskpilot_reminders_sent_total",
				Help: "Total number of reminder notifications dispatched",
			},
		),
	}
}

// RecordTurn increments the turn counter.
func (m *Metrics) RecordTurn(status string) {
	m.TurnCounter.WithLabelValues(status).Inc()
}

// RecordLLMRequest records metrics for one LLM API request.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
}

// RecordToolExecution records metrics for one tool execution.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordVerificationMismatch records a read-back mismatch and whether the
// retry recovered it.
func (m *Metrics) RecordVerificationMismatch(toolName, outcome string) {
	m.VerificationMismatchCounter.WithLabelValues(toolName, outcome).Inc()
}

// RecordExtractionFallback records a turn that fell back to text extraction.
func (m *Metrics) RecordExtractionFallback() {
	m.ExtractionFallbackCounter.Inc()
}

// RecordError increments the error counter for a component and error type.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}

// RecordHTTPRequest records metrics for one HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	m.HTTPRequestCounter.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
}
