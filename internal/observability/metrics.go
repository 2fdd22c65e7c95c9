package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting application
// metrics. It is built on Prometheus and tracks turn throughput, per-node
// latency inside the Graph Runtime, tool execution outcomes and latency,
// active session count, and errors by kind, following the teacher's
// promauto-registered CounterVec/HistogramVec/GaugeVec pattern with the
// label set re-scoped from channel/provider concerns to this system's
// turn/node/tool domain.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	defer metrics.NodeDuration("tool_execute").Observe(time.Since(start).Seconds())
type Metrics struct {
	// TurnsTotal counts completed turns by outcome.
	// Labels: outcome (completed|paused|error)
	TurnsTotal *prometheus.CounterVec

	// NodeDurationSeconds measures Graph Runtime node evaluation latency.
	// Labels: node (input_assembly|intent_classify|tool_select|
	// tool_execute|result_classify|error_handler|synthesize)
	// Buckets: 0.01s, 0.05s, 0.1s, 0.5s, 1s, 2s, 5s, 10s, 30s
	NodeDurationSeconds *prometheus.HistogramVec

	// ToolExecutionsTotal counts tool invocations by tool name and outcome.
	// Labels: tool_name, status (success|error)
	ToolExecutionsTotal *prometheus.CounterVec

	// ToolExecutionDurationSeconds measures tool execution latency.
	// Labels: tool_name
	// Buckets: 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s, 10s, 30s, 60s
	ToolExecutionDurationSeconds *prometheus.HistogramVec

	// ToolLoopIterations records how many tool-loop iterations a turn
	// took before reaching synthesize, one observation per completed turn.
	// Buckets: 0, 1, 2, 3, 4, 5 (the default hard ceiling)
	ToolLoopIterations prometheus.Histogram

	// ActiveSessions is a gauge tracking sessions currently mid-turn.
	ActiveSessions prometheus.Gauge

	// ApprovalsTotal counts tool-approval decisions.
	// Labels: decision (approved|rejected)
	ApprovalsTotal *prometheus.CounterVec

	// ErrorsTotal tracks terminal error events by kind (spec §4.D's
	// ErrorKind enum: schema_violation|internal|cancelled).
	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics. This should be
// called once at application startup; all metrics register with
// Prometheus's default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		TurnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docgemma_turns_total",
				Help: "Total number of turns by outcome",
			},
			[]string{"outcome"},
		),

		NodeDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docgemma_node_duration_seconds",
				Help:    "Duration of Graph Runtime node evaluations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"node"},
		),

		ToolExecutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docgemma_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolExecutionDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docgemma_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),

		ToolLoopIterations: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docgemma_tool_loop_iterations",
				Help:    "Number of tool-loop iterations a turn took before reaching synthesis",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "docgemma_active_sessions",
				Help: "Current number of sessions with a turn in progress",
			},
		),

		ApprovalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docgemma_approvals_total",
				Help: "Total number of tool-approval decisions by outcome",
			},
			[]string{"decision"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docgemma_errors_total",
				Help: "Total number of terminal error events by kind",
			},
			[]string{"kind"},
		),
	}
}

// RecordTurn increments the turn counter for outcome (completed|paused|error)
// and, for a terminal outcome, observes the tool-loop iteration count.
func (m *Metrics) RecordTurn(outcome string, toolLoopIterations int) {
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	if outcome != "paused" {
		m.ToolLoopIterations.Observe(float64(toolLoopIterations))
	}
}

// NodeDuration returns the observer for nodeID's latency histogram.
func (m *Metrics) NodeDuration(nodeID string) prometheus.Observer {
	return m.NodeDurationSeconds.WithLabelValues(nodeID)
}

// RecordToolExecution records a tool invocation's outcome and latency.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionsTotal.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDurationSeconds.WithLabelValues(toolName).Observe(durationSeconds)
}

// SessionStarted increments the active-sessions gauge.
func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

// SessionEnded decrements the active-sessions gauge.
func (m *Metrics) SessionEnded() {
	m.ActiveSessions.Dec()
}

// RecordApproval records a clinician's tool-approval decision.
func (m *Metrics) RecordApproval(approved bool) {
	decision := "rejected"
	if approved {
		decision = "approved"
	}
	m.ApprovalsTotal.WithLabelValues(decision).Inc()
}

// RecordError increments the error counter for kind (schema_violation|
// internal|cancelled).
func (m *Metrics) RecordError(kind string) {
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}
