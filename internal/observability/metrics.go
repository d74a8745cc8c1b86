// Package observability wires the prometheus and OpenTelemetry surfaces
// named in the ambient stack: a small set of counters/gauges for the
// scheduler, circuit breakers, budget, and orchestrator, plus a
// no-exporter tracer provider so reasoning iterations and sub-agent runs
// carry real spans. Grounded on the teacher's
// internal/observability/metrics.go and tracing.go, trimmed to the
// handful of signals this runtime actually emits.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector this runtime registers. A nil *Metrics
// is valid everywhere its methods are called — components that aren't
// wired to a live Metrics instance (tests, one-off tools) simply no-op.
type Metrics struct {
	SchedulerTicks              prometheus.Counter
	SchedulerJobsRun            *prometheus.CounterVec
	CircuitBreakerOpens         *prometheus.CounterVec
	BudgetSpendUSD              *prometheus.GaugeVec
	OrchestratorActiveSubAgents prometheus.Gauge
	OrchestratorSubAgentRuns    *prometheus.CounterVec
}

// NewMetrics registers every collector against the default registry.
// Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		SchedulerTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "osa_scheduler_ticks_total",
			Help: "Total number of cron tick cycles processed.",
		}),
		SchedulerJobsRun: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "osa_scheduler_jobs_run_total",
			Help: "Total number of dispatched scheduler jobs by type and outcome.",
		}, []string{"job_type", "outcome"}),
		CircuitBreakerOpens: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "osa_circuit_breaker_opens_total",
			Help: "Total number of circuit breaker open transitions by component.",
		}, []string{"component"}),
		BudgetSpendUSD: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "osa_budget_spend_usd",
			Help: "Current accumulated spend in USD by window.",
		}, []string{"window"}),
		OrchestratorActiveSubAgents: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "osa_orchestrator_active_sub_agents",
			Help: "Number of sub-agents currently executing.",
		}),
		OrchestratorSubAgentRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "osa_orchestrator_sub_agent_runs_total",
			Help: "Total number of sub-agent runs by tier and outcome.",
		}, []string{"tier", "outcome"}),
	}
}

// Handler exposes the registered collectors for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSchedulerTick counts one cron tick cycle.
func (m *Metrics) RecordSchedulerTick() {
	if m == nil {
		return
	}
	m.SchedulerTicks.Inc()
}

// RecordSchedulerJob counts one dispatched job by type and outcome
// ("ok" or "error").
func (m *Metrics) RecordSchedulerJob(jobType, outcome string) {
	if m == nil {
		return
	}
	m.SchedulerJobsRun.WithLabelValues(jobType, outcome).Inc()
}

// RecordCircuitBreakerOpen counts a closed-to-open transition for the
// named component ("cron:<job_id>" or "heartbeat:<task_title>").
func (m *Metrics) RecordCircuitBreakerOpen(component string) {
	if m == nil {
		return
	}
	m.CircuitBreakerOpens.WithLabelValues(component).Inc()
}

// SetBudgetSpend records the current spend for a window ("daily" or
// "monthly").
func (m *Metrics) SetBudgetSpend(window string, usd float64) {
	if m == nil {
		return
	}
	m.BudgetSpendUSD.WithLabelValues(window).Set(usd)
}

// SubAgentStarted increments the active sub-agent gauge.
func (m *Metrics) SubAgentStarted() {
	if m == nil {
		return
	}
	m.OrchestratorActiveSubAgents.Inc()
}

// SubAgentFinished decrements the active sub-agent gauge and records the
// run's outcome ("ok" or "error") against its tier.
func (m *Metrics) SubAgentFinished(tier, outcome string) {
	if m == nil {
		return
	}
	m.OrchestratorActiveSubAgents.Dec()
	m.OrchestratorSubAgentRuns.WithLabelValues(tier, outcome).Inc()
}
