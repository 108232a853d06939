package agent

import "github.com/distlock/txagent/logger"

// Metrics records counters, gauges, and histograms for the agent's
// decision engine. There is no third-party metrics dependency in this
// module (no prometheus import anywhere in go.mod or source), so this
// stays a hand-rolled interface rather than reaching for an external
// metrics library; see DESIGN.md.
type Metrics interface {
	IncCounter(name string, labels ...string)
	AddCounter(name string, delta float64, labels ...string)
	SetGauge(name string, value float64, labels ...string)
	ObserveHistogram(name string, value float64, labels ...string)

	// Domain-specific observations, one per stage of the decision
	// engine's pipeline.
	ObserveRequestNormalized(outcome string)
	ObserveLockIngested(outdated bool)
	ObserveReadinessSweep(satisfiedCount, pendingCount int)
	ObserveDeadlockScan(cyclesFound int)
	ObserveSurrender(voluntary bool)
	ObserveAbort(cause AbortCause)
}

// NoOpMetrics discards every observation. It is the default when a caller
// does not wire a real Metrics implementation.
type NoOpMetrics struct{}

var _ Metrics = NoOpMetrics{}

func (NoOpMetrics) IncCounter(name string, labels ...string)                      {}
func (NoOpMetrics) AddCounter(name string, delta float64, labels ...string)       {}
func (NoOpMetrics) SetGauge(name string, value float64, labels ...string)         {}
func (NoOpMetrics) ObserveHistogram(name string, value float64, labels ...string) {}
func (NoOpMetrics) ObserveRequestNormalized(outcome string)                       {}
func (NoOpMetrics) ObserveLockIngested(outdated bool)                             {}
func (NoOpMetrics) ObserveReadinessSweep(satisfiedCount, pendingCount int)        {}
func (NoOpMetrics) ObserveDeadlockScan(cyclesFound int)                          {}
func (NoOpMetrics) ObserveSurrender(voluntary bool)                              {}
func (NoOpMetrics) ObserveAbort(cause AbortCause)                                {}

// LoggingMetrics records every observation as a structured log line
// instead of a counter/gauge store, for deployments that want the
// Observability.EnableMetrics feature flag to mean something without
// pulling in a metrics backend.
type LoggingMetrics struct {
	log logger.Logger
}

// NewLoggingMetrics builds a LoggingMetrics that writes through log.
func NewLoggingMetrics(log logger.Logger) *LoggingMetrics {
	return &LoggingMetrics{log: log.WithComponent("metrics")}
}

var _ Metrics = (*LoggingMetrics)(nil)

func (m *LoggingMetrics) IncCounter(name string, labels ...string) {
	m.log.Debugw("counter", "name", name, "delta", 1, "labels", labels)
}

func (m *LoggingMetrics) AddCounter(name string, delta float64, labels ...string) {
	m.log.Debugw("counter", "name", name, "delta", delta, "labels", labels)
}

func (m *LoggingMetrics) SetGauge(name string, value float64, labels ...string) {
	m.log.Debugw("gauge", "name", name, "value", value, "labels", labels)
}

func (m *LoggingMetrics) ObserveHistogram(name string, value float64, labels ...string) {
	m.log.Debugw("histogram", "name", name, "value", value, "labels", labels)
}

func (m *LoggingMetrics) ObserveRequestNormalized(outcome string) {
	m.log.Debugw("request_normalized", "outcome", outcome)
}

func (m *LoggingMetrics) ObserveLockIngested(outdated bool) {
	m.log.Debugw("lock_ingested", "outdated", outdated)
}

func (m *LoggingMetrics) ObserveReadinessSweep(satisfiedCount, pendingCount int) {
	m.log.Debugw("readiness_sweep", "satisfied", satisfiedCount, "pending", pendingCount)
}

func (m *LoggingMetrics) ObserveDeadlockScan(cyclesFound int) {
	m.log.Debugw("deadlock_scan", "cycles_found", cyclesFound)
}

func (m *LoggingMetrics) ObserveSurrender(voluntary bool) {
	m.log.Debugw("surrender", "voluntary", voluntary)
}

func (m *LoggingMetrics) ObserveAbort(cause AbortCause) {
	m.log.Debugw("abort", "cause", cause)
}
