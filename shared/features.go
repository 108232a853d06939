// Package shared holds cross-cutting feature flags gathered on a single
// configuration surface. cmd/agent reads them while wiring the agent; the
// agent, transport and monitor packages do not import this package.
package shared

// FeatureFlags configures optional behaviors and optimizations for a
// transaction agent and its collaborators.
type FeatureFlags struct {
	Resilience    ResilienceFlags
	Performance   PerformanceFlags
	Observability ObservabilityFlags
}

// ResilienceFlags groups flags about how the agent reacts to node and
// lock-server failures.
type ResilienceFlags struct {
	// EnableNodeWatchers lets the agent spawn a watcher that waits for a
	// downed node's lock server to come back (§4.F, the await_nodes=true
	// path) instead of aborting the transaction outright.
	EnableNodeWatchers bool

	// EnableAdaptiveBackoff is carried in the flag set but read by no code
	// path: requests re-issued after a locks_running(N) recovery event are
	// not staggered by it.
	EnableAdaptiveBackoff bool
}

// PerformanceFlags groups flags that trade strictness for throughput.
type PerformanceFlags struct {
	// EnableReadOptimizedPaths is carried in the flag set but read by no
	// code path: the readiness evaluator recomputes nodes-held on every
	// lock-state event whatever its value.
	EnableReadOptimizedPaths bool
}

// ObservabilityFlags groups flags about what gets recorded and reported.
type ObservabilityFlags struct {
	// EnableMetrics records metrics for request, readiness, and deadlock
	// events.
	EnableMetrics bool
}

// DefaultFeatureFlags returns the default configuration for a transaction
// agent: every flag on (node watchers, adaptive backoff, read-optimized
// paths, metrics).
func DefaultFeatureFlags() *FeatureFlags {
	return &FeatureFlags{
		Resilience: ResilienceFlags{
			EnableNodeWatchers:    true,
			EnableAdaptiveBackoff: true,
		},
		Performance: PerformanceFlags{
			EnableReadOptimizedPaths: true,
		},
		Observability: ObservabilityFlags{
			EnableMetrics: true,
		},
	}
}

// FeatureFlagOption defines a functional option for customizing feature
// flags.
type FeatureFlagOption func(*FeatureFlags)

// WithNodeWatchers toggles EnableNodeWatchers.
func WithNodeWatchers(enabled bool) FeatureFlagOption {
	return func(f *FeatureFlags) { f.Resilience.EnableNodeWatchers = enabled }
}

// WithAdaptiveBackoff toggles EnableAdaptiveBackoff.
func WithAdaptiveBackoff(enabled bool) FeatureFlagOption {
	return func(f *FeatureFlags) { f.Resilience.EnableAdaptiveBackoff = enabled }
}

// WithMetrics toggles EnableMetrics.
func WithMetrics(enabled bool) FeatureFlagOption {
	return func(f *FeatureFlags) { f.Observability.EnableMetrics = enabled }
}

// NewFeatureFlags returns a copy of base with the given options applied.
func NewFeatureFlags(base *FeatureFlags, options ...FeatureFlagOption) *FeatureFlags {
	flags := *base
	for _, option := range options {
		option(&flags)
	}
	return &flags
}
