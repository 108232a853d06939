package monitor

import (
	"time"

	"github.com/distlock/txagent/clock"
	"github.com/distlock/txagent/logger"
	"github.com/distlock/txagent/types"
)

// DefaultPingInterval is how often a watched node is probed absent an
// override.
const DefaultPingInterval = 500 * time.Millisecond

// DefaultFailureThreshold is how many consecutive failed probes mark a
// node down.
const DefaultFailureThreshold = 3

// Option configures a Monitor at construction, the functional-options
// style used across this repository's packages.
type Option func(*Config)

// Config holds a Monitor's tunables.
type Config struct {
	PingInterval     time.Duration
	FailureThreshold int
	Clock            clock.Clock
	Logger           logger.Logger

	// OnDown and OnUp are invoked on every down/up transition this Monitor
	// detects; the typical binding is an Agent's NotifyNodeDown/NotifyNodeUp.
	OnDown func(node types.NodeID)
	OnUp   func(node types.NodeID)
}

// DefaultConfig returns sane defaults; OnDown/OnUp default to no-ops so a
// Monitor constructed without them never panics.
func DefaultConfig() Config {
	return Config{
		PingInterval:     DefaultPingInterval,
		FailureThreshold: DefaultFailureThreshold,
		Clock:            clock.New(),
		Logger:           logger.NewNoOpLogger(),
		OnDown:           func(types.NodeID) {},
		OnUp:             func(types.NodeID) {},
	}
}

// WithPingInterval overrides the probe period.
func WithPingInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PingInterval = d
		}
	}
}

// WithFailureThreshold overrides how many consecutive failures mark a node
// down.
func WithFailureThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.FailureThreshold = n
		}
	}
}

// WithClock overrides the clock, for deterministic tests.
func WithClock(cl clock.Clock) Option { return func(c *Config) { c.Clock = cl } }

// WithLogger overrides the logger.
func WithLogger(l logger.Logger) Option { return func(c *Config) { c.Logger = l } }

// WithOnDown sets the down-transition callback.
func WithOnDown(f func(types.NodeID)) Option { return func(c *Config) { c.OnDown = f } }

// WithOnUp sets the up-transition callback.
func WithOnUp(f func(types.NodeID)) Option { return func(c *Config) { c.OnUp = f } }
