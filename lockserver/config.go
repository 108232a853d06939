package lockserver

import (
	"github.com/distlock/txagent/clock"
	"github.com/distlock/txagent/logger"
)

// Option configures a Server during NewServer, the functional-options
// pattern used across this repository's packages.
type Option func(*Config)

// Config holds the in-memory reference lock server's tunables.
type Config struct {
	// Node identifies which node this Server instance represents; it is
	// stamped into every LockStateUpdate's Where field.
	Node string

	// MaxQueueDepth caps how many QueueElements a single lock's queue may
	// hold before Lock returns ErrQueueFull.
	MaxQueueDepth int

	Clock   clock.Clock
	Logger  logger.Logger
	Metrics Metrics
}

// DefaultConfig returns sane defaults; Node must still be supplied by the
// caller via WithNode.
func DefaultConfig() Config {
	return Config{
		MaxQueueDepth: DefaultMaxQueueDepth,
		Clock:         clock.New(),
		Logger:        logger.NewNoOpLogger(),
		Metrics:       NoOpMetrics{},
	}
}

// WithNode sets the NodeID this server represents.
func WithNode(node string) Option { return func(c *Config) { c.Node = node } }

// WithMaxQueueDepth overrides the queue depth cap.
func WithMaxQueueDepth(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxQueueDepth = n
		}
	}
}

// WithClock overrides the clock, for deterministic tests.
func WithClock(c clock.Clock) Option { return func(cfg *Config) { cfg.Clock = c } }

// WithLogger overrides the logger.
func WithLogger(l logger.Logger) Option { return func(cfg *Config) { cfg.Logger = l } }

// WithMetrics overrides the metrics sink.
func WithMetrics(m Metrics) Option { return func(cfg *Config) { cfg.Metrics = m } }

// DefaultMaxQueueDepth bounds a single lock's queue absent an override.
const DefaultMaxQueueDepth = 256
