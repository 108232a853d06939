package agent

import (
	"time"

	"github.com/distlock/txagent/types"
)

// Config holds the per-agent configuration surface, mapping directly onto
// §6.5 plus ambient additions. Construct with DefaultConfig and
// customize with With... functional options.
type Config struct {
	// Client identifies the owning client (§6.5 "client").
	Client types.AgentID

	// ID is this agent's own identifier, used in victim selection (§4.E)
	// and as the Agent field of outbound peer messages.
	ID types.AgentID

	// Link records whether the agent's lifetime is tied to the owning
	// client. The agent does not read it: client death immediately
	// terminates the agent (§4.F) whatever its value.
	Link bool

	// AbortOnDeadlock, if true, makes the agent abort with Deadlock when
	// it is chosen as victim and the contested lock was already claimed
	// (§4.E step 5).
	AbortOnDeadlock bool

	// AwaitNodes, if true, makes node/server loss recoverable: the agent
	// installs a watcher and waits instead of aborting (§4.F).
	AwaitNodes bool

	// Notify, if true, registers the client for persistent event
	// notifications in addition to one-shot await_all_locks replies.
	Notify bool

	// DeadlockScanInterval bounds the optional periodic safety-net scan;
	// §4.E itself runs synchronously on every relevant event regardless.
	DeadlockScanInterval time.Duration

	// SurrenderTimeout bounds how long a LockID may sit in sync before a
	// diagnostic warning is logged. Never forces a transition.
	SurrenderTimeout time.Duration

	// CommandQueueSize sizes the inbound event channel (§4.H).
	CommandQueueSize int
}

// DefaultConfig returns the documented defaults: abort_on_deadlock
// and await_nodes both false, notify false (§6.5).
func DefaultConfig(client, id types.AgentID) *Config {
	return &Config{
		Client:               client,
		ID:                   id,
		Link:                 true,
		AbortOnDeadlock:      false,
		AwaitNodes:           false,
		Notify:               false,
		DeadlockScanInterval: DefaultDeadlockScanInterval,
		SurrenderTimeout:     DefaultSurrenderTimeout,
		CommandQueueSize:     DefaultCommandQueueSize,
	}
}

// Option customizes a Config produced by DefaultConfig.
type Option func(*Config)

// WithLink sets whether the agent's lifetime is tied to its client.
func WithLink(link bool) Option { return func(c *Config) { c.Link = link } }

// WithAbortOnDeadlock sets the abort_on_deadlock flag.
func WithAbortOnDeadlock(v bool) Option { return func(c *Config) { c.AbortOnDeadlock = v } }

// WithAwaitNodes sets the await_nodes flag.
func WithAwaitNodes(v bool) Option { return func(c *Config) { c.AwaitNodes = v } }

// WithNotify sets the notify flag.
func WithNotify(v bool) Option { return func(c *Config) { c.Notify = v } }

// WithDeadlockScanInterval overrides the periodic safety-net scan period;
// a non-positive d falls back to DefaultDeadlockScanInterval.
func WithDeadlockScanInterval(d time.Duration) Option {
	return func(c *Config) {
		if d <= 0 {
			d = DefaultDeadlockScanInterval
		}
		c.DeadlockScanInterval = d
	}
}

// WithSurrenderTimeout overrides the stuck-surrender diagnostic timeout.
func WithSurrenderTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d <= 0 {
			d = DefaultSurrenderTimeout
		}
		c.SurrenderTimeout = d
	}
}

// WithCommandQueueSize overrides the inbound channel buffer size.
func WithCommandQueueSize(n int) Option {
	return func(c *Config) {
		if n <= 0 {
			n = DefaultCommandQueueSize
		}
		c.CommandQueueSize = n
	}
}

// NewConfig applies options to a copy of base; the caller's base Config
// is never mutated.
func NewConfig(base *Config, options ...Option) *Config {
	cfg := *base
	for _, opt := range options {
		opt(&cfg)
	}
	return &cfg
}
