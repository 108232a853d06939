// Package logger provides the structured, leveled logging interface used
// throughout the agent, transport, and lock-server packages.
package logger

import "github.com/distlock/txagent/types"

// Logger defines an interface for structured, context-aware logging.
//
// All logging methods support structured output by accepting a message and
// a variadic list of key-value pairs. Keys must be strings and must
// alternate with values in the form: key1, val1, key2, val2, ...
type Logger interface {
	// Debugw logs a debug-level message with optional structured context.
	Debugw(msg string, keysAndValues ...any)

	// Infow logs an info-level message with optional structured context.
	Infow(msg string, keysAndValues ...any)

	// Warnw logs a warning-level message with optional structured context.
	Warnw(msg string, keysAndValues ...any)

	// Errorw logs an error-level message with optional structured context.
	Errorw(msg string, keysAndValues ...any)

	// Fatalw logs a fatal-level message with optional structured context and
	// then terminates the application.
	Fatalw(msg string, keysAndValues ...any)

	// Context enrichment methods return a new logger instance with
	// additional persistent context.

	// With adds arbitrary key-value pairs to the logger's context.
	With(keysAndValues ...any) Logger

	// WithAgent adds the owning agent's identifier to the logger's context.
	WithAgent(id types.AgentID) Logger

	// WithLockID adds a lock identifier to the logger's context.
	WithLockID(id types.LockID) Logger

	// WithComponent adds a component label (e.g. "deadlock", "ingest") to
	// categorize log output.
	WithComponent(name string) Logger
}
