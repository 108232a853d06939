package logger

import (
	"testing"

	"github.com/distlock/txagent/types"
)

func TestNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()

	// Test that all logging methods can be called without panicking
	logger.Debugw("debug message", "key", "value")
	logger.Infow("info message", "key", "value")
	logger.Warnw("warn message", "key", "value")
	logger.Errorw("error message", "key", "value")

	// NoOpLogger.Fatalw should not terminate the process
	logger.Fatalw("fatal message", "key", "value")

	// Test context enrichment methods
	enriched := logger.With("key", "value")
	enriched.Infow("enriched message")

	agentLogger := logger.WithAgent(types.AgentID("a1"))
	agentLogger.Infow("agent message")

	lockLogger := logger.WithLockID(types.LockID{Object: types.ObjectPath{"o1"}, Node: types.NodeID("n1")})
	lockLogger.Infow("lock message")

	compLogger := logger.WithComponent("test")
	compLogger.Infow("component message")

	// Test chaining of context enrichment methods
	chainedLogger := logger.WithAgent(types.AgentID("a1")).
		WithLockID(types.LockID{Object: types.ObjectPath{"o1"}, Node: types.NodeID("n1")}).
		WithComponent("test").
		With("key", "value")
	chainedLogger.Infow("chained message")
}
