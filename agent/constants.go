package agent

import "time"

const (
	// DefaultDeadlockScanInterval bounds how eagerly the deadlock analyzer
	// re-runs outside of state-change triggers; §4.E is invoked synchronously
	// on every relevant event, so this only matters for the optional
	// periodic safety-net scan.
	DefaultDeadlockScanInterval = 2 * time.Second

	// DefaultSurrenderTimeout bounds how long a LockID may sit in the sync
	// set before the agent logs a stuck-surrender warning. Diagnostic only:
	// per §5, await_all_locks has no server-side timeout and this never
	// forces a transition.
	DefaultSurrenderTimeout = 10 * time.Second

	// DefaultCommandQueueSize sizes the agent's inbound event channel.
	DefaultCommandQueueSize = 256

	// DefaultIntrospectionTimeout is a client-side timeout for lock_info
	// and stop. The client package's LockInfo and Stop do not apply it:
	// they wait until the reply arrives, the agent exits, or the caller's
	// ctx is done.
	DefaultIntrospectionTimeout = 5 * time.Second
)
