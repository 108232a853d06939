package lockserver

import "github.com/distlock/txagent/types"

// UpdateSink receives lock-state updates pushed by a Server whenever a
// queue it owns changes (§6.2). Implementations must not block; the
// agent's own NotifyLockState is itself non-blocking, so adapting it
// directly as a sink is the common case.
type UpdateSink func(update types.LockStateUpdate)

// unsubscribe cancels a previously registered UpdateSink.
type unsubscribe func()
