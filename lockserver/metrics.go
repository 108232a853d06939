package lockserver

import "github.com/distlock/txagent/types"

// Metrics records lock-server activity: request counts, grants, and
// surrenders, scoped to this server's Read/Write queue model.
type Metrics interface {
	// IncrLockRequest counts a Lock call; granted is true only when the
	// queue was empty, so a reader merged into an existing head read group
	// is counted as not granted.
	IncrLockRequest(id types.LockID, granted bool)

	// IncrSurrender counts a Surrender call.
	IncrSurrender(id types.LockID, success bool)

	// IncrPromotion counts a queue promotion (head group released, next
	// element granted).
	IncrPromotion(id types.LockID)

	// SetQueueDepth reports a lock's current queue length.
	SetQueueDepth(id types.LockID, depth int)
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (NoOpMetrics) IncrLockRequest(types.LockID, bool) {}
func (NoOpMetrics) IncrSurrender(types.LockID, bool)   {}
func (NoOpMetrics) IncrPromotion(types.LockID)         {}
func (NoOpMetrics) SetQueueDepth(types.LockID, int)    {}
