package lockserver

import "errors"

var (
	// ErrAgentNotInQueue indicates a Surrender call from an agent that does
	// not currently hold the named lock's head group.
	ErrAgentNotInQueue = errors.New("lockserver: agent does not hold this lock")

	// ErrQueueFull indicates a lock's queue is already at MaxQueueDepth.
	ErrQueueFull = errors.New("lockserver: queue is full")

	// ErrUnknownLock indicates an operation referenced a LockID the server
	// has never seen and that has no queue to act on.
	ErrUnknownLock = errors.New("lockserver: unknown lock")

	// ErrServerStopped indicates a call arrived after Close.
	ErrServerStopped = errors.New("lockserver: server stopped")
)
