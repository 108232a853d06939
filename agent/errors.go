package agent

import (
	"errors"
	"fmt"

	"github.com/distlock/txagent/types"
)

// Sentinel errors returned by client-facing operations (§4.G, §7).
var (
	ErrNotRunning          = errors.New("agent: no lock server running for node")
	ErrConflictingRequest  = errors.New("agent: conflicting request for object already in flight")
	ErrCannotSurrender     = errors.New("agent: surrender precondition not met")
	ErrCannotLockObjects   = errors.New("agent: quorum unreachable for one or more requests")
	ErrIllegalLockPattern  = errors.New("agent: lock_objects element has no require policy set")
	ErrAgentStopped        = errors.New("agent: transaction already ended")
	ErrNotOwningClient     = errors.New("agent: stop issued by a client that does not own this agent")
	ErrDeadlockVictim      = errors.New("agent: aborted as deadlock victim")
)

// AbortCause classifies why the agent terminated abnormally, per §7.
type AbortCause int

const (
	// AbortNone means the agent has not aborted.
	AbortNone AbortCause = iota
	AbortNotRunning
	AbortConflictingRequest
	AbortCannotSurrender
	AbortCannotLockObjects
	AbortDeadlock
)

// String implements fmt.Stringer for AbortCause.
func (c AbortCause) String() string {
	switch c {
	case AbortNotRunning:
		return "not_running"
	case AbortConflictingRequest:
		return "conflicting_request"
	case AbortCannotSurrender:
		return "cannot_surrender"
	case AbortCannotLockObjects:
		return "cannot_lock_objects"
	case AbortDeadlock:
		return "deadlock"
	default:
		return "none"
	}
}

// AbortError is the rich payload carried by an agent's terminal error, so a
// linked client or monitor can switch on Cause instead of string-matching
// the error text.
type AbortError struct {
	Cause    AbortCause
	Object   types.ObjectPath
	Node     types.NodeID
	LockID   types.LockID
	Agent    types.AgentID
	Requests []types.Request
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	switch e.Cause {
	case AbortNotRunning:
		return fmt.Sprintf("agent aborted: no lock server running on %s", e.Node)
	case AbortConflictingRequest:
		return fmt.Sprintf("agent aborted: conflicting request for %s", e.Object)
	case AbortCannotSurrender:
		return fmt.Sprintf("agent aborted: cannot surrender %s to %s", e.Object, e.Agent)
	case AbortCannotLockObjects:
		return fmt.Sprintf("agent aborted: cannot lock %d object(s), quorum unreachable", len(e.Requests))
	case AbortDeadlock:
		return fmt.Sprintf("agent aborted: deadlock victim was self on %s", e.LockID)
	default:
		return "agent aborted"
	}
}

// Unwrap lets errors.Is match the sentinel corresponding to Cause.
func (e *AbortError) Unwrap() error {
	switch e.Cause {
	case AbortNotRunning:
		return ErrNotRunning
	case AbortConflictingRequest:
		return ErrConflictingRequest
	case AbortCannotSurrender:
		return ErrCannotSurrender
	case AbortCannotLockObjects:
		return ErrCannotLockObjects
	case AbortDeadlock:
		return ErrDeadlockVictim
	default:
		return nil
	}
}
