package agent

import "github.com/distlock/txagent/types"

// Command is the sum type of operations the client interface accepts
// (§4.G). Each concrete command carries its own reply channel; the event
// loop (§4.H) dispatches on the dynamic type.
type Command interface{ isCommand() }

// LockCommand requests a lock, possibly blocking until have_all or a fatal
// abort.
type LockCommand struct {
	Object  types.ObjectPath
	Mode    types.Mode
	Nodes   []types.NodeID
	Require types.Require
	Wait    bool
	Reply   chan error
}

func (LockCommand) isCommand() {}

// LockSpec is one element of a LockObjectsCommand batch.
type LockSpec struct {
	Object  types.ObjectPath
	Mode    types.Mode
	Nodes   []types.NodeID
	Require types.Require
}

// LockObjectsCommand batches several nowait lock requests. Per the §13
// open-question decision, an element whose Require is unset
// (types.RequireUnset) fails that element with ErrIllegalLockPattern
// rather than silently defaulting to "all".
type LockObjectsCommand struct {
	Specs []LockSpec
	Reply chan []error
}

func (LockObjectsCommand) isCommand() {}

// SurrenderNowaitCommand asks the agent to voluntarily surrender a lock it
// holds to another agent (§4.G).
type SurrenderNowaitCommand struct {
	Object     types.ObjectPath
	OtherAgent types.AgentID
	Nodes      []types.NodeID
	Reply      chan error
}

func (SurrenderNowaitCommand) isCommand() {}

// AwaitStatus is the status kind returned by AwaitAllLocksCommand.
type AwaitStatus int

const (
	StatusNoLocks AwaitStatus = iota
	StatusWaiting
	StatusHaveAll
	StatusCannotServe
)

func (s AwaitStatus) String() string {
	switch s {
	case StatusNoLocks:
		return "no_locks"
	case StatusWaiting:
		return "waiting"
	case StatusHaveAll:
		return "have_all"
	case StatusCannotServe:
		return "cannot_serve"
	default:
		return "unknown"
	}
}

// DeadlockRecord is a (victim_agent, LockId) report, purely informational
// (§3 `deadlocks`).
type DeadlockRecord struct {
	Victim types.AgentID
	LockID types.LockID
}

// AwaitResult is the reply payload for AwaitAllLocksCommand.
type AwaitResult struct {
	Status     AwaitStatus
	Deadlocks  []DeadlockRecord
	Unservable []types.ObjectPath
}

// AwaitAllLocksCommand asks whether every lock is now held. If the request
// is not yet satisfiable and not yet known-unservable, the reply is parked
// (not sent) until a later event resolves it (§4.G: "Waiting returned
// implicitly by not replying yet").
type AwaitAllLocksCommand struct {
	Reply chan AwaitResult
}

func (AwaitAllLocksCommand) isCommand() {}

// FlagKind identifies a mutable configuration flag (§6.5).
type FlagKind int

const (
	FlagAbortOnDeadlock FlagKind = iota
	FlagAwaitNodes
	FlagNotify
)

// ChangeFlagCommand mutates one boolean configuration flag.
type ChangeFlagCommand struct {
	Flag  FlagKind
	Value bool
	Reply chan error
}

func (ChangeFlagCommand) isCommand() {}

// LockInfoSnapshot is the introspection payload for LockInfoCommand.
type LockInfoSnapshot struct {
	Pending []types.Request
	Active  []types.Request
	Locks   []types.Lock
	HaveAll bool
	ClaimNo uint64
}

// LockInfoCommand returns a snapshot of the pending/active request tables
// and the locks table.
type LockInfoCommand struct {
	Reply chan LockInfoSnapshot
}

func (LockInfoCommand) isCommand() {}

// StopCommand ends the transaction. Only the owning client may invoke it
// (§4.G); the event loop checks Client against the agent's configured
// owner.
type StopCommand struct {
	Client types.AgentID
	Reply  chan error
}

func (StopCommand) isCommand() {}

// EventNotification is what arrives on the client's notification channel
// when Notify is enabled (§6.1): either a relayed lock-state update or a
// have-all-locks announcement.
type EventNotification struct {
	Agent   types.AgentID
	Update  *types.LockStateUpdate
	HaveAll *AwaitResult
}

// SubscribeNotifyCommand registers ch to receive this agent's
// EventNotification stream (§6.1). Only meaningful while Notify is true;
// the channel is never closed by the agent, since it may be shared or
// reused by the caller beyond this transaction's lifetime.
type SubscribeNotifyCommand struct {
	Ch    chan EventNotification
	Reply chan struct{}
}

func (SubscribeNotifyCommand) isCommand() {}
