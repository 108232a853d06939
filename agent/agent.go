// Package agent implements the Transaction Agent's decision engine: a
// single-threaded actor that tracks the evolving state of every lock a
// client has requested, evaluates quorum readiness, and detects and
// resolves distributed deadlocks against peer agents.
package agent

import (
	"fmt"
	"time"

	"github.com/distlock/txagent/logger"
	"github.com/distlock/txagent/types"
)

// Agent is the per-client orchestrator. All of its mutable state (the
// four tables of §3 plus the scalar fields below) is owned exclusively by
// the goroutine running Run; every other method only enqueues work onto
// inbox, per §5's single-threaded-event-processing model.
type Agent struct {
	cfg  *Config
	deps Dependencies
	log  logger.Logger

	locks       *lockTable
	holding     *holdingIndex
	requests    *requestTables
	interesting *interestingSet

	sync      map[types.LockID]time.Time
	down      map[types.NodeID]struct{}
	monitored map[types.NodeID]MonitorToken

	deadlocks []DeadlockRecord

	notifySubs   []chan EventNotification
	awaitWaiters []chan AwaitResult

	claimNo       uint64
	haveAll       bool
	everRequested bool

	stopped  bool
	abortErr *AbortError

	inbox chan event
	done  chan struct{}
}

// New constructs an Agent. It does not start the event loop; call Run in
// its own goroutine to do that.
func New(cfg *Config, deps Dependencies) (*Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("agent: nil config")
	}
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	a := &Agent{
		cfg:         cfg,
		deps:        deps,
		log:         deps.Logger.WithComponent("agent").WithAgent(cfg.ID),
		locks:       newLockTable(),
		holding:     newHoldingIndex(),
		requests:    newRequestTables(),
		interesting: newInterestingSet(),
		sync:        make(map[types.LockID]time.Time),
		down:        make(map[types.NodeID]struct{}),
		monitored:   make(map[types.NodeID]MonitorToken),
		inbox:       make(chan event, cfg.CommandQueueSize),
		done:        make(chan struct{}),
	}
	return a, nil
}

// Submit enqueues a client command (§6.1). It never blocks: the inbox is
// buffered per Config.CommandQueueSize, and a full inbox hands this send to
// a short-lived goroutine rather than blocking the caller's critical path,
// matching §5's "sends are non-blocking" rule.
func (a *Agent) Submit(cmd Command) {
	a.post(commandEvent{Cmd: cmd})
}

// post delivers an event (a client command, a lock-server snapshot, a peer
// message, a node-liveness signal) into the agent's single queue. Outside
// producers reach it through Submit and the exported Notify* methods,
// called from their own listener goroutines.
func (a *Agent) post(ev event) {
	select {
	case a.inbox <- ev:
	case <-a.done:
	default:
		// Inbox full: spawn a short-lived goroutine to deliver without
		// blocking the producer, preserving per-peer ordering is not at
		// stake here since each producer's sends already serialize through
		// its own call site.
		go func() {
			select {
			case a.inbox <- ev:
			case <-a.done:
			}
		}()
	}
}

// NotifyLockState delivers a lock-server-originated snapshot (§6.2).
func (a *Agent) NotifyLockState(update types.LockStateUpdate) {
	a.post(lockStateEvent{Update: update})
}

// NotifyPeerSurrender delivers a {surrendered, sender, LockId} peer
// message (§6.3).
func (a *Agent) NotifyPeerSurrender(sender types.AgentID, lockID types.LockID) {
	a.post(peerSurrenderEvent{Sender: sender, LockID: lockID})
}

// NotifyPeerLockState delivers a lock-state update relayed by a peer
// (§6.3).
func (a *Agent) NotifyPeerLockState(update types.LockStateUpdate) {
	a.post(peerLockStateEvent{Update: update})
}

// NotifyNodeUp delivers {nodeup, N} (§6.4).
func (a *Agent) NotifyNodeUp(node types.NodeID) { a.post(nodeUpEvent{Node: node}) }

// NotifyNodeDown delivers the per-(LockServer,N) death signal (§6.4).
func (a *Agent) NotifyNodeDown(node types.NodeID) { a.post(nodeDownEvent{Node: node}) }

// NotifyLocksRunning delivers the locks_running(N) recovery signal
// (§4.F, §6.4).
func (a *Agent) NotifyLocksRunning(node types.NodeID) { a.post(locksRunningEvent{Node: node}) }

// NotifyClientDead tells the agent its owning client has terminated
// (§4.F).
func (a *Agent) NotifyClientDead() { a.post(clientDeadEvent{}) }

// Done returns a channel closed when the agent's event loop has exited.
func (a *Agent) Done() <-chan struct{} { return a.done }

// AbortErr returns the terminal AbortError if the agent aborted, or nil if
// it is still running or exited normally (client death, explicit stop).
func (a *Agent) AbortErr() *AbortError { return a.abortErr }
