// Package client provides a typed, context-aware facade over an in-process
// agent.Agent: callers see synchronous request/response methods while the
// agent's event loop does the actual single-threaded bookkeeping.
package client

import (
	"context"

	"github.com/distlock/txagent/agent"
	"github.com/distlock/txagent/types"
)

// TxAgentClient is the operation surface §4.G assigns to the owning client:
// every method blocks the calling goroutine until the agent replies or ctx
// is done, never the agent's own event loop.
type TxAgentClient interface {
	// Lock requests object in mode across nodes under require, per §4.G's
	// lock(...) operation. If wait is true the call blocks until the agent
	// holds every outstanding request (have_all) or aborts; otherwise it
	// returns as soon as the request is accepted or rejected.
	Lock(ctx context.Context, object types.ObjectPath, mode types.Mode, nodes []types.NodeID, require types.Require, wait bool) error

	// LockObjects submits a batch of nowait lock specs in one call,
	// returning one error per spec in submission order.
	LockObjects(ctx context.Context, specs []agent.LockSpec) ([]error, error)

	// SurrenderNowait voluntarily hands object off to otherAgent across
	// nodes, failing with an AbortError if this client does not currently
	// hold the head or otherAgent is not already queued behind it.
	SurrenderNowait(ctx context.Context, object types.ObjectPath, otherAgent types.AgentID, nodes []types.NodeID) error

	// AwaitAllLocks blocks until every outstanding lock is held, the
	// request is known to be unservable, or ctx is done.
	AwaitAllLocks(ctx context.Context) (agent.AwaitResult, error)

	// ChangeFlag mutates one of the agent's boolean configuration flags
	// (§6.5) at runtime.
	ChangeFlag(ctx context.Context, flag agent.FlagKind, value bool) error

	// LockInfo returns a snapshot of the agent's pending/active requests
	// and current locks, for introspection and tests.
	LockInfo(ctx context.Context) (agent.LockInfoSnapshot, error)

	// Stop ends the transaction. Only the client identified as owner in
	// the agent's Config may call this successfully.
	Stop(ctx context.Context) error

	// Notifications returns the channel agent.EventNotification values
	// arrive on when the agent's Notify flag is enabled (§6.1). The agent
	// owns the send side for its entire lifetime, so the channel is never
	// closed; callers should simply stop reading from it after Close.
	Notifications() <-chan agent.EventNotification

	// Err returns the agent's terminal AbortError, or nil if it has not
	// aborted.
	Err() *agent.AbortError

	// Close marks this client closed, so later request calls return
	// ErrClosed. The agent keeps its reference to the notification channel
	// and keeps sending to it. Close does not stop the agent; call Stop for
	// that.
	Close()
}
