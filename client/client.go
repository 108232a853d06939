package client

import (
	"context"
	"sync"

	"github.com/distlock/txagent/agent"
	"github.com/distlock/txagent/types"
)

// Client is the default TxAgentClient, binding to a single agent.Agent.
// Its methods never touch the agent's internal tables directly; every call
// builds a Command, submits it, and waits on the reply channel or ctx.
type Client struct {
	a     *agent.Agent
	owner types.AgentID

	mu     sync.Mutex
	notify chan agent.EventNotification
	closed bool
}

// New wraps a running agent.Agent and registers this Client's notification
// channel with it. owner must match the Client field of the agent's Config
// for Stop to succeed.
func New(a *agent.Agent, owner types.AgentID) *Client {
	c := &Client{a: a, owner: owner, notify: make(chan agent.EventNotification, 32)}
	reply := make(chan struct{}, 1)
	a.Submit(agent.SubscribeNotifyCommand{Ch: c.notify, Reply: reply})
	select {
	case <-reply:
	case <-a.Done():
	}
	return c
}

// isClosed reports whether Close has been called on this Client.
func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Lock implements TxAgentClient.Lock.
func (c *Client) Lock(ctx context.Context, object types.ObjectPath, mode types.Mode, nodes []types.NodeID, require types.Require, wait bool) error {
	if c.isClosed() {
		return ErrClosed
	}
	reply := make(chan error, 1)
	c.a.Submit(agent.LockCommand{
		Object:  object,
		Mode:    mode,
		Nodes:   nodes,
		Require: require,
		Wait:    wait,
		Reply:   reply,
	})
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.a.Done():
		return c.errOrAgentStopped()
	}
}

// LockObjects implements TxAgentClient.LockObjects.
func (c *Client) LockObjects(ctx context.Context, specs []agent.LockSpec) ([]error, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	reply := make(chan []error, 1)
	c.a.Submit(agent.LockObjectsCommand{Specs: specs, Reply: reply})
	select {
	case errs := <-reply:
		return errs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.a.Done():
		return nil, c.errOrAgentStopped()
	}
}

// SurrenderNowait implements TxAgentClient.SurrenderNowait.
func (c *Client) SurrenderNowait(ctx context.Context, object types.ObjectPath, otherAgent types.AgentID, nodes []types.NodeID) error {
	if c.isClosed() {
		return ErrClosed
	}
	reply := make(chan error, 1)
	c.a.Submit(agent.SurrenderNowaitCommand{
		Object:     object,
		OtherAgent: otherAgent,
		Nodes:      nodes,
		Reply:      reply,
	})
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.a.Done():
		return c.errOrAgentStopped()
	}
}

// AwaitAllLocks implements TxAgentClient.AwaitAllLocks.
func (c *Client) AwaitAllLocks(ctx context.Context) (agent.AwaitResult, error) {
	if c.isClosed() {
		return agent.AwaitResult{}, ErrClosed
	}
	reply := make(chan agent.AwaitResult, 1)
	c.a.Submit(agent.AwaitAllLocksCommand{Reply: reply})
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return agent.AwaitResult{}, ctx.Err()
	case <-c.a.Done():
		return agent.AwaitResult{}, c.errOrAgentStopped()
	}
}

// ChangeFlag implements TxAgentClient.ChangeFlag.
func (c *Client) ChangeFlag(ctx context.Context, flag agent.FlagKind, value bool) error {
	if c.isClosed() {
		return ErrClosed
	}
	reply := make(chan error, 1)
	c.a.Submit(agent.ChangeFlagCommand{Flag: flag, Value: value, Reply: reply})
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.a.Done():
		return c.errOrAgentStopped()
	}
}

// LockInfo implements TxAgentClient.LockInfo.
func (c *Client) LockInfo(ctx context.Context) (agent.LockInfoSnapshot, error) {
	if c.isClosed() {
		return agent.LockInfoSnapshot{}, ErrClosed
	}
	reply := make(chan agent.LockInfoSnapshot, 1)
	c.a.Submit(agent.LockInfoCommand{Reply: reply})
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return agent.LockInfoSnapshot{}, ctx.Err()
	case <-c.a.Done():
		return agent.LockInfoSnapshot{}, c.errOrAgentStopped()
	}
}

// Stop implements TxAgentClient.Stop.
func (c *Client) Stop(ctx context.Context) error {
	reply := make(chan error, 1)
	c.a.Submit(agent.StopCommand{Client: c.owner, Reply: reply})
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.a.Done():
		return nil
	}
}

// Notifications implements TxAgentClient.Notifications.
func (c *Client) Notifications() <-chan agent.EventNotification {
	return c.notify
}

// Err implements TxAgentClient.Err.
func (c *Client) Err() *agent.AbortError {
	return c.a.AbortErr()
}

// Close implements TxAgentClient.Close. It does not close the notification
// channel: the agent's event loop holds its own reference and keeps
// sending to it for the rest of the agent's lifetime, so closing it here
// would race a send against a closed channel. Callers should stop reading
// from Notifications after Close instead.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// errOrAgentStopped reports the agent's terminal AbortError if it aborted,
// or ErrAgentStopped if the event loop exited normally (client death,
// explicit stop) while this call was in flight.
func (c *Client) errOrAgentStopped() error {
	if ae := c.a.AbortErr(); ae != nil {
		return ae
	}
	return agent.ErrAgentStopped
}
