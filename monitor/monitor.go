package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/distlock/txagent/agent"
	"github.com/distlock/txagent/types"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Prober probes a single node's lock server for liveness. The transport
// package's gRPC client satisfies this with a lightweight health RPC; tests
// use a hand-written fake.
type Prober interface {
	Ping(ctx context.Context, node types.NodeID) error
}

// Monitor implements agent.NodeMonitor (§6.4) by periodically probing every
// watched node and reporting consecutive-failure/recovery transitions to
// the callbacks supplied at construction. It is the out-of-scope "node
// up/down discovery" primitive spec.md §1 assumes exists.
type Monitor struct {
	mu      sync.Mutex
	cfg     Config
	prober  Prober
	watches map[types.NodeID]*nodeWatch

	recoveryMu      sync.Mutex
	recoveryWaiters map[types.NodeID][]chan struct{}

	nextToken uint64
	tokens    map[agent.MonitorToken]types.NodeID
	createdAt map[agent.MonitorToken]*timestamppb.Timestamp
}

// New constructs a Monitor that probes via prober.
func New(prober Prober, opts ...Option) *Monitor {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Monitor{
		cfg:             cfg,
		prober:          prober,
		watches:         make(map[types.NodeID]*nodeWatch),
		recoveryWaiters: make(map[types.NodeID][]chan struct{}),
		tokens:          make(map[agent.MonitorToken]types.NodeID),
		createdAt:       make(map[agent.MonitorToken]*timestamppb.Timestamp),
	}
}

// Monitor implements agent.NodeMonitor.Monitor: starts (or joins) a
// background watcher for node and returns a token identifying this
// subscription.
func (m *Monitor) Monitor(node types.NodeID) (agent.MonitorToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.watches[node]
	if !ok {
		w = newNodeWatch(node, m)
		m.watches[node] = w
		go w.run()
	}
	w.refs++

	m.nextToken++
	token := agent.MonitorToken(m.nextToken)
	m.tokens[token] = node
	stamp := timestamppb.New(m.cfg.Clock.Now())
	m.createdAt[token] = stamp
	m.cfg.Logger.Debugw("monitor subscription opened", "node", node, "token", token, "created_at", stamp.AsTime())
	return token, nil
}

// TokenCreatedAt returns when token was issued by Monitor, or false if the
// token is unknown or already released.
func (m *Monitor) TokenCreatedAt(token agent.MonitorToken) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp, ok := m.createdAt[token]
	if !ok {
		return time.Time{}, false
	}
	return stamp.AsTime(), true
}

// Unmonitor implements agent.NodeMonitor.Unmonitor: releases one
// subscription, stopping the background watcher once no subscriber
// remains.
func (m *Monitor) Unmonitor(token agent.MonitorToken) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.tokens[token]
	if !ok {
		return
	}
	delete(m.tokens, token)
	delete(m.createdAt, token)

	w, ok := m.watches[node]
	if !ok {
		return
	}
	w.refs--
	if w.refs <= 0 {
		w.stop()
		delete(m.watches, node)
	}
}

// WatchRecovery implements agent.NodeMonitor.WatchRecovery: returns a
// one-shot channel that fires the next time node transitions up.
func (m *Monitor) WatchRecovery(node types.NodeID) <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.recoveryMu.Lock()
	m.recoveryWaiters[node] = append(m.recoveryWaiters[node], ch)
	m.recoveryMu.Unlock()
	return ch
}

// onDown fires the configured OnDown callback and is called by a
// nodeWatch on a down transition.
func (m *Monitor) onDown(node types.NodeID) {
	m.cfg.OnDown(node)
}

// onUp fires the configured OnUp callback and wakes every pending
// WatchRecovery waiter for node.
func (m *Monitor) onUp(node types.NodeID) {
	m.cfg.OnUp(node)

	m.recoveryMu.Lock()
	waiters := m.recoveryWaiters[node]
	delete(m.recoveryWaiters, node)
	m.recoveryMu.Unlock()

	for _, ch := range waiters {
		ch <- struct{}{}
	}
}
