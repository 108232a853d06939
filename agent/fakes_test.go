package agent

import (
	"context"
	"sync"

	"github.com/distlock/txagent/types"
)

// fakeLockServerClient records every Lock/Surrender call instead of
// talking to a real server; tests drive ingestion manually by calling
// Agent.NotifyLockState.
type fakeLockServerClient struct {
	mu         sync.Mutex
	lockCalls  []fakeLockCall
	surrenders []fakeSurrenderCall
	failNode   types.NodeID
}

type fakeLockCall struct {
	Node   types.NodeID
	Object types.ObjectPath
	Agent  types.AgentID
	Mode   types.Mode
}

type fakeSurrenderCall struct {
	Node   types.NodeID
	Object types.ObjectPath
}

func (f *fakeLockServerClient) Lock(ctx context.Context, node types.NodeID, object types.ObjectPath, agentID types.AgentID, mode types.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNode != "" && node == f.failNode {
		return errFakeNotRunning
	}
	f.lockCalls = append(f.lockCalls, fakeLockCall{Node: node, Object: object, Agent: agentID, Mode: mode})
	return nil
}

func (f *fakeLockServerClient) Surrender(ctx context.Context, node types.NodeID, object types.ObjectPath) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.surrenders = append(f.surrenders, fakeSurrenderCall{Node: node, Object: object})
	return nil
}

var errFakeNotRunning = fakeErr("no lock server")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

// fakeTransport records peer traffic.
type fakeTransport struct {
	mu          sync.Mutex
	surrendered []peerSurrenderEvent
	relayed     []types.LockStateUpdate
}

func (f *fakeTransport) NotifySurrendered(ctx context.Context, to types.AgentID, from types.AgentID, lockID types.LockID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.surrendered = append(f.surrendered, peerSurrenderEvent{Sender: from, LockID: lockID})
	return nil
}

func (f *fakeTransport) RelayLockState(ctx context.Context, to types.AgentID, update types.LockStateUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relayed = append(f.relayed, update)
	return nil
}

// fakeMonitor never signals death on its own; tests drive it via
// Agent.NotifyNodeDown directly.
type fakeMonitor struct {
	mu       sync.Mutex
	monitored map[types.NodeID]bool
	recovery  map[types.NodeID]chan struct{}
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{monitored: make(map[types.NodeID]bool), recovery: make(map[types.NodeID]chan struct{})}
}

func (f *fakeMonitor) Monitor(node types.NodeID) (MonitorToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monitored[node] = true
	return MonitorToken(1), nil
}

func (f *fakeMonitor) Unmonitor(token MonitorToken) {}

func (f *fakeMonitor) WatchRecovery(node types.NodeID) <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{}, 1)
	f.recovery[node] = ch
	return ch
}

// fireRecovery signals a previously installed recovery watcher, if any.
func (f *fakeMonitor) fireRecovery(node types.NodeID) {
	f.mu.Lock()
	ch := f.recovery[node]
	f.mu.Unlock()
	if ch != nil {
		ch <- struct{}{}
	}
}

func newTestAgent(id types.AgentID, opts ...Option) (*Agent, *fakeLockServerClient, *fakeTransport, *fakeMonitor) {
	ls := &fakeLockServerClient{}
	tr := &fakeTransport{}
	mon := newFakeMonitor()
	cfg := NewConfig(DefaultConfig(id, id), opts...)
	a, err := New(cfg, Dependencies{LockServer: ls, Transport: tr, Monitor: mon})
	if err != nil {
		panic(err)
	}
	return a, ls, tr, mon
}

// scanCountingMetrics counts ObserveDeadlockScan calls, for tests that
// need to confirm the periodic safety-net scan actually ran.
type scanCountingMetrics struct {
	NoOpMetrics
	mu    sync.Mutex
	scans int
}

func (m *scanCountingMetrics) ObserveDeadlockScan(cyclesFound int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++
}

func (m *scanCountingMetrics) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scans
}
