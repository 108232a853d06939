package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/distlock/txagent/agent"
	"github.com/distlock/txagent/client"
	"github.com/distlock/txagent/lockserver"
	"github.com/distlock/txagent/types"
)

// noopTransport satisfies agent.Transport for single-agent tests where no
// peer traffic is ever exercised.
type noopTransport struct{}

func (noopTransport) NotifySurrendered(ctx context.Context, to, from types.AgentID, lockID types.LockID) error {
	return nil
}

func (noopTransport) RelayLockState(ctx context.Context, to types.AgentID, update types.LockStateUpdate) error {
	return nil
}

// noopMonitor satisfies agent.NodeMonitor for tests where every node is
// assumed alive for the test's duration.
type noopMonitor struct{}

func (noopMonitor) Monitor(node types.NodeID) (agent.MonitorToken, error) { return 1, nil }
func (noopMonitor) Unmonitor(agent.MonitorToken)                         {}
func (noopMonitor) WatchRecovery(node types.NodeID) <-chan struct{}      { return make(chan struct{}) }

func newTestAgent(t *testing.T, node types.NodeID) (*agent.Agent, *lockserver.Server) {
	t.Helper()
	srv := lockserver.NewServer(string(node))
	registry := lockserver.NewRegistry(nil)
	registry.Put(node, srv)
	lsClient := lockserver.NewClient(types.AgentID("A1"), registry)

	cfg := agent.DefaultConfig(types.AgentID("client1"), types.AgentID("A1"))
	a, err := agent.New(cfg, agent.Dependencies{
		LockServer: lsClient,
		Transport:  noopTransport{},
		Monitor:    noopMonitor{},
	})
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}
	srv.Subscribe(types.ObjectPath{types.ObjectName("o")}, func(update types.LockStateUpdate) {
		a.NotifyLockState(update)
	})
	go a.Run()
	t.Cleanup(func() {
		select {
		case <-a.Done():
		case <-time.After(time.Second):
		}
	})
	return a, srv
}

func TestClientLockGrantsImmediately(t *testing.T) {
	a, srv := newTestAgent(t, types.NodeID("n1"))
	c := client.New(a, types.AgentID("client1"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	object := types.ObjectPath{types.ObjectName("o")}
	if err := c.Lock(ctx, object, types.ModeWrite, []types.NodeID{"n1"}, types.RequireAll, false); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	result, err := c.AwaitAllLocks(ctx)
	if err != nil {
		t.Fatalf("AwaitAllLocks: %v", err)
	}
	if result.Status != agent.StatusHaveAll {
		t.Fatalf("got status %v want have_all", result.Status)
	}

	snap, _ := srv.Snapshot(object)
	if _, ok := snap.Head(); !ok {
		t.Fatal("expected a head holder on the lock server")
	}
}

func TestClientLockInfoReflectsRequest(t *testing.T) {
	a, _ := newTestAgent(t, types.NodeID("n1"))
	c := client.New(a, types.AgentID("client1"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	object := types.ObjectPath{types.ObjectName("o")}
	if err := c.Lock(ctx, object, types.ModeWrite, []types.NodeID{"n1"}, types.RequireAll, false); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	info, err := c.LockInfo(ctx)
	if err != nil {
		t.Fatalf("LockInfo: %v", err)
	}
	if len(info.Locks) != 1 {
		t.Fatalf("got %d locks want 1", len(info.Locks))
	}
}

func TestClientStopRejectsWrongOwner(t *testing.T) {
	a, _ := newTestAgent(t, types.NodeID("n1"))
	c := client.New(a, types.AgentID("not-the-owner"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != agent.ErrNotOwningClient {
		t.Fatalf("got %v want ErrNotOwningClient", err)
	}
}

func TestClientStopEndsTransaction(t *testing.T) {
	a, _ := newTestAgent(t, types.NodeID("n1"))
	c := client.New(a, types.AgentID("client1"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("agent did not terminate after Stop")
	}
}

func TestClientMethodsFailAfterClose(t *testing.T) {
	a, _ := newTestAgent(t, types.NodeID("n1"))
	c := client.New(a, types.AgentID("client1"))
	c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	object := types.ObjectPath{types.ObjectName("o")}
	if err := c.Lock(ctx, object, types.ModeWrite, []types.NodeID{"n1"}, types.RequireAll, false); err != client.ErrClosed {
		t.Fatalf("got %v want ErrClosed", err)
	}
}
