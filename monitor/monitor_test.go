package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/distlock/txagent/types"
)

type fakeProber struct {
	mu   sync.Mutex
	fail map[types.NodeID]bool
}

func newFakeProber() *fakeProber { return &fakeProber{fail: make(map[types.NodeID]bool)} }

func (f *fakeProber) Ping(ctx context.Context, node types.NodeID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[node] {
		return errPingFailed
	}
	return nil
}

func (f *fakeProber) setFailing(node types.NodeID, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[node] = failing
}

type pingError string

func (e pingError) Error() string { return string(e) }

const errPingFailed = pingError("ping failed")

func waitOn(t *testing.T, ch <-chan types.NodeID, want types.NodeID) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("expected transition for %q, got %q", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for transition on %q", want)
	}
}

func TestMonitorDetectsDownAfterThreshold(t *testing.T) {
	prober := newFakeProber()
	downCh := make(chan types.NodeID, 4)
	m := New(prober,
		WithPingInterval(5*time.Millisecond),
		WithFailureThreshold(2),
		WithOnDown(func(n types.NodeID) { downCh <- n }),
	)

	token, err := m.Monitor("N1")
	if err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	defer m.Unmonitor(token)

	prober.setFailing("N1", true)
	waitOn(t, downCh, "N1")
}

func TestMonitorDetectsRecovery(t *testing.T) {
	prober := newFakeProber()
	downCh := make(chan types.NodeID, 4)
	upCh := make(chan types.NodeID, 4)
	m := New(prober,
		WithPingInterval(5*time.Millisecond),
		WithFailureThreshold(2),
		WithOnDown(func(n types.NodeID) { downCh <- n }),
		WithOnUp(func(n types.NodeID) { upCh <- n }),
	)

	token, _ := m.Monitor("N1")
	defer m.Unmonitor(token)

	recovered := m.WatchRecovery("N1")

	prober.setFailing("N1", true)
	waitOn(t, downCh, "N1")

	prober.setFailing("N1", false)
	waitOn(t, upCh, "N1")

	select {
	case <-recovered:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected WatchRecovery channel to fire")
	}
}

func TestTokenCreatedAt(t *testing.T) {
	prober := newFakeProber()
	m := New(prober, WithPingInterval(5*time.Millisecond))

	before := time.Now()
	token, err := m.Monitor("N1")
	if err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	defer m.Unmonitor(token)

	stamp, ok := m.TokenCreatedAt(token)
	if !ok {
		t.Fatal("expected TokenCreatedAt to find the just-issued token")
	}
	if stamp.Before(before.Add(-time.Second)) {
		t.Errorf("created_at %v looks stale relative to %v", stamp, before)
	}

	m.Unmonitor(token)
	if _, ok := m.TokenCreatedAt(token); ok {
		t.Error("expected TokenCreatedAt to forget a released token")
	}
}

func TestUnmonitorStopsWatchAfterLastRef(t *testing.T) {
	prober := newFakeProber()
	downCh := make(chan types.NodeID, 4)
	m := New(prober,
		WithPingInterval(5*time.Millisecond),
		WithFailureThreshold(1),
		WithOnDown(func(n types.NodeID) { downCh <- n }),
	)

	t1, _ := m.Monitor("N1")
	t2, _ := m.Monitor("N1")

	m.Unmonitor(t1)
	// t2 still holds a ref; watch must still be running.
	prober.setFailing("N1", true)
	waitOn(t, downCh, "N1")

	m.Unmonitor(t2)
	m.mu.Lock()
	_, stillWatching := m.watches["N1"]
	m.mu.Unlock()
	if stillWatching {
		t.Fatalf("expected watch for N1 to stop once the last ref was released")
	}
}
