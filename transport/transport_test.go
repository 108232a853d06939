package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/distlock/txagent/types"
)

func TestObjectPathRoundTrip(t *testing.T) {
	object := types.ObjectPath{types.ObjectName("a"), types.ObjectName("b")}
	values := objectPathToValues(object)
	got, err := objectPathFromValues(values)
	if err != nil {
		t.Fatalf("objectPathFromValues: %v", err)
	}
	if len(got) != len(object) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(object))
	}
	for i := range object {
		if got[i] != object[i] {
			t.Errorf("element %d: got %q want %q", i, got[i], object[i])
		}
	}
}

func TestModeRoundTrip(t *testing.T) {
	for _, mode := range []types.Mode{types.ModeRead, types.ModeWrite} {
		got, err := modeFromString(modeToString(mode))
		if err != nil {
			t.Fatalf("modeFromString: %v", err)
		}
		if got != mode {
			t.Errorf("got %v want %v", got, mode)
		}
	}
	if _, err := modeFromString("bogus"); err == nil {
		t.Error("expected error for unknown mode string")
	}
}

func TestLockRequestRoundTrip(t *testing.T) {
	object := types.ObjectPath{types.ObjectName("dir"), types.ObjectName("file")}
	req, err := encodeLockRequest(object, types.AgentID("A1"), types.ModeWrite)
	if err != nil {
		t.Fatalf("encodeLockRequest: %v", err)
	}
	gotObject, gotAgent, gotMode, err := decodeLockRequest(req)
	if err != nil {
		t.Fatalf("decodeLockRequest: %v", err)
	}
	if gotAgent != "A1" || gotMode != types.ModeWrite || len(gotObject) != 2 {
		t.Errorf("roundtrip mismatch: %+v %v %v", gotObject, gotAgent, gotMode)
	}
}

func TestLockStateUpdateRoundTrip(t *testing.T) {
	update := types.LockStateUpdate{
		Lock: types.Lock{
			ObjectID: types.LockID{Object: types.ObjectPath{types.ObjectName("x")}, Node: types.NodeID("n1")},
			Version:  7,
			Queue: []types.QueueElement{
				{IsWrite: true, Write: types.Entry{Agent: "A1", Version: 7}},
				{Readers: []types.Entry{{Agent: "A2", Version: 6}, {Agent: "A3", Version: 6}}},
			},
		},
		Where: types.NodeID("n1"),
	}
	req, err := encodeLockStateUpdate(update)
	if err != nil {
		t.Fatalf("encodeLockStateUpdate: %v", err)
	}
	got, err := decodeLockStateUpdate(req)
	if err != nil {
		t.Fatalf("decodeLockStateUpdate: %v", err)
	}
	if got.Lock.Version != 7 || got.Where != "n1" || len(got.Lock.Queue) != 2 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if !got.Lock.Queue[0].IsWrite || got.Lock.Queue[0].Write.Agent != "A1" {
		t.Errorf("write element mismatch: %+v", got.Lock.Queue[0])
	}
	if len(got.Lock.Queue[1].Readers) != 2 {
		t.Errorf("readers element mismatch: %+v", got.Lock.Queue[1])
	}
}

func TestNotifySurrenderedRoundTrip(t *testing.T) {
	lockID := types.LockID{Object: types.ObjectPath{types.ObjectName("o")}, Node: types.NodeID("n1")}
	req, err := encodeNotifySurrendered("A1", "A2", lockID)
	if err != nil {
		t.Fatalf("encodeNotifySurrendered: %v", err)
	}
	to, from, gotLockID, err := decodeNotifySurrendered(req)
	if err != nil {
		t.Fatalf("decodeNotifySurrendered: %v", err)
	}
	if to != "A1" || from != "A2" || gotLockID.Node != "n1" {
		t.Errorf("roundtrip mismatch: %v %v %+v", to, from, gotLockID)
	}
}

// fakeHandler is a hand-rolled Handler recording every call it receives, for
// exercising a real Client<->Server RPC round trip over loopback.
type fakeHandler struct {
	mu       sync.Mutex
	locked   []types.AgentID
	failLock bool
}

func (f *fakeHandler) Lock(ctx context.Context, object types.ObjectPath, agentID types.AgentID, mode types.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLock {
		return errors.New("lock refused")
	}
	f.locked = append(f.locked, agentID)
	return nil
}

func (f *fakeHandler) Surrender(ctx context.Context, object types.ObjectPath, agentID types.AgentID) error {
	return nil
}

func (f *fakeHandler) NotifySurrendered(ctx context.Context, to, from types.AgentID, lockID types.LockID) error {
	return nil
}

func (f *fakeHandler) RelayLockState(ctx context.Context, to types.AgentID, update types.LockStateUpdate) error {
	return nil
}

func (f *fakeHandler) Ping(ctx context.Context) error { return nil }

func startTestServer(t *testing.T, h Handler) (*Server, *StaticResolver) {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0", h)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	t.Cleanup(srv.Stop)

	resolver := NewStaticResolver()
	resolver.AddNode(types.NodeID("n1"), srv.Addr())
	resolver.AddAgent(types.AgentID("A2"), srv.Addr())
	return srv, resolver
}

func TestClientServerLockRoundTrip(t *testing.T) {
	h := &fakeHandler{}
	_, resolver := startTestServer(t, h)
	client := NewClient(types.AgentID("A1"), resolver)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	object := types.ObjectPath{types.ObjectName("o")}
	if err := client.Lock(ctx, types.NodeID("n1"), object, types.AgentID("A1"), types.ModeWrite); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.locked) != 1 || h.locked[0] != "A1" {
		t.Errorf("handler did not record lock call: %+v", h.locked)
	}
}

func TestClientServerLockFailurePropagates(t *testing.T) {
	h := &fakeHandler{failLock: true}
	_, resolver := startTestServer(t, h)
	client := NewClient(types.AgentID("A1"), resolver)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	object := types.ObjectPath{types.ObjectName("o")}
	if err := client.Lock(ctx, types.NodeID("n1"), object, types.AgentID("A1"), types.ModeWrite); err == nil {
		t.Fatal("expected error from refused lock")
	}
}

func TestClientUnknownNodeIsError(t *testing.T) {
	resolver := NewStaticResolver()
	client := NewClient(types.AgentID("A1"), resolver)
	defer client.Close()

	err := client.Lock(context.Background(), types.NodeID("ghost"), types.ObjectPath{types.ObjectName("o")}, types.AgentID("A1"), types.ModeWrite)
	if !errors.Is(err, ErrUnknownPeer) {
		t.Errorf("got %v want ErrUnknownPeer", err)
	}
}

func TestClientPing(t *testing.T) {
	h := &fakeHandler{}
	_, resolver := startTestServer(t, h)
	client := NewClient(types.AgentID("A1"), resolver)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx, types.NodeID("n1")); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestClientRelayLockState(t *testing.T) {
	h := &fakeHandler{}
	_, resolver := startTestServer(t, h)
	client := NewClient(types.AgentID("A1"), resolver)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	update := types.LockStateUpdate{
		Lock: types.Lock{ObjectID: types.LockID{Object: types.ObjectPath{types.ObjectName("o")}, Node: "n1"}, Version: 1},
	}
	if err := client.RelayLockState(ctx, types.AgentID("A2"), update); err != nil {
		t.Fatalf("RelayLockState: %v", err)
	}
}
