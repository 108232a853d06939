package lockserver

import (
	"context"
	"testing"

	"github.com/distlock/txagent/types"
)

func TestLockGrantsImmediatelyWhenFree(t *testing.T) {
	srv := NewServer("N1")
	object := types.ObjectPath{"o1"}

	var updates []types.LockStateUpdate
	srv.Subscribe(object, func(u types.LockStateUpdate) { updates = append(updates, u) })

	if err := srv.Lock(context.Background(), object, "A1", types.ModeWrite); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	snap, ok := srv.Snapshot(object)
	if !ok {
		t.Fatalf("expected a snapshot after Lock")
	}
	head, ok := snap.Head()
	if !ok || !head.Has("A1") {
		t.Fatalf("expected A1 to hold the head, got %+v", snap)
	}
	if len(updates) != 1 {
		t.Fatalf("expected exactly 1 broadcast update, got %d", len(updates))
	}
}

func TestConcurrentReadersShareHead(t *testing.T) {
	srv := NewServer("N1")
	object := types.ObjectPath{"o1"}

	if err := srv.Lock(context.Background(), object, "A1", types.ModeRead); err != nil {
		t.Fatalf("Lock A1: %v", err)
	}
	if err := srv.Lock(context.Background(), object, "A2", types.ModeRead); err != nil {
		t.Fatalf("Lock A2: %v", err)
	}
	snap, _ := srv.Snapshot(object)
	head, _ := snap.Head()
	if len(head.Agents()) != 2 {
		t.Fatalf("expected both readers in the head group, got %+v", head)
	}
	if snap.Version == 0 {
		t.Fatalf("expected version to have advanced")
	}
}

func TestWriterQueuesBehindReaders(t *testing.T) {
	srv := NewServer("N1")
	object := types.ObjectPath{"o1"}

	srv.Lock(context.Background(), object, "A1", types.ModeRead)
	srv.Lock(context.Background(), object, "A2", types.ModeWrite)

	snap, _ := srv.Snapshot(object)
	if len(snap.Queue) != 2 {
		t.Fatalf("expected writer to queue behind readers, got queue %+v", snap.Queue)
	}
	head, _ := snap.Head()
	if !head.Has("A1") || head.Has("A2") {
		t.Fatalf("expected A1 still alone at head, got %+v", head)
	}
}

func TestSurrenderPromotesNextWaiter(t *testing.T) {
	srv := NewServer("N1")
	object := types.ObjectPath{"o1"}
	ctx := context.Background()

	srv.Lock(ctx, object, "A1", types.ModeWrite)
	srv.Lock(ctx, object, "A2", types.ModeWrite)

	var updates []types.LockStateUpdate
	srv.Subscribe(object, func(u types.LockStateUpdate) { updates = append(updates, u) })

	if err := srv.Surrender(ctx, object, "A1"); err != nil {
		t.Fatalf("Surrender: %v", err)
	}
	snap, _ := srv.Snapshot(object)
	head, ok := snap.Head()
	if !ok || !head.Has("A2") {
		t.Fatalf("expected A2 promoted to head, got %+v", snap)
	}
	if len(updates) != 1 || updates[0].Note.Kind != types.NoteSurrender || updates[0].Note.Agent != "A1" {
		t.Fatalf("expected a NoteSurrender update from A1, got %+v", updates)
	}
}

func TestSurrenderByNonHolderIsRejected(t *testing.T) {
	srv := NewServer("N1")
	object := types.ObjectPath{"o1"}
	ctx := context.Background()

	srv.Lock(ctx, object, "A1", types.ModeWrite)
	if err := srv.Surrender(ctx, object, "A2"); err != ErrAgentNotInQueue {
		t.Fatalf("expected ErrAgentNotInQueue, got %v", err)
	}
}

func TestClientRoutesThroughRegistry(t *testing.T) {
	srvN1 := NewServer("N1")
	srvN2 := NewServer("N2")
	reg := NewRegistry(nil)
	reg.Put("N1", srvN1)
	reg.Put("N2", srvN2)

	client := NewClient("A1", reg)
	object := types.ObjectPath{"o1"}
	ctx := context.Background()

	if err := client.Lock(ctx, "N1", object, "A1", types.ModeWrite); err != nil {
		t.Fatalf("Lock via client: %v", err)
	}
	if _, ok := srvN1.Snapshot(object); !ok {
		t.Fatalf("expected N1's server to have received the lock request")
	}
	if _, ok := srvN2.Snapshot(object); ok {
		t.Fatalf("expected N2's server to be untouched")
	}

	if err := client.Surrender(ctx, "N1", object); err != nil {
		t.Fatalf("Surrender via client: %v", err)
	}
	snap, _ := srvN1.Snapshot(object)
	if len(snap.Queue) != 0 {
		t.Fatalf("expected queue empty after surrender, got %+v", snap.Queue)
	}
}

func TestClientUnknownNodeIsError(t *testing.T) {
	reg := NewRegistry(nil)
	client := NewClient("A1", reg)
	err := client.Lock(context.Background(), "N9", types.ObjectPath{"o1"}, "A1", types.ModeWrite)
	if err != ErrUnknownLock {
		t.Fatalf("expected ErrUnknownLock, got %v", err)
	}
}

func TestLockRejectsOnceQueueAtMaxDepth(t *testing.T) {
	srv := NewServer("N1", WithMaxQueueDepth(2))
	object := types.ObjectPath{"o1"}
	ctx := context.Background()

	if err := srv.Lock(ctx, object, "A1", types.ModeWrite); err != nil {
		t.Fatalf("Lock A1: %v", err)
	}
	if err := srv.Lock(ctx, object, "A2", types.ModeWrite); err != nil {
		t.Fatalf("Lock A2: %v", err)
	}
	if err := srv.Lock(ctx, object, "A3", types.ModeWrite); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	snap, _ := srv.Snapshot(object)
	if len(snap.Queue) != 2 {
		t.Fatalf("expected the rejected request to leave the queue untouched, got %+v", snap.Queue)
	}
}

func TestLockAtCapacityStillMergesIntoHeadReadGroup(t *testing.T) {
	srv := NewServer("N1", WithMaxQueueDepth(1))
	object := types.ObjectPath{"o1"}
	ctx := context.Background()

	if err := srv.Lock(ctx, object, "A1", types.ModeRead); err != nil {
		t.Fatalf("Lock A1: %v", err)
	}
	if err := srv.Lock(ctx, object, "A2", types.ModeRead); err != nil {
		t.Fatalf("expected A2 to merge into the head read group despite being at capacity: %v", err)
	}
	snap, _ := srv.Snapshot(object)
	if len(snap.Queue) != 1 {
		t.Fatalf("expected queue to stay at one element, got %+v", snap.Queue)
	}
}

func TestClosedServerRejectsLockAndSurrender(t *testing.T) {
	srv := NewServer("N1")
	object := types.ObjectPath{"o1"}
	ctx := context.Background()

	srv.Lock(ctx, object, "A1", types.ModeWrite)
	srv.Close()

	if err := srv.Lock(ctx, object, "A2", types.ModeWrite); err != ErrServerStopped {
		t.Fatalf("expected ErrServerStopped from Lock, got %v", err)
	}
	if err := srv.Surrender(ctx, object, "A1"); err != ErrServerStopped {
		t.Fatalf("expected ErrServerStopped from Surrender, got %v", err)
	}
}

type promotionCountingMetrics struct {
	NoOpMetrics
	promotions int
}

func (m *promotionCountingMetrics) IncrPromotion(types.LockID) { m.promotions++ }

func TestSurrenderRecordsPromotionMetric(t *testing.T) {
	metrics := &promotionCountingMetrics{}
	srv := NewServer("N1", WithMetrics(metrics))
	object := types.ObjectPath{"o1"}
	ctx := context.Background()

	srv.Lock(ctx, object, "A1", types.ModeWrite)
	srv.Lock(ctx, object, "A2", types.ModeWrite)

	if err := srv.Surrender(ctx, object, "A1"); err != nil {
		t.Fatalf("Surrender: %v", err)
	}
	if metrics.promotions != 1 {
		t.Fatalf("expected 1 promotion recorded, got %d", metrics.promotions)
	}

	// A2 is now alone at the head; surrendering it empties the queue and
	// promotes nothing.
	if err := srv.Surrender(ctx, object, "A2"); err != nil {
		t.Fatalf("Surrender: %v", err)
	}
	if metrics.promotions != 1 {
		t.Fatalf("expected promotion count to stay at 1, got %d", metrics.promotions)
	}
}
