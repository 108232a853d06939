package monitor

import (
	"context"

	"github.com/distlock/txagent/types"
)

// nodeWatch is the per-node background probe loop. refs counts how many
// Monitor() subscriptions are keeping it alive; it stops once the last one
// unsubscribes.
type nodeWatch struct {
	node types.NodeID
	m    *Monitor
	refs int

	done chan struct{}

	consecutiveFailures int
	down                bool
}

func newNodeWatch(node types.NodeID, m *Monitor) *nodeWatch {
	return &nodeWatch{node: node, m: m, done: make(chan struct{})}
}

func (w *nodeWatch) stop() { close(w.done) }

// run pings the node on cfg.PingInterval until stopped, reporting
// down/up transitions to the owning Monitor once FailureThreshold
// consecutive probes fail or the first probe succeeds again.
func (w *nodeWatch) run() {
	ticker := w.m.cfg.Clock.NewTicker(w.m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.Chan():
			w.probeOnce()
		}
	}
}

func (w *nodeWatch) probeOnce() {
	err := w.m.prober.Ping(context.Background(), w.node)
	if err != nil {
		w.consecutiveFailures++
		if !w.down && w.consecutiveFailures >= w.m.cfg.FailureThreshold {
			w.down = true
			w.m.cfg.Logger.Warnw("node marked down", "node", w.node, "err", err)
			w.m.onDown(w.node)
		}
		return
	}
	w.consecutiveFailures = 0
	if w.down {
		w.down = false
		w.m.cfg.Logger.Infow("node recovered", "node", w.node)
		w.m.onUp(w.node)
	}
}
