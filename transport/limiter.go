package transport

import (
	"context"
	"sync"

	"github.com/distlock/txagent/types"
	"golang.org/x/time/rate"
)

// limiterSet hands out one golang.org/x/time/rate.Limiter per destination,
// created lazily. It throttles outbound Lock/Surrender traffic per node so
// a batch of requests reissued after a locks_running(N) recovery (§4.F)
// does not immediately re-swamp the node that just came back.
type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newLimiterSet(r rate.Limit, burst int) *limiterSet {
	return &limiterSet{limiters: make(map[string]*rate.Limiter), r: r, burst: burst}
}

func (s *limiterSet) wait(ctx context.Context, key string) error {
	s.mu.Lock()
	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(s.r, s.burst)
		s.limiters[key] = l
	}
	s.mu.Unlock()
	return l.Wait(ctx)
}

func nodeKey(node types.NodeID) string { return "node:" + string(node) }
func agentKey(agent types.AgentID) string { return "agent:" + string(agent) }
