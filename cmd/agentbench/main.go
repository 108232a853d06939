// Command agentbench measures how quickly and how fairly this repository's
// deadlock resolver (§4.E) breaks cycles, the natural "benchmark" for a
// coordinator with no throughput of its own to measure: it wires up N
// in-process agents against the in-memory lockserver, arranges them into
// configurable wait-for cycles, and reports surrender latency and
// victim-selection distribution across repeated rounds.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/distlock/txagent/agent"
	"github.com/distlock/txagent/client"
	"github.com/distlock/txagent/lockserver"
	"github.com/distlock/txagent/logger"
	"github.com/distlock/txagent/types"
)

const benchNode = types.NodeID("bench-node")

func main() {
	cfg := parseFlags()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("agentbench: %v", err)
	}

	suite := newSuite(cfg)
	results := suite.run()
	suite.report(results)
}

// suite coordinates repeated cycle-and-resolve rounds against one shared
// in-memory lockserver.Server.
type suite struct {
	cfg    *Config
	log    logger.Logger
	server *lockserver.Server
}

func newSuite(cfg *Config) *suite {
	return &suite{
		cfg:    cfg,
		log:    logger.NewNoOpLogger(),
		server: lockserver.NewServer(string(benchNode)),
	}
}

// roundResult is what one round of cycle-construction-and-resolution
// yields: one surrender event per cycle, or a timeout.
type roundResult struct {
	latencies []time.Duration
	victims   []types.AgentID
	timeouts  int
}

func (s *suite) run() []roundResult {
	results := make([]roundResult, s.cfg.Rounds)
	for round := 0; round < s.cfg.Rounds; round++ {
		if s.cfg.Verbose {
			log.Printf("agentbench: round %d/%d", round+1, s.cfg.Rounds)
		}
		results[round] = s.runRound(round)
	}
	return results
}

// runRound builds cfg.Cycles independent wait-for cycles of cfg.CycleLength
// agents each, all sharing the bench node's lockserver, and waits for every
// cycle to resolve (via a voluntary surrender) or time out.
func (s *suite) runRound(round int) roundResult {
	var mu sync.Mutex
	result := roundResult{}

	var wg sync.WaitGroup
	for c := 0; c < s.cfg.Cycles; c++ {
		wg.Add(1)
		go func(cycleIdx int) {
			defer wg.Done()
			latency, victim, ok := s.runCycle(round, cycleIdx)
			mu.Lock()
			defer mu.Unlock()
			if !ok {
				result.timeouts++
				return
			}
			result.latencies = append(result.latencies, latency)
			result.victims = append(result.victims, victim)
		}(c)
	}
	wg.Wait()
	return result
}

// runCycle builds a ring of cfg.CycleLength agents, each holding one
// object and waiting on its neighbor's, which is exactly the wait-for
// cycle shape §4.E's resolver is built to detect, and reports the first
// surrender observed on the ring's objects.
func (s *suite) runCycle(round, cycleIdx int) (time.Duration, types.AgentID, bool) {
	n := s.cfg.CycleLength
	objects := make([]types.ObjectPath, n)
	agentIDs := make([]types.AgentID, n)
	for i := 0; i < n; i++ {
		objects[i] = types.ObjectPath{types.ObjectName(fmt.Sprintf("r%d-c%d-o%d", round, cycleIdx, i))}
		agentIDs[i] = types.AgentID(fmt.Sprintf("r%d-c%d-a%d", round, cycleIdx, i))
	}

	surrendered := make(chan types.AgentID, n)
	var unsubscribes []func()
	for i := 0; i < n; i++ {
		unsub := s.server.Subscribe(objects[i], func(update types.LockStateUpdate) {
			if update.Note.Kind == types.NoteSurrender {
				select {
				case surrendered <- update.Note.Agent:
				default:
				}
			}
		})
		unsubscribes = append(unsubscribes, unsub)
	}
	defer func() {
		for _, u := range unsubscribes {
			u()
		}
	}()

	clients := make([]*client.Client, n)
	registry := lockserver.NewRegistry(s.log)
	registry.Put(benchNode, s.server)

	for i := 0; i < n; i++ {
		lsClient := lockserver.NewClient(agentIDs[i], registry)
		cfg := agent.NewConfig(agent.DefaultConfig(agentIDs[i], agentIDs[i]),
			agent.WithAbortOnDeadlock(false),
		)
		a, err := agent.New(cfg, agent.Dependencies{
			LockServer: lsClient,
			Transport:  noopTransport{},
			Monitor:    noopMonitor{},
		})
		if err != nil {
			log.Fatalf("agentbench: agent.New: %v", err)
		}
		for j := 0; j < n; j++ {
			s.server.Subscribe(objects[j], a.NotifyLockState)
		}
		go a.Run()
		clients[i] = client.New(a, agentIDs[i])
	}
	defer func() {
		for _, c := range clients {
			c.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	// Each agent takes its own object uncontested first.
	for i := 0; i < n; i++ {
		if err := clients[i].Lock(ctx, objects[i], types.ModeWrite, []types.NodeID{benchNode}, types.RequireAll, false); err != nil {
			log.Printf("agentbench: initial lock failed for %s: %v", agentIDs[i], err)
		}
	}

	// Then each agent queues behind its neighbor's object, closing the
	// ring and handing the resolver a cycle to break.
	start := time.Now()
	for i := 0; i < n; i++ {
		next := (i + 1) % n
		go func(i, next int) {
			_ = clients[i].Lock(ctx, objects[next], types.ModeWrite, []types.NodeID{benchNode}, types.RequireAll, true)
		}(i, next)
	}

	select {
	case victim := <-surrendered:
		return time.Since(start), victim, true
	case <-ctx.Done():
		return 0, "", false
	}
}

func (s *suite) report(results []roundResult) {
	var allLatencies []time.Duration
	victimCounts := make(VictimDistribution)
	totalTimeouts := 0
	for _, r := range results {
		allLatencies = append(allLatencies, r.latencies...)
		for _, v := range r.victims {
			victimCounts.record(v)
		}
		totalTimeouts += r.timeouts
	}

	stats := computeLatencyStats(allLatencies)
	fmt.Fprintf(os.Stdout, "agentbench: %d rounds, %d cycles/round, cycle length %d\n",
		s.cfg.Rounds, s.cfg.Cycles, s.cfg.CycleLength)
	fmt.Fprintf(os.Stdout, "  resolved: %d   timed out: %d\n", stats.Count, totalTimeouts)
	fmt.Fprintf(os.Stdout, "  surrender latency: mean=%v median=%v p90=%v min=%v max=%v\n",
		stats.Mean, stats.Median, stats.P90, stats.Min, stats.Max)
	fmt.Fprintf(os.Stdout, "  distinct victims: %d\n", len(victimCounts))
	victims := make([]types.AgentID, 0, len(victimCounts))
	for v := range victimCounts {
		victims = append(victims, v)
	}
	for _, v := range types.SortAgentIDs(victims) {
		fmt.Fprintf(os.Stdout, "    %s: %d\n", v, victimCounts[v])
	}
}

// noopTransport satisfies agent.Transport: every cycle in this harness is
// self-contained on one simulated node, so peer-to-peer relay traffic
// never needs to leave the process.
type noopTransport struct{}

func (noopTransport) NotifySurrendered(ctx context.Context, to, from types.AgentID, lockID types.LockID) error {
	return nil
}

func (noopTransport) RelayLockState(ctx context.Context, to types.AgentID, update types.LockStateUpdate) error {
	return nil
}

// noopMonitor satisfies agent.NodeMonitor: agentbench never simulates node
// loss, only contention.
type noopMonitor struct{}

func (noopMonitor) Monitor(node types.NodeID) (agent.MonitorToken, error) { return 1, nil }
func (noopMonitor) Unmonitor(agent.MonitorToken)                         {}
func (noopMonitor) WatchRecovery(node types.NodeID) <-chan struct{}      { return make(chan struct{}) }
