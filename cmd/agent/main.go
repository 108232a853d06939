// Command agent runs a single Transaction Agent process (§1–§6): it
// connects to one or more lock-server nodes and sibling agents over gRPC,
// drives the decision engine in the agent package, and exposes that
// engine to its owning client through the client package's in-process
// facade.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/distlock/txagent/agent"
	"github.com/distlock/txagent/client"
	"github.com/distlock/txagent/clock"
	"github.com/distlock/txagent/logger"
	"github.com/distlock/txagent/monitor"
	"github.com/distlock/txagent/transport"
	"github.com/distlock/txagent/types"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("🛑 received signal %v, shutting down", sig)
		cancel()
	}()

	cfg := parseFlags()
	if err := cfg.Validate(); err != nil {
		log.Printf("❌ configuration error: %v", err)
		os.Exit(exitFailure)
	}

	if err := run(ctx, cfg); err != nil {
		log.Printf("❌ agent exited with error: %v", err)
		os.Exit(exitFailure)
	}
	log.Printf("✅ agent shut down cleanly")
	os.Exit(exitSuccess)
}

func run(ctx context.Context, cfg *Config) error {
	log_ := logger.NewStdLogger(cfg.LogLevel)

	resolver := transport.NewStaticResolver()
	for node, addr := range cfg.Nodes {
		resolver.AddNode(node, addr)
	}
	for peer, addr := range cfg.Peers {
		resolver.AddAgent(peer, addr)
	}
	resolver.AddAgent(cfg.AgentID, cfg.ListenAddr)

	txClient := transport.NewClient(cfg.AgentID, resolver, transport.WithClientLogger(log_))
	defer txClient.Close()

	mon := monitor.New(txClient,
		monitor.WithPingInterval(cfg.PingInterval),
		monitor.WithLogger(log_),
		monitor.WithClock(clock.New()),
	)

	awaitNodes := cfg.AwaitNodes && cfg.Flags.Resilience.EnableNodeWatchers
	acfg := agent.NewConfig(agent.DefaultConfig(cfg.ClientID, cfg.AgentID),
		agent.WithAbortOnDeadlock(cfg.AbortOnDeadlock),
		agent.WithAwaitNodes(awaitNodes),
		agent.WithNotify(cfg.Notify),
	)

	var metrics agent.Metrics = agent.NoOpMetrics{}
	if cfg.Flags.Observability.EnableMetrics {
		metrics = agent.NewLoggingMetrics(log_)
	}

	a, err := agent.New(acfg, agent.Dependencies{
		LockServer: txClient,
		Transport:  txClient,
		Monitor:    mon,
		Logger:     log_,
		Clock:      clock.New(),
		Metrics:    metrics,
	})
	if err != nil {
		return fmt.Errorf("constructing agent: %w", err)
	}
	go a.Run()

	srv, err := transport.NewServer(cfg.ListenAddr, newPeerHandler(a), transport.WithServerLogger(log_))
	if err != nil {
		return fmt.Errorf("starting peer server: %w", err)
	}
	go func() {
		if err := srv.Serve(); err != nil {
			log.Printf("⚠️  peer server stopped: %v", err)
		}
	}()
	defer srv.Stop()

	log.Printf("▶️  agent %s (client %s) listening on %s", cfg.AgentID, cfg.ClientID, srv.Addr())

	c := client.New(a, cfg.ClientID)
	defer c.Close()

	go reportNotifications(c)

	repl(ctx, c)

	stopCtx, stopCancel := context.WithCancel(context.Background())
	defer stopCancel()
	return c.Stop(stopCtx)
}

// reportNotifications prints every persistent event notification (§6.1)
// received while Notify is enabled. The notification channel is never
// closed, so it runs until the process exits.
func reportNotifications(c *client.Client) {
	for n := range c.Notifications() {
		switch {
		case n.HaveAll != nil:
			log.Printf("📣 notification: agent=%s status=%v", n.Agent, n.HaveAll.Status)
		case n.Update != nil:
			log.Printf("📣 notification: agent=%s lock=%v where=%s", n.Agent, n.Update.Lock.ObjectID, n.Update.Where)
		default:
			log.Printf("📣 notification: agent=%s", n.Agent)
		}
	}
}

// repl offers a minimal line-oriented shell over the client facade so an
// operator can drive a single agent interactively: "lock <object> <r|w>
// <node,...>", "await", "info", or "quit". It exists to give this
// scaled-down single-process entry point something to do without a real
// client application attached.
func repl(ctx context.Context, c *client.Client) {
	scanner := bufio.NewScanner(os.Stdin)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !handleLine(ctx, c, line) {
				return
			}
		}
	}
}

func handleLine(ctx context.Context, c *client.Client, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	switch fields[0] {
	case "quit", "exit":
		return false
	case "lock":
		if len(fields) < 4 {
			log.Printf("usage: lock <object> <r|w> <node,...>")
			return true
		}
		mode := types.ModeRead
		if fields[2] == "w" {
			mode = types.ModeWrite
		}
		var nodes []types.NodeID
		for _, n := range strings.Split(fields[3], ",") {
			nodes = append(nodes, types.NodeID(n))
		}
		object := types.ObjectPath{types.ObjectName(fields[1])}
		if err := c.Lock(ctx, object, mode, nodes, types.RequireAll, true); err != nil {
			log.Printf("lock failed: %v", err)
		}
	case "await":
		result, err := c.AwaitAllLocks(ctx)
		if err != nil {
			log.Printf("await failed: %v", err)
			return true
		}
		log.Printf("status=%v", result.Status)
	case "info":
		snap, err := c.LockInfo(ctx)
		if err != nil {
			log.Printf("info failed: %v", err)
			return true
		}
		log.Printf("locks: %+v", snap)
	default:
		log.Printf("unrecognized command: %s", fields[0])
	}
	return true
}
