package main

import (
	"errors"
	"flag"
	"time"
)

// Config holds agentbench's tunables: how many wait-for cycles to build,
// how large each is, how many rounds to repeat, and how long to wait
// before counting a cycle as unresolved.
type Config struct {
	// Cycles is how many independent wait-for cycles to construct and
	// resolve per round.
	Cycles int

	// CycleLength is how many agents participate in each cycle (a ring of
	// N agents each waiting on the next).
	CycleLength int

	// Rounds is how many times to repeat the whole experiment.
	Rounds int

	// Timeout bounds how long a single round may take before it is
	// counted as a failure.
	Timeout time.Duration

	// PingInterval is set from -ping-interval but not read by the harness:
	// its agents use a no-op node monitor that never probes.
	PingInterval time.Duration

	// Verbose enables per-round progress logging.
	Verbose bool
}

// DefaultConfig returns agentbench's defaults.
func DefaultConfig() *Config {
	return &Config{
		Cycles:       4,
		CycleLength:  2,
		Rounds:       20,
		Timeout:      5 * time.Second,
		PingInterval: 50 * time.Millisecond,
	}
}

// parseFlags populates a Config from the command line.
func parseFlags() *Config {
	cfg := DefaultConfig()
	flag.IntVar(&cfg.Cycles, "cycles", cfg.Cycles, "number of independent wait-for cycles per round")
	flag.IntVar(&cfg.CycleLength, "cycle-length", cfg.CycleLength, "number of agents per cycle")
	flag.IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "number of rounds to run")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-round timeout")
	flag.DurationVar(&cfg.PingInterval, "ping-interval", cfg.PingInterval, "simulated node-monitor ping interval")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log per-round progress")
	flag.Parse()
	return cfg
}

// Validate checks the configuration is runnable.
func (c *Config) Validate() error {
	if c.Cycles <= 0 {
		return errors.New("agentbench: cycles must be positive")
	}
	if c.CycleLength < 2 {
		return errors.New("agentbench: cycle-length must be at least 2")
	}
	if c.Rounds <= 0 {
		return errors.New("agentbench: rounds must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("agentbench: timeout must be positive")
	}
	return nil
}
