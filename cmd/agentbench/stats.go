package main

import (
	"sort"
	"time"

	"github.com/distlock/txagent/types"
)

// LatencyStats reports distribution metrics over a set of surrender
// latencies: mean, median, p90, and the extremes.
type LatencyStats struct {
	Count  int
	Mean   time.Duration
	Median time.Duration
	P90    time.Duration
	Max    time.Duration
	Min    time.Duration
}

func computeLatencyStats(samples []time.Duration) LatencyStats {
	if len(samples) == 0 {
		return LatencyStats{}
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	return LatencyStats{
		Count:  len(sorted),
		Mean:   total / time.Duration(len(sorted)),
		Median: percentile(sorted, 0.50),
		P90:    percentile(sorted, 0.90),
		Max:    sorted[len(sorted)-1],
		Min:    sorted[0],
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// VictimDistribution counts how often each agent was selected as a
// deadlock victim across a run, surfacing whether §4.E's deterministic
// highest-agent victim choice produces a lopsided distribution across cycles
// built from the same agent pool.
type VictimDistribution map[types.AgentID]int

func (d VictimDistribution) record(victim types.AgentID) {
	d[victim]++
}
