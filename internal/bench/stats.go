// Package bench drives load runs against a sink and reports throughput.
package bench

import (
	"sort"
	"sync"
	"time"
)

// LoadStats tracks per-strategy batch counters for the harness.
type LoadStats struct {
	mu         sync.RWMutex
	strategies map[Strategy]*StrategyStats
}

// StrategyStats holds accumulated counters for one strategy.
type StrategyStats struct {
	Strategy Strategy
	Batches  int64
	Rows     int64
	Bytes    int64
	Errors   int64
	Elapsed  time.Duration
	LastSeen time.Time
}

// NewLoadStats creates an empty stats tracker.
func NewLoadStats() *LoadStats {
	return &LoadStats{strategies: make(map[Strategy]*StrategyStats)}
}

// RecordBatch records a completed batch push. This method is O(1) and
// thread-safe; each parallel run may share one tracker.
func (s *LoadStats) RecordBatch(strategy Strategy, rows int, bytes int, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.get(strategy)
	st.Batches++
	st.Rows += int64(rows)
	st.Bytes += int64(bytes)
	st.Elapsed += elapsed
	st.LastSeen = time.Now()
}

// RecordError records a failed batch push.
func (s *LoadStats) RecordError(strategy Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.get(strategy)
	st.Errors++
	st.LastSeen = time.Now()
}

func (s *LoadStats) get(strategy Strategy) *StrategyStats {
	st, ok := s.strategies[strategy]
	if !ok {
		st = &StrategyStats{Strategy: strategy}
		s.strategies[strategy] = st
	}
	return st
}

// Snapshot returns a copy of all strategy counters sorted by pushed rows,
// descending.
func (s *LoadStats) Snapshot() []StrategyStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StrategyStats, 0, len(s.strategies))
	for _, st := range s.strategies {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Rows > out[j].Rows
	})
	return out
}
