package memory

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/synaptica/cogmem/fact"
)

// EvictionStrategy selects how a full working memory makes room.
type EvictionStrategy string

const (
	// EvictRecency drops the least-recently-added fact. O(1).
	EvictRecency EvictionStrategy = "recency"
	// EvictWeight drops the fact with the globally minimum weight,
	// ties broken by lowest index. O(n) per insertion.
	EvictWeight EvictionStrategy = "weight"
)

// Valid reports whether s names a known strategy.
func (s EvictionStrategy) Valid() bool {
	return s == EvictRecency || s == EvictWeight
}

// WorkingMemoryConfig configures the bounded fact buffer.
type WorkingMemoryConfig struct {
	// Capacity bounds the buffer size. Defaults to 50.
	Capacity int
	// Strategy selects the eviction policy. Defaults to EvictRecency.
	Strategy EvictionStrategy
	// SampleFloor excludes facts below this weight from SampleByWeight.
	// Zero admits everything.
	SampleFloor float64
	// Now is used for testing. Defaults to time.Now.
	Now func() time.Time
}

// Metrics is a snapshot of working-memory counters. Hits count accepted
// inserts, Misses count rejected (invalid) inserts, Evictions count
// facts dropped to make room. AvgInsert is a running average of insert
// latency. Clear does not reset metrics.
type Metrics struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	AvgInsert time.Duration
}

// WorkingMemory is the bounded, in-process cache of the most salient
// recent facts. The capacity check runs strictly before insertion, so
// the buffer never exceeds its capacity at any observable point.
//
// It is safe for concurrent use: live ingestion races the sleep-cycle
// sampler and consolidation.
type WorkingMemory struct {
	mu        sync.Mutex
	facts     []fact.Fact
	capacity  int
	strategy  EvictionStrategy
	floor     float64
	metrics   Metrics
	createdAt time.Time
	now       func() time.Time
	logger    *zap.Logger
}

// NewWorkingMemory creates an empty buffer.
func NewWorkingMemory(config WorkingMemoryConfig, logger *zap.Logger) *WorkingMemory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Capacity <= 0 {
		config.Capacity = 50
	}
	if !config.Strategy.Valid() {
		config.Strategy = EvictRecency
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &WorkingMemory{
		facts:     make([]fact.Fact, 0, config.Capacity),
		capacity:  config.Capacity,
		strategy:  config.Strategy,
		floor:     config.SampleFloor,
		createdAt: now(),
		now:       now,
		logger:    logger.With(zap.String("component", "working_memory")),
	}
}

// AddFact appends a fact, evicting one entry first when the buffer is at
// capacity. Invalid facts are rejected without partial mutation.
func (w *WorkingMemory) AddFact(f fact.Fact) error {
	start := time.Now()

	if err := f.Validate(); err != nil {
		w.mu.Lock()
		w.metrics.Misses++
		w.mu.Unlock()
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.facts) >= w.capacity {
		switch w.strategy {
		case EvictWeight:
			w.evictByWeight()
		default:
			w.evictOldest()
		}
	}

	w.facts = append(w.facts, f)
	w.metrics.Hits++
	w.recordInsert(time.Since(start))

	w.logger.Debug("fact added",
		zap.String("fact_id", f.ID),
		zap.Float64("weight", f.Weight),
		zap.Int("size", len(w.facts)))
	return nil
}

// evictOldest drops the least-recently-added fact. Caller holds the lock.
func (w *WorkingMemory) evictOldest() {
	if len(w.facts) == 0 {
		return
	}
	evicted := w.facts[0]
	w.facts = append(w.facts[:0], w.facts[1:]...)
	w.metrics.Evictions++
	w.logger.Debug("evicted oldest fact", zap.String("fact_id", evicted.ID))
}

// evictByWeight drops the fact with the minimum weight, lowest index on
// ties. Caller holds the lock.
func (w *WorkingMemory) evictByWeight() {
	if len(w.facts) == 0 {
		return
	}
	minIdx := 0
	for i, f := range w.facts {
		if f.Weight < w.facts[minIdx].Weight {
			minIdx = i
		}
	}
	evicted := w.facts[minIdx]
	w.facts = append(w.facts[:minIdx], w.facts[minIdx+1:]...)
	w.metrics.Evictions++
	w.logger.Debug("evicted lightest fact",
		zap.String("fact_id", evicted.ID),
		zap.Float64("weight", evicted.Weight))
}

// Facts returns a snapshot of the buffer in insertion order, newest
// last. The snapshot does not reflect subsequent mutations.
func (w *WorkingMemory) Facts() []fact.Fact {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]fact.Fact(nil), w.facts...)
}

// Len returns the current number of buffered facts.
func (w *WorkingMemory) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.facts)
}

// SampleByWeight returns up to n facts sorted by descending weight.
// The sort is stable: ties keep their insertion order. The buffer is
// not mutated. Facts below the configured sample floor are skipped.
func (w *WorkingMemory) SampleByWeight(n int) []fact.Fact {
	w.mu.Lock()
	defer w.mu.Unlock()

	if n <= 0 {
		return nil
	}

	candidates := make([]fact.Fact, 0, len(w.facts))
	for _, f := range w.facts {
		if f.Weight >= w.floor {
			candidates = append(candidates, f)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Weight > candidates[j].Weight
	})
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}

// Consolidate rescales all buffered weights by the current maximum so
// the heaviest fact ends at exactly 1.0. A zero maximum is a no-op.
// Calling Consolidate twice without intervening inserts leaves weights
// unchanged. This is rescaling, not pruning.
func (w *WorkingMemory) Consolidate() {
	w.mu.Lock()
	defer w.mu.Unlock()

	var max float64
	for _, f := range w.facts {
		if f.Weight > max {
			max = f.Weight
		}
	}
	if max == 0 {
		return
	}
	for i := range w.facts {
		w.facts[i].Weight /= max
	}
	w.logger.Debug("working memory consolidated", zap.Float64("previous_max", max))
}

// Clear empties the buffer and resets the insertion clock. Metrics are
// deliberately preserved across clears.
func (w *WorkingMemory) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.facts = w.facts[:0]
	w.createdAt = w.now()
}

// Metrics returns a snapshot of the counters.
func (w *WorkingMemory) Metrics() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// recordInsert folds d into the running insert-latency average.
// Caller holds the lock.
func (w *WorkingMemory) recordInsert(d time.Duration) {
	n := w.metrics.Hits
	if n == 0 {
		return
	}
	w.metrics.AvgInsert += (d - w.metrics.AvgInsert) / time.Duration(n)
}
