package cognition

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/synaptica/cogmem/emotion"
	"github.com/synaptica/cogmem/fact"
	"github.com/synaptica/cogmem/internal/metrics"
	"github.com/synaptica/cogmem/memory"
	"github.com/synaptica/cogmem/pattern"
	"github.com/synaptica/cogmem/store"
)

// SleepConfig configures the periodic consolidation routine.
type SleepConfig struct {
	// Interval between automatic cycles. Defaults to 24h.
	Interval time.Duration
	// FactCount is how many of the heaviest working-memory facts are
	// replayed per cycle. Defaults to 10.
	FactCount int
	// ReplayRate scales each replayed impact before it is applied to the
	// emotional state. Defaults to 0.1.
	ReplayRate float64
	// DecayRate is passed to the emotional state's decay at the end of
	// each cycle. Defaults to 0.1.
	DecayRate float64
	// PruneProbability is the chance a cycle also prunes weak patterns
	// and cleans old store data. Defaults to 0.2.
	PruneProbability float64
	// Retention and MinWeight drive store cleanup during prune cycles.
	// A zero Retention disables cleanup.
	Retention time.Duration
	MinWeight float64
	// Rand is used for testing the probabilistic prune. Defaults to
	// rand.Float64.
	Rand func() float64
}

func (c *SleepConfig) withDefaults() {
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	if c.FactCount <= 0 {
		c.FactCount = 10
	}
	if c.ReplayRate <= 0 {
		c.ReplayRate = 0.1
	}
	if c.DecayRate <= 0 {
		c.DecayRate = 0.1
	}
	if c.PruneProbability <= 0 {
		c.PruneProbability = 0.2
	}
	if c.Rand == nil {
		c.Rand = rand.Float64
	}
}

// CycleReport summarizes one completed sleep cycle.
type CycleReport struct {
	Sampled  int
	Replayed int
	Failures int
	Pruned   int
	Duration time.Duration
}

// SleepCycle periodically replays the heaviest recent facts at reduced
// emotional intensity, rescales working-memory weights, occasionally
// prunes weak patterns, and decays the emotional state.
//
// Start and Stop are idempotent; Stop waits for the background
// goroutine to exit and never leaks the ticker.
type SleepCycle struct {
	config    SleepConfig
	working   *memory.WorkingMemory
	patterns  *pattern.Store
	state     *emotion.State
	backing   store.VectorStore
	collector *metrics.Collector
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSleepCycle creates the routine. backing and collector may be nil;
// without a backing store, prune cycles skip the data cleanup step.
func NewSleepCycle(
	working *memory.WorkingMemory,
	patterns *pattern.Store,
	state *emotion.State,
	backing store.VectorStore,
	collector *metrics.Collector,
	config SleepConfig,
	logger *zap.Logger,
) *SleepCycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.withDefaults()
	return &SleepCycle{
		config:    config,
		working:   working,
		patterns:  patterns,
		state:     state,
		backing:   backing,
		collector: collector,
		logger:    logger.With(zap.String("component", "sleep_cycle")),
	}
}

// Start launches the periodic cycle. Calling Start on a running cycle
// is a no-op.
func (s *SleepCycle) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.loop(ctx, s.stopCh, s.doneCh)
	s.logger.Info("sleep cycle started", zap.Duration("interval", s.config.Interval))
}

// Stop halts the periodic cycle and waits for the goroutine to exit.
// Calling Stop on a stopped cycle is a no-op.
func (s *SleepCycle) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.logger.Info("sleep cycle stopped")
}

// Running reports whether the periodic cycle is active.
func (s *SleepCycle) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *SleepCycle) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report := s.RunOnce(ctx)
			s.logger.Info("sleep cycle completed",
				zap.Int("sampled", report.Sampled),
				zap.Int("replayed", report.Replayed),
				zap.Int("failures", report.Failures),
				zap.Int("pruned", report.Pruned),
				zap.Duration("duration", report.Duration))
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce executes a single cycle immediately. The replay step is
// best-effort: per-fact consolidation failures are counted, logged and
// skipped, never aborting the cycle.
func (s *SleepCycle) RunOnce(ctx context.Context) CycleReport {
	start := time.Now()
	report := CycleReport{}

	sampled := s.working.SampleByWeight(s.config.FactCount)
	report.Sampled = len(sampled)

	for _, f := range sampled {
		s.state.Update(f.Impact.Scale(s.config.ReplayRate))
		if err := s.patterns.ConsolidateFacts(ctx, []fact.Fact{f}); err != nil {
			report.Failures++
			s.logger.Warn("fact consolidation failed during replay",
				zap.String("fact_id", f.ID),
				zap.Error(err))
			continue
		}
		report.Replayed++
	}

	s.working.Consolidate()

	if s.config.Rand() < s.config.PruneProbability {
		pruned, err := s.patterns.Consolidate(ctx)
		if err != nil {
			report.Failures++
			s.logger.Warn("pattern pruning failed", zap.Error(err))
		} else {
			report.Pruned = pruned
			if s.collector != nil {
				s.collector.RecordPatternsPruned(pruned)
			}
		}

		if s.backing != nil && s.config.Retention > 0 {
			if err := s.backing.CleanupOldData(ctx, s.config.Retention, s.config.MinWeight); err != nil {
				report.Failures++
				s.logger.Warn("store cleanup failed", zap.Error(err))
			}
		}
	}

	s.state.Decay(s.config.DecayRate)

	report.Duration = time.Since(start)
	if s.collector != nil {
		s.collector.RecordSleepCycle(report.Duration)
		s.collector.SetEmotionalIntensity(s.state.Intensity())
		s.collector.SetActivePatterns(s.patterns.Len())
	}
	return report
}
