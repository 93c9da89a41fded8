package cognition

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/synaptica/cogmem/emotion"
	"github.com/synaptica/cogmem/fact"
	"github.com/synaptica/cogmem/memory"
	"github.com/synaptica/cogmem/pattern"
	"github.com/synaptica/cogmem/store"
)

type sleepFixture struct {
	working  *memory.WorkingMemory
	patterns *pattern.Store
	state    *emotion.State
	store    *store.InMemory
}

func newSleepFixture(t *testing.T) *sleepFixture {
	t.Helper()
	f := &sleepFixture{
		working: memory.NewWorkingMemory(memory.WorkingMemoryConfig{Capacity: 10}, zap.NewNop()),
		state:   emotion.NewState(emotion.StateConfig{}, zap.NewNop()),
		store:   store.NewInMemory(store.InMemoryConfig{}, zap.NewNop()),
	}
	f.patterns = pattern.NewStore(f.store, pattern.StoreConfig{}, zap.NewNop())
	return f
}

func (f *sleepFixture) cycle(config SleepConfig) *SleepCycle {
	return NewSleepCycle(f.working, f.patterns, f.state, f.store, nil, config, zap.NewNop())
}

func sleepFact(id string, joy float64) fact.Fact {
	return fact.Fact{
		ID:        id,
		Content:   "content-" + id,
		Source:    fact.SourceText,
		Timestamp: time.Now(),
		Embedding: []float64{1, 0, 0},
		Impact:    emotion.Vector{Joy: joy},
		Weight:    joy,
	}
}

func TestSleepCycle_RunOnce_ReplaysAndDecays(t *testing.T) {
	t.Parallel()

	f := newSleepFixture(t)
	require.NoError(t, f.working.AddFact(sleepFact("f1", 0.8)))

	sc := f.cycle(SleepConfig{
		Rand: func() float64 { return 0.99 }, // never prune
	})
	report := sc.RunOnce(context.Background())

	require.Equal(t, 1, report.Sampled)
	require.Equal(t, 1, report.Replayed)
	require.Zero(t, report.Failures)
	require.Zero(t, report.Pruned)

	// Replay applies 0.8*0.1, then the state decays by 10%.
	require.InDelta(t, 0.8*0.1*0.9, f.state.Quadrant().Joy, 1e-9)

	// Consolidation rescales the heaviest fact to 1.0.
	facts := f.working.Facts()
	require.Len(t, facts, 1)
	require.InDelta(t, 1.0, facts[0].Weight, 1e-9)
}

func TestSleepCycle_RunOnce_PromotesHeavyFacts(t *testing.T) {
	t.Parallel()

	f := newSleepFixture(t)
	require.NoError(t, f.working.AddFact(sleepFact("heavy", 0.9)))
	require.NoError(t, f.working.AddFact(sleepFact("light", 0.1)))

	sc := f.cycle(SleepConfig{Rand: func() float64 { return 0.99 }})
	report := sc.RunOnce(context.Background())

	require.Equal(t, 2, report.Sampled)
	// Only the heavy fact clears the pattern creation threshold.
	require.Equal(t, 1, f.patterns.Len())
}

func TestSleepCycle_RunOnce_PrunesWeakPatterns(t *testing.T) {
	t.Parallel()

	f := newSleepFixture(t)
	ctx := context.Background()

	require.NoError(t, f.patterns.StorePattern(ctx, pattern.Pattern{
		ID: "weak", FactIDs: []string{"x"}, Weight: 0.1, LastAccessed: time.Now(),
	}))
	require.NoError(t, f.patterns.StorePattern(ctx, pattern.Pattern{
		ID: "strong", FactIDs: []string{"y"}, Weight: 0.9, LastAccessed: time.Now(),
	}))

	sc := f.cycle(SleepConfig{
		Rand:      func() float64 { return 0.0 }, // always prune
		Retention: 30 * 24 * time.Hour,
		MinWeight: 0.2,
	})
	report := sc.RunOnce(ctx)

	require.Equal(t, 1, report.Pruned)
	require.Equal(t, 1, f.patterns.Len())
}

func TestSleepCycle_RunOnce_SampleBound(t *testing.T) {
	t.Parallel()

	f := newSleepFixture(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, f.working.AddFact(sleepFact(
			string(rune('a'+i)), 0.2)))
	}

	sc := f.cycle(SleepConfig{
		FactCount: 3,
		Rand:      func() float64 { return 0.99 },
	})
	report := sc.RunOnce(context.Background())
	require.Equal(t, 3, report.Sampled)
}

func TestSleepCycle_StartStopIdempotent(t *testing.T) {
	t.Parallel()

	f := newSleepFixture(t)
	sc := f.cycle(SleepConfig{
		Interval: 10 * time.Millisecond,
		Rand:     func() float64 { return 0.99 },
	})

	ctx := context.Background()
	require.False(t, sc.Running())

	sc.Start(ctx)
	sc.Start(ctx)
	require.True(t, sc.Running())

	sc.Stop()
	require.False(t, sc.Running())
	sc.Stop()
}

func TestSleepCycle_StopWaitsForLoop(t *testing.T) {
	t.Parallel()

	f := newSleepFixture(t)
	require.NoError(t, f.working.AddFact(sleepFact("f1", 0.4)))

	sc := f.cycle(SleepConfig{
		Interval: time.Millisecond,
		Rand:     func() float64 { return 0.99 },
	})
	sc.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	sc.Stop()

	// At least one cycle ran and decayed the state below the replayed
	// impact sum.
	require.False(t, sc.Running())
}

func TestSleepCycle_ContextCancelStopsLoop(t *testing.T) {
	t.Parallel()

	f := newSleepFixture(t)
	sc := f.cycle(SleepConfig{Interval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	sc.Start(ctx)
	cancel()

	// The loop exits on its own; Stop still cleans up the flag without
	// blocking.
	time.Sleep(10 * time.Millisecond)
	sc.Stop()
	require.False(t, sc.Running())
}
