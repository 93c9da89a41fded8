package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/synaptica/cogmem/emotion"
	"github.com/synaptica/cogmem/fact"
)

// Property: the buffer never exceeds its capacity at any point in any
// insertion sequence, for either eviction strategy.
func TestProperty_CapacityNeverExceeded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	for _, strategy := range []EvictionStrategy{EvictRecency, EvictWeight} {
		strategy := strategy
		name := fmt.Sprintf("len(facts) <= capacity under %s eviction", strategy)
		properties.Property(name, prop.ForAll(
			func(capacity int, weights []float64) bool {
				wm := NewWorkingMemory(WorkingMemoryConfig{
					Capacity: capacity,
					Strategy: strategy,
				}, zap.NewNop())

				now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
				for i, weight := range weights {
					f := fact.New(fmt.Sprintf("fact-%d", i), fact.SourceText, nil, emotion.Vector{}, now)
					f.Weight = weight
					if err := wm.AddFact(f); err != nil {
						return false
					}
					if wm.Len() > capacity {
						return false
					}
				}
				return true
			},
			gen.IntRange(1, 20),
			gen.SliceOf(gen.Float64Range(0, 1)),
		))
	}

	properties.TestingRun(t)
}

// Randomized state machine over the full working-memory surface:
// inserts, clears, consolidations and samples, checking the capacity
// bound, sample ordering and consolidation idempotence throughout.
func TestWorkingMemory_StateMachine(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 8).Draw(rt, "capacity")
		strategy := rapid.SampledFrom([]EvictionStrategy{EvictRecency, EvictWeight}).Draw(rt, "strategy")

		wm := NewWorkingMemory(WorkingMemoryConfig{
			Capacity: capacity,
			Strategy: strategy,
		}, zap.NewNop())
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		rt.Repeat(map[string]func(*rapid.T){
			"add": func(rt *rapid.T) {
				f := fact.New("observation", fact.SourceObservation, nil, emotion.Vector{}, now)
				f.Weight = rapid.Float64Range(0, 1).Draw(rt, "weight")
				require.NoError(rt, wm.AddFact(f))
				require.LessOrEqual(rt, wm.Len(), capacity)
			},
			"sample": func(rt *rapid.T) {
				n := rapid.IntRange(0, 10).Draw(rt, "n")
				sample := wm.SampleByWeight(n)
				for i := 1; i < len(sample); i++ {
					require.GreaterOrEqual(rt, sample[i-1].Weight, sample[i].Weight)
				}
			},
			"consolidate": func(rt *rapid.T) {
				wm.Consolidate()
				before := wm.Facts()
				wm.Consolidate()
				after := wm.Facts()
				require.Equal(rt, len(before), len(after))
				for i := range before {
					require.InDelta(rt, before[i].Weight, after[i].Weight, 1e-9)
				}
			},
			"clear": func(rt *rapid.T) {
				wm.Clear()
				require.Zero(rt, wm.Len())
			},
		})
	})
}
