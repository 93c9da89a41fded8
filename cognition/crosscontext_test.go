package cognition

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/synaptica/cogmem/emotion"
	"github.com/synaptica/cogmem/fact"
	"github.com/synaptica/cogmem/pattern"
)

func crossFact(id string, source fact.Source) fact.Fact {
	return fact.Fact{
		ID:        id,
		Content:   "content-" + id,
		Source:    source,
		Timestamp: time.Now(),
		Impact:    emotion.Vector{Joy: 0.4},
		Weight:    0.4,
	}
}

func TestCrossContextPatterns_MergesDisjointSources(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.working.AddFact(crossFact("t1", fact.SourceText)))
	require.NoError(t, f.working.AddFact(crossFact("o1", fact.SourceObservation)))

	require.NoError(t, f.patterns.StorePattern(ctx, pattern.Pattern{
		ID: "pt", FactIDs: []string{"t1"}, Weight: 0.8,
		Signature: emotion.Vector{Joy: 0.6}, LastAccessed: time.Now(),
	}))
	require.NoError(t, f.patterns.StorePattern(ctx, pattern.Pattern{
		ID: "po", FactIDs: []string{"o1"}, Weight: 0.4,
		Signature: emotion.Vector{Calm: 0.2}, LastAccessed: time.Now(),
	}))

	merges, err := f.orch.CrossContextPatterns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, merges, 1)

	m := merges[0]
	require.NotEmpty(t, m.ID)
	require.ElementsMatch(t, []string{"pt", "po"}, m.PatternIDs)
	require.Equal(t, []fact.Source{fact.SourceObservation, fact.SourceText}, m.Sources)
	require.InDelta(t, 0.6, m.Weight, 1e-9)
	require.InDelta(t, 0.3, m.Signature.Joy, 1e-9)
	require.InDelta(t, 0.1, m.Signature.Calm, 1e-9)
	require.InDelta(t, 1.0, m.Confidence, 1e-9)
}

func TestCrossContextPatterns_SkipsSharedSources(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.working.AddFact(crossFact("t1", fact.SourceText)))
	require.NoError(t, f.working.AddFact(crossFact("t2", fact.SourceText)))

	require.NoError(t, f.patterns.StorePattern(ctx, pattern.Pattern{
		ID: "p1", FactIDs: []string{"t1"}, Weight: 0.8, LastAccessed: time.Now(),
	}))
	require.NoError(t, f.patterns.StorePattern(ctx, pattern.Pattern{
		ID: "p2", FactIDs: []string{"t2"}, Weight: 0.7, LastAccessed: time.Now(),
	}))

	merges, err := f.orch.CrossContextPatterns(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, merges)
}

func TestCrossContextPatterns_SkipsUnresolvableFacts(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	ctx := context.Background()

	// "gone" aged out of both working memory and the sensory windows.
	require.NoError(t, f.working.AddFact(crossFact("t1", fact.SourceText)))

	require.NoError(t, f.patterns.StorePattern(ctx, pattern.Pattern{
		ID: "p1", FactIDs: []string{"t1"}, Weight: 0.8, LastAccessed: time.Now(),
	}))
	require.NoError(t, f.patterns.StorePattern(ctx, pattern.Pattern{
		ID: "p2", FactIDs: []string{"gone"}, Weight: 0.7, LastAccessed: time.Now(),
	}))

	merges, err := f.orch.CrossContextPatterns(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, merges)
}

func TestCrossContextPatterns_ConfidenceScalesWithTotal(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.working.AddFact(crossFact("t1", fact.SourceText)))
	require.NoError(t, f.working.AddFact(crossFact("o1", fact.SourceObservation)))
	require.NoError(t, f.working.AddFact(crossFact("c1", fact.SourceConversation)))

	for _, p := range []pattern.Pattern{
		{ID: "pt", FactIDs: []string{"t1"}, Weight: 0.9, LastAccessed: time.Now()},
		{ID: "po", FactIDs: []string{"o1"}, Weight: 0.8, LastAccessed: time.Now()},
		{ID: "pc", FactIDs: []string{"c1"}, Weight: 0.7, LastAccessed: time.Now()},
	} {
		require.NoError(t, f.patterns.StorePattern(ctx, p))
	}

	merges, err := f.orch.CrossContextPatterns(ctx, 0)
	require.NoError(t, err)
	// Every pair has disjoint sources.
	require.Len(t, merges, 3)
	for _, m := range merges {
		require.InDelta(t, 2.0/3.0, m.Confidence, 1e-9)
	}
}

func TestCrossContextPatterns_CancelledContext(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.orch.CrossContextPatterns(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
}
