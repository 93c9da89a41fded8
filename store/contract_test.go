package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/synaptica/cogmem/emotion"
	"github.com/synaptica/cogmem/fact"
	"github.com/synaptica/cogmem/pattern"
)

func contractFact(id string, embedding []float64, weight float64, ts time.Time) fact.Fact {
	return fact.Fact{
		ID:        id,
		Content:   "content-" + id,
		Source:    fact.SourceText,
		Timestamp: ts,
		Embedding: embedding,
		Impact:    emotion.Vector{Joy: weight},
		Weight:    weight,
	}
}

// testVectorStoreContract runs the behavior every VectorStore
// implementation must share. base is the reference time injected as
// the store's clock.
func testVectorStoreContract(t *testing.T, vs VectorStore, base time.Time) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, vs.Ping(ctx))

	// Similarity search ranks by cosine and respects the threshold.
	require.NoError(t, vs.StoreFact(ctx, contractFact("close", []float64{1, 0, 0}, 0.9, base)))
	require.NoError(t, vs.StoreFact(ctx, contractFact("near", []float64{0.9, 0.1, 0}, 0.5, base)))
	require.NoError(t, vs.StoreFact(ctx, contractFact("far", []float64{0, 0, 1}, 0.4, base)))

	hits, err := vs.FindSimilarFacts(ctx, []float64{1, 0, 0}, 0.8, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "close", hits[0].Fact.ID)
	require.Equal(t, "near", hits[1].Fact.ID)
	require.Greater(t, hits[0].Similarity, hits[1].Similarity)

	// Limit applies after ranking.
	hits, err = vs.FindSimilarFacts(ctx, []float64{1, 0, 0}, 0.8, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "close", hits[0].Fact.ID)

	// Invalid facts are rejected.
	err = vs.StoreFact(ctx, fact.Fact{ID: "bad"})
	require.True(t, IsStoreError(err))

	// Pattern upsert, lookup by member facts, significance ordering.
	p1 := pattern.Pattern{
		ID:           "p1",
		FactIDs:      []string{"close", "near"},
		Weight:       0.7,
		Signature:    emotion.Vector{Joy: 0.5},
		LastAccessed: base,
	}
	p2 := pattern.Pattern{
		ID:           "p2",
		FactIDs:      []string{"far"},
		Weight:       0.3,
		LastAccessed: base,
	}
	require.NoError(t, vs.StorePattern(ctx, p1))
	require.NoError(t, vs.StorePattern(ctx, p2))

	withClose, err := vs.FindPatternsWithFacts(ctx, []string{"close"})
	require.NoError(t, err)
	require.Len(t, withClose, 1)
	require.Equal(t, "p1", withClose[0].ID)
	require.ElementsMatch(t, []string{"close", "near"}, withClose[0].FactIDs)
	require.InDelta(t, 0.5, withClose[0].Signature.Joy, 1e-9)

	significant, err := vs.SignificantPatterns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, significant, 2)
	require.Equal(t, "p1", significant[0].ID)
	require.Equal(t, "p2", significant[1].ID)

	significant, err = vs.SignificantPatterns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, significant, 1)

	// Update round-trips and rejects unknown ids.
	p1.Weight = 0.9
	require.NoError(t, vs.UpdatePattern(ctx, p1))
	significant, err = vs.SignificantPatterns(ctx, 1)
	require.NoError(t, err)
	require.InDelta(t, 0.9, significant[0].Weight, 1e-9)

	err = vs.UpdatePattern(ctx, pattern.Pattern{ID: "ghost", FactIDs: []string{"x"}})
	require.True(t, IsStoreError(err))
	require.True(t, errors.Is(err, pattern.ErrPatternNotFound))

	// Removal.
	require.NoError(t, vs.RemovePatterns(ctx, []string{"p2"}))
	significant, err = vs.SignificantPatterns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, significant, 1)

	// Cleanup drops only old, light data. "close" is heavy, "far" is
	// light and old once the clock is a week past base.
	require.NoError(t, vs.CleanupOldData(ctx, 3*24*time.Hour, 0.45))

	hits, err = vs.FindSimilarFacts(ctx, []float64{0, 0, 1}, 0.9, 10)
	require.NoError(t, err)
	require.Empty(t, hits)

	hits, err = vs.FindSimilarFacts(ctx, []float64{1, 0, 0}, 0.99, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "close", hits[0].Fact.ID)

	require.NoError(t, vs.Close())
}
