package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocal_EmbedDeterministic(t *testing.T) {
	t.Parallel()

	l := NewLocal(64)
	ctx := context.Background()

	a, err := l.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	b, err := l.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)

	c, err := l.Embed(ctx, "something else entirely")
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestLocal_EmbedNormalized(t *testing.T) {
	t.Parallel()

	l := NewLocal(32)
	vec, err := l.Embed(context.Background(), "calm calm calm words")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	require.InDelta(t, 1.0, norm, 1e-9)
}

func TestLocal_EmbedEmptyText(t *testing.T) {
	t.Parallel()

	l := NewLocal(8)
	vec, err := l.Embed(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, make([]float64, 8), vec)
}

func TestLocal_ScoreLexicon(t *testing.T) {
	t.Parallel()

	l := NewLocal(0)
	ctx := context.Background()

	v, err := l.Score(ctx, "I am so happy today")
	require.NoError(t, err)
	require.Greater(t, v.Joy, 0.0)

	v, err = l.Score(ctx, "furious and miserable")
	require.NoError(t, err)
	require.Greater(t, v.Anger, 0.0)
	require.Greater(t, v.Sadness, 0.0)

	v, err = l.Score(ctx, "the ledger shows twelve entries")
	require.NoError(t, err)
	require.True(t, v.IsZero())
}

func TestLocal_ExtractPassthrough(t *testing.T) {
	t.Parallel()

	l := NewLocal(0)
	ex, err := l.Extract(context.Background(), "  a peaceful morning  ", "")
	require.NoError(t, err)
	require.Equal(t, "a peaceful morning", ex.Content)
	require.False(t, ex.Timestamp.IsZero())
	require.Greater(t, ex.Impact.Calm, 0.0)
	require.Empty(t, ex.Source)
}

func TestLocal_CancelledContext(t *testing.T) {
	t.Parallel()

	l := NewLocal(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Embed(ctx, "text")
	require.True(t, IsProviderError(err))
	_, err = l.Score(ctx, "text")
	require.True(t, IsProviderError(err))
	_, err = l.Extract(ctx, "text", "")
	require.True(t, IsProviderError(err))
}

func TestLocal_DefaultDimension(t *testing.T) {
	t.Parallel()
	require.Equal(t, 256, NewLocal(0).Dimension())
}
