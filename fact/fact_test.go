package fact

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/synaptica/cogmem/emotion"
)

func TestNew_DerivesWeightFromImpact(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	f := New("a quiet morning", SourceText, nil, emotion.Vector{Joy: 0.3, Calm: 0.4}, now)
	require.InDelta(t, 0.5, f.Weight, 1e-9)
	require.NotEmpty(t, f.ID)
	require.Equal(t, now, f.Timestamp)
}

func TestNew_WeightClampedToOne(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	f := New("overwhelming news", SourceConversation, nil,
		emotion.Vector{Joy: 1, Calm: 1, Anger: 1, Sadness: 1}, now)
	require.Equal(t, 1.0, f.Weight)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	valid := New("hello", SourceText, nil, emotion.Vector{}, now)
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		fact Fact
	}{
		{"missing id", Fact{Content: "x", Source: SourceText}},
		{"missing content", Fact{ID: "1", Source: SourceText}},
		{"unknown source", Fact{ID: "1", Content: "x", Source: "dream"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fact.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidFact))
		})
	}
}

func TestSource_Valid(t *testing.T) {
	t.Parallel()

	for _, s := range []Source{SourceText, SourceConversation, SourceObservation, SourceReflection} {
		require.True(t, s.Valid())
	}
	require.False(t, Source("radio").Valid())
}
