package provider

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/synaptica/cogmem/emotion"
)

// lexicon maps a small set of affect words to their emotional pull.
// Enough for development and tests; real deployments plug an LLM-backed
// scorer in instead.
var lexicon = map[string]emotion.Vector{
	"happy":     {Joy: 0.8, Calm: 0.2},
	"glad":      {Joy: 0.6, Calm: 0.2},
	"love":      {Joy: 0.9, Calm: 0.3},
	"great":     {Joy: 0.7},
	"good":      {Joy: 0.5, Calm: 0.2},
	"calm":      {Calm: 0.8},
	"peaceful":  {Calm: 0.9, Joy: 0.2},
	"relaxed":   {Calm: 0.7, Joy: 0.1},
	"angry":     {Anger: 0.9, Calm: -0.5},
	"furious":   {Anger: 1, Calm: -0.7},
	"annoyed":   {Anger: 0.5, Calm: -0.3},
	"hate":      {Anger: 0.8, Sadness: 0.2},
	"sad":       {Sadness: 0.8, Joy: -0.3},
	"miserable": {Sadness: 0.9, Joy: -0.5},
	"lonely":    {Sadness: 0.7, Calm: -0.2},
	"afraid":    {Sadness: 0.5, Calm: -0.6},
}

// Local is a deterministic, dependency-free implementation of all three
// provider interfaces: hashed bag-of-words embeddings, lexicon-based
// emotion scoring, and passthrough extraction. It never fails and needs
// no network, which makes it the default for development and the test
// double of choice for the full pipeline.
type Local struct {
	dimension int
	now       func() time.Time
}

// NewLocal creates a local provider with the given embedding dimension.
// Dimension defaults to 256.
func NewLocal(dimension int) *Local {
	if dimension <= 0 {
		dimension = 256
	}
	return &Local{dimension: dimension, now: time.Now}
}

// Extract returns the trimmed input as the fact content with a
// lexicon-scored impact. The source is left unset so the caller's
// channel identity stands.
func (l *Local) Extract(ctx context.Context, text, _ string) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, &ProviderError{Op: "extract", Provider: "local", Err: err}
	}
	impact, _ := l.Score(ctx, text)
	return Extraction{
		Content:   strings.TrimSpace(text),
		Timestamp: l.now(),
		Impact:    impact,
	}, nil
}

// Embed hashes each lowercased token into a bucket and L2-normalizes
// the result. Identical texts always embed identically.
func (l *Local) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ProviderError{Op: "embed", Provider: "local", Err: err}
	}

	vec := make([]float64, l.dimension)
	for _, token := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		vec[h.Sum64()%uint64(l.dimension)]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// Dimension returns the configured embedding dimensionality.
func (l *Local) Dimension() int { return l.dimension }

// Score averages the lexicon entries of matched tokens and clamps the
// result. Text without affect words scores neutral.
func (l *Local) Score(ctx context.Context, text string) (emotion.Vector, error) {
	if err := ctx.Err(); err != nil {
		return emotion.Vector{}, &ProviderError{Op: "score", Provider: "local", Err: err}
	}

	var matched []emotion.Vector
	for _, token := range tokenize(text) {
		if v, ok := lexicon[token]; ok {
			matched = append(matched, v)
		}
	}
	if len(matched) == 0 {
		return emotion.Vector{}, nil
	}
	return emotion.MeanOf(matched).Clamp(), nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}
