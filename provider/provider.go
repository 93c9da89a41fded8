// Package provider defines the external language-model collaborators
// of the cognitive engine: fact extraction, embedding and emotion
// scoring. The engine treats all three as opaque "text in, structured
// data out" calls that fail with a ProviderError; recovery policy
// (neutral fallbacks) belongs to the caller.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/synaptica/cogmem/emotion"
	"github.com/synaptica/cogmem/fact"
)

// ProviderError wraps any transport or parse failure from an external
// provider call, including timeouts.
type ProviderError struct {
	Op       string
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// Extraction is the structured result of a fact-extraction call.
type Extraction struct {
	Content   string
	Source    fact.Source
	Timestamp time.Time
	Impact    emotion.Vector
}

// Extractor converts raw input text into a structured extraction.
// contextHint carries recent channel history, and may be empty.
type Extractor interface {
	Extract(ctx context.Context, text, contextHint string) (Extraction, error)
}

// Embedder converts text into a fixed-dimension embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	// Dimension returns the fixed embedding dimensionality.
	Dimension() int
}

// EmotionScorer scores text on the four emotional dimensions, each
// clamped to [-1, 1].
type EmotionScorer interface {
	Score(ctx context.Context, text string) (emotion.Vector, error)
}
