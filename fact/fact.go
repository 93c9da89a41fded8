// Package fact defines the atomic unit of processed sensory input: an
// immutable record carrying content, an embedding, an emotional impact
// and a derived salience weight.
package fact

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/synaptica/cogmem/emotion"
)

// Source identifies the input channel a fact was extracted from.
type Source string

const (
	SourceText         Source = "text"
	SourceConversation Source = "conversation"
	SourceObservation  Source = "observation"
	SourceReflection   Source = "reflection"
)

// Valid reports whether s is one of the known input channels.
func (s Source) Valid() bool {
	switch s {
	case SourceText, SourceConversation, SourceObservation, SourceReflection:
		return true
	}
	return false
}

// ErrInvalidFact is returned when a fact is missing required fields.
var ErrInvalidFact = errors.New("fact: missing required fields")

// Fact is an immutable-after-creation record of processed input.
//
// Weight is set once at creation from the L2 norm of the emotional
// impact, clamped to 1. Working memory keeps its own copies and may
// rescale the weights of those copies during consolidation; the fact
// itself is never mutated.
type Fact struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Source    Source         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Embedding []float64      `json:"embedding,omitempty"`
	Impact    emotion.Vector `json:"impact"`
	Weight    float64        `json:"weight"`
}

// New builds a fact with a fresh UUID and a weight derived from the
// impact magnitude.
func New(content string, source Source, embedding []float64, impact emotion.Vector, now time.Time) Fact {
	return Fact{
		ID:        uuid.New().String(),
		Content:   content,
		Source:    source,
		Timestamp: now,
		Embedding: embedding,
		Impact:    impact.Clamp(),
		Weight:    WeightOf(impact),
	}
}

// WeightOf derives a salience weight in [0, 1] from an impact vector.
func WeightOf(impact emotion.Vector) float64 {
	w := impact.Magnitude()
	if w > 1 {
		w = 1
	}
	return w
}

// Validate rejects facts that lack an id, content or a known source.
func (f Fact) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("%w: id", ErrInvalidFact)
	}
	if f.Content == "" {
		return fmt.Errorf("%w: content", ErrInvalidFact)
	}
	if !f.Source.Valid() {
		return fmt.Errorf("%w: source %q", ErrInvalidFact, f.Source)
	}
	return nil
}
