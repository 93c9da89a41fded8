package pattern

import (
	"context"
	"errors"
	"time"

	"github.com/synaptica/cogmem/emotion"
	"github.com/synaptica/cogmem/fact"
)

// ErrPatternNotFound is returned when an operation references an
// unknown pattern id. Unknown ids are an explicit error, not a silent
// no-op, so callers can distinguish a lost pattern from a weak one.
var ErrPatternNotFound = errors.New("pattern: not found")

// Pattern is a weighted cluster of facts sharing embedding similarity,
// with an aggregate emotional signature.
//
// FactIDs is kept unique; a pattern is never empty. Weight lives in
// [0, 1] (it may exceed 1 transiently inside a strengthen computation
// before clamping). Signature is the running average impact of member
// facts. LastAccessed moves on every strengthen or merge.
type Pattern struct {
	ID           string         `json:"id"`
	FactIDs      []string       `json:"fact_ids"`
	Weight       float64        `json:"weight"`
	Signature    emotion.Vector `json:"signature"`
	LastAccessed time.Time      `json:"last_accessed"`
}

// ContainsFact reports whether the pattern includes the given fact id.
func (p Pattern) ContainsFact(id string) bool {
	for _, fid := range p.FactIDs {
		if fid == id {
			return true
		}
	}
	return false
}

// ContainsAny reports whether the pattern includes any of the ids.
func (p Pattern) ContainsAny(ids []string) bool {
	for _, id := range ids {
		if p.ContainsFact(id) {
			return true
		}
	}
	return false
}

// addFactIDs unions the given ids into the pattern, preserving
// uniqueness and insertion order.
func (p *Pattern) addFactIDs(ids []string) {
	for _, id := range ids {
		if !p.ContainsFact(id) {
			p.FactIDs = append(p.FactIDs, id)
		}
	}
}

// Clone returns a deep copy of the pattern.
func (p Pattern) Clone() Pattern {
	out := p
	out.FactIDs = append([]string(nil), p.FactIDs...)
	return out
}

// FactHit is a fact returned by a similarity search, with its cosine
// similarity to the query embedding.
type FactHit struct {
	Fact       fact.Fact
	Similarity float64
}

// Backing is the slice of the vector store the pattern engine consumes.
// The full collaborator interface lives in the store package; the
// engine only depends on what it calls.
type Backing interface {
	FindSimilarFacts(ctx context.Context, embedding []float64, threshold float64, limit int) ([]FactHit, error)
	StorePattern(ctx context.Context, p Pattern) error
	UpdatePattern(ctx context.Context, p Pattern) error
	FindPatternsWithFacts(ctx context.Context, factIDs []string) ([]Pattern, error)
	SignificantPatterns(ctx context.Context, limit int) ([]Pattern, error)
	RemovePatterns(ctx context.Context, ids []string) error
}

// CrossContextPattern is a merge of two patterns whose member facts
// arrived through different input channels. Combined weight is the
// average of the sources; confidence is the group size over the total
// pattern count at scan time.
type CrossContextPattern struct {
	ID         string         `json:"id"`
	PatternIDs []string       `json:"pattern_ids"`
	Sources    []fact.Source  `json:"sources"`
	Weight     float64        `json:"weight"`
	Signature  emotion.Vector `json:"signature"`
	Confidence float64        `json:"confidence"`
}
