// Package store defines the persistence collaborator of the cognitive
// engine — a key-value plus vector-search interface over facts and
// patterns — and provides in-memory, Redis and SQLite implementations.
//
// Unlike provider failures, which the engine recovers from locally,
// every store failure is surfaced to the caller as a *StoreError; the
// caller decides whether to retry.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/synaptica/cogmem/fact"
	"github.com/synaptica/cogmem/pattern"
)

// StoreError wraps any failure of a backing-store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError reports whether err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsStoreError(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// VectorStore is the full persistence collaborator: fact storage with
// embedding similarity search, pattern upsert/lookup/removal, and
// retention cleanup. It subsumes the pattern engine's Backing
// interface.
type VectorStore interface {
	pattern.Backing

	// StoreFact persists a fact.
	StoreFact(ctx context.Context, f fact.Fact) error
	// CleanupOldData removes facts older than the retention window and
	// patterns idle longer than it, in both cases only below minWeight.
	CleanupOldData(ctx context.Context, retention time.Duration, minWeight float64) error
	// Ping checks store health.
	Ping(ctx context.Context) error
	// Close releases the store's resources.
	Close() error
}

// rankFacts filters facts by cosine similarity to the query embedding
// and returns the top hits, best first.
func rankFacts(facts []fact.Fact, embedding []float64, threshold float64, limit int) []pattern.FactHit {
	hits := make([]pattern.FactHit, 0, len(facts))
	for _, f := range facts {
		score := CosineSimilarity(embedding, f.Embedding)
		if score >= threshold {
			hits = append(hits, pattern.FactHit{Fact: f, Similarity: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	return hits
}

func sortPatternsByWeight(patterns []pattern.Pattern) {
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Weight > patterns[j].Weight })
}

func errDimensionMismatch(got, want int) error {
	return fmt.Errorf("embedding dimension mismatch: got %d want %d", got, want)
}

// CosineSimilarity returns the cosine of the angle between a and b, or
// 0 when either vector is empty, mismatched or zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
