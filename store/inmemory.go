package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/synaptica/cogmem/fact"
	"github.com/synaptica/cogmem/pattern"
)

// InMemoryConfig configures the in-memory vector store.
type InMemoryConfig struct {
	// Dimension validates stored and queried embeddings when > 0.
	Dimension int
	// Now is used for testing. Defaults to time.Now.
	Now func() time.Time
}

// InMemory is the reference VectorStore implementation: maps guarded by
// a RWMutex with a linear cosine scan. Suitable for tests, local
// development and single-process sessions.
type InMemory struct {
	mu        sync.RWMutex
	facts     map[string]fact.Fact
	patterns  map[string]pattern.Pattern
	dimension int
	now       func() time.Time
	logger    *zap.Logger
}

// NewInMemory creates an empty in-memory store.
func NewInMemory(config InMemoryConfig, logger *zap.Logger) *InMemory {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &InMemory{
		facts:     make(map[string]fact.Fact),
		patterns:  make(map[string]pattern.Pattern),
		dimension: config.Dimension,
		now:       now,
		logger:    logger.With(zap.String("component", "vector_store_inmemory")),
	}
}

func (s *InMemory) StoreFact(ctx context.Context, f fact.Fact) error {
	if err := ctx.Err(); err != nil {
		return storeErr("store_fact", err)
	}
	if err := f.Validate(); err != nil {
		return storeErr("store_fact", err)
	}
	if s.dimension > 0 && len(f.Embedding) != s.dimension {
		return storeErr("store_fact", errDimensionMismatch(len(f.Embedding), s.dimension))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts[f.ID] = f
	return nil
}

func (s *InMemory) FindSimilarFacts(ctx context.Context, embedding []float64, threshold float64, limit int) ([]pattern.FactHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("find_similar_facts", err)
	}
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	facts := make([]fact.Fact, 0, len(s.facts))
	for _, f := range s.facts {
		facts = append(facts, f)
	}
	s.mu.RUnlock()

	return rankFacts(facts, embedding, threshold, limit), nil
}

func (s *InMemory) StorePattern(ctx context.Context, p pattern.Pattern) error {
	if err := ctx.Err(); err != nil {
		return storeErr("store_pattern", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[p.ID] = p.Clone()
	return nil
}

func (s *InMemory) UpdatePattern(ctx context.Context, p pattern.Pattern) error {
	if err := ctx.Err(); err != nil {
		return storeErr("update_pattern", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patterns[p.ID]; !ok {
		return storeErr("update_pattern", pattern.ErrPatternNotFound)
	}
	s.patterns[p.ID] = p.Clone()
	return nil
}

func (s *InMemory) FindPatternsWithFacts(ctx context.Context, factIDs []string) ([]pattern.Pattern, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("find_patterns_with_facts", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []pattern.Pattern
	for _, p := range s.patterns {
		if p.ContainsAny(factIDs) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (s *InMemory) SignificantPatterns(ctx context.Context, limit int) ([]pattern.Pattern, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("significant_patterns", err)
	}
	s.mu.RLock()
	out := make([]pattern.Pattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()

	sortPatternsByWeight(out)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) RemovePatterns(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return storeErr("remove_patterns", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.patterns, id)
	}
	return nil
}

func (s *InMemory) CleanupOldData(ctx context.Context, retention time.Duration, minWeight float64) error {
	if err := ctx.Err(); err != nil {
		return storeErr("cleanup_old_data", err)
	}
	cutoff := s.now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	var facts, patterns int
	for id, f := range s.facts {
		if f.Timestamp.Before(cutoff) && f.Weight < minWeight {
			delete(s.facts, id)
			facts++
		}
	}
	for id, p := range s.patterns {
		if p.LastAccessed.Before(cutoff) && p.Weight < minWeight {
			delete(s.patterns, id)
			patterns++
		}
	}
	if facts > 0 || patterns > 0 {
		s.logger.Info("old data cleaned up",
			zap.Int("facts", facts),
			zap.Int("patterns", patterns))
	}
	return nil
}

func (s *InMemory) Ping(ctx context.Context) error { return ctx.Err() }

func (s *InMemory) Close() error { return nil }
