package pattern

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/synaptica/cogmem/emotion"
	"github.com/synaptica/cogmem/fact"
)

// StoreConfig configures the long-term pattern engine.
type StoreConfig struct {
	// SimilarityThreshold is the cosine cutoff above which two
	// embeddings are treated as the same semantic fact. Defaults to 0.8.
	SimilarityThreshold float64
	// SimilarFactLimit bounds similarity searches. Defaults to 10.
	SimilarFactLimit int
	// HalfLife drives exponential weight decay at strengthen time.
	// Defaults to 30 days.
	HalfLife time.Duration
	// MinRetention is the weight at or below which Consolidate prunes
	// a pattern. Defaults to 0.2.
	MinRetention float64
	// CreationThreshold is the fact weight above which a lone fact may
	// be promoted to a single-fact pattern. Defaults to 0.5.
	CreationThreshold float64
	// WeightIncrement is added to an existing pattern's weight when a
	// new matching fact merges into it. Defaults to 0.1.
	WeightIncrement float64
	// Now is used for testing. Defaults to time.Now.
	Now func() time.Time
}

func (c *StoreConfig) withDefaults() {
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = 0.8
	}
	if c.SimilarFactLimit <= 0 {
		c.SimilarFactLimit = 10
	}
	if c.HalfLife <= 0 {
		c.HalfLife = 30 * 24 * time.Hour
	}
	if c.MinRetention <= 0 {
		c.MinRetention = 0.2
	}
	if c.CreationThreshold <= 0 {
		c.CreationThreshold = 0.5
	}
	if c.WeightIncrement <= 0 {
		c.WeightIncrement = 0.1
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Store is the long-term pattern engine: an explicit cache-aside map of
// patterns in front of the backing vector store, with similarity-based
// merge, time-decayed reinforcement and weight-threshold pruning.
//
// The cache mirrors every pattern this engine has written or read; it
// can be stale with respect to writers outside this process until the
// next Warm or read-through. All mutations are serialized under one
// mutex, held across the read-decay-write sequence including the
// backing call, so interleaved strengthens cannot lose updates.
type Store struct {
	mu      sync.Mutex
	cache   map[string]Pattern
	backing Backing
	config  StoreConfig
	logger  *zap.Logger
}

// NewStore creates a pattern engine over the given backing store.
func NewStore(backing Backing, config StoreConfig, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.withDefaults()
	return &Store{
		cache:   make(map[string]Pattern),
		backing: backing,
		config:  config,
		logger:  logger.With(zap.String("component", "pattern_store")),
	}
}

// Warm loads the most significant persisted patterns into the cache.
// Call once at startup; reads also refresh the cache as they go.
func (s *Store) Warm(ctx context.Context) error {
	patterns, err := s.backing.SignificantPatterns(ctx, 0)
	if err != nil {
		return fmt.Errorf("warm pattern cache: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range patterns {
		s.cache[p.ID] = p.Clone()
	}
	s.logger.Info("pattern cache warmed", zap.Int("patterns", len(patterns)))
	return nil
}

// StorePattern upserts a pattern to the backing store and mirrors it in
// the cache. Empty patterns are rejected.
func (s *Store) StorePattern(ctx context.Context, p Pattern) error {
	if p.ID == "" || len(p.FactIDs) == 0 {
		return fmt.Errorf("pattern %q has no facts", p.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backing.StorePattern(ctx, p.Clone()); err != nil {
		return err
	}
	s.cache[p.ID] = p.Clone()
	return nil
}

// FindSimilarPatterns searches the backing store for facts similar to
// the embedding, then returns every pattern containing any of the hit
// fact ids. When an emotional context is supplied, each returned
// pattern's weight is rescaled by 1 + Similarity(context, signature).
// The reweighting is presentation-only and never persisted.
func (s *Store) FindSimilarPatterns(ctx context.Context, embedding []float64, threshold float64, emotionalContext *emotion.Vector) ([]Pattern, error) {
	hits, err := s.backing.FindSimilarFacts(ctx, embedding, threshold, s.config.SimilarFactLimit)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Fact.ID
	}

	persisted, err := s.backing.FindPatternsWithFacts(ctx, ids)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// Read-through: refresh the cache with what the store returned,
	// then serve the union of cache and store matches.
	for _, p := range persisted {
		s.cache[p.ID] = p.Clone()
	}
	matched := make(map[string]Pattern)
	for _, p := range s.cache {
		if p.ContainsAny(ids) {
			matched[p.ID] = p.Clone()
		}
	}
	s.mu.Unlock()

	out := make([]Pattern, 0, len(matched))
	for _, p := range matched {
		if emotionalContext != nil {
			p.Weight *= 1 + emotionalContext.Similarity(p.Signature)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out, nil
}

// StrengthenPattern reinforces a pattern: the current weight first
// decays exponentially by the time since last access (half-life from
// config), then amount is added, scaled by the emotional reinforcement
// when a context is given. The signature averages toward the context.
// Unknown ids return ErrPatternNotFound.
func (s *Store) StrengthenPattern(ctx context.Context, id string, amount float64, emotionalContext *emotion.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.cache[id]
	if !ok {
		return fmt.Errorf("strengthen %q: %w", id, ErrPatternNotFound)
	}

	now := s.config.Now()
	elapsed := now.Sub(p.LastAccessed)
	if elapsed < 0 {
		elapsed = 0
	}
	decayFactor := math.Exp(-float64(elapsed.Milliseconds()) / float64(s.config.HalfLife.Milliseconds()))
	decayed := p.Weight * decayFactor

	reinforcement := 1.0
	if emotionalContext != nil {
		reinforcement = 1 + emotionalContext.Similarity(p.Signature)
	}

	weight := decayed + amount*reinforcement
	if weight > 1 {
		weight = 1
	}
	if weight < 0 {
		weight = 0
	}
	p.Weight = weight

	if emotionalContext != nil {
		p.Signature = p.Signature.Average(*emotionalContext)
	}
	p.LastAccessed = now

	if err := s.backing.UpdatePattern(ctx, p.Clone()); err != nil {
		return err
	}
	s.cache[id] = p

	s.logger.Debug("pattern strengthened",
		zap.String("pattern_id", id),
		zap.Float64("decay_factor", decayFactor),
		zap.Float64("weight", p.Weight))
	return nil
}

// SignificantPatterns returns up to limit cached patterns ordered by
// descending weight. A limit of zero or less returns everything.
func (s *Store) SignificantPatterns(limit int) []Pattern {
	s.mu.Lock()
	out := make([]Pattern, 0, len(s.cache))
	for _, p := range s.cache {
		out = append(out, p.Clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// Len returns the number of cached patterns.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// Consolidate prunes every pattern whose weight is at or below the
// retention threshold from both the cache and the backing store, and
// returns the number pruned. Age is not considered directly: it is
// already folded into the weight by decay at strengthen time.
func (s *Store) Consolidate(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned []string
	for id, p := range s.cache {
		if p.Weight <= s.config.MinRetention {
			pruned = append(pruned, id)
		}
	}
	if len(pruned) == 0 {
		return 0, nil
	}

	if err := s.backing.RemovePatterns(ctx, pruned); err != nil {
		return 0, err
	}
	for _, id := range pruned {
		delete(s.cache, id)
	}

	s.logger.Info("patterns consolidated", zap.Int("pruned", len(pruned)))
	return len(pruned), nil
}

// ConsolidateFacts bridges raw facts into the pattern space outside the
// ingestion path: facts with similar existing patterns strengthen each
// of them by the fact's weight; facts with none but enough weight of
// their own are promoted to a single-fact pattern.
func (s *Store) ConsolidateFacts(ctx context.Context, facts []fact.Fact) error {
	for _, f := range facts {
		similar, err := s.FindSimilarPatterns(ctx, f.Embedding, s.config.SimilarityThreshold, nil)
		if err != nil {
			return err
		}

		if len(similar) > 0 {
			for _, p := range similar {
				impact := f.Impact
				if err := s.StrengthenPattern(ctx, p.ID, f.Weight, &impact); err != nil {
					return err
				}
			}
			continue
		}

		if f.Weight > s.config.CreationThreshold {
			p := Pattern{
				ID:           uuid.New().String(),
				FactIDs:      []string{f.ID},
				Weight:       f.Weight,
				Signature:    f.Impact,
				LastAccessed: s.config.Now(),
			}
			if err := s.StorePattern(ctx, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessFact is the ingestion path: given a freshly created fact, it
// searches for similar stored facts and, when at least two exist,
// either merges the group into an existing pattern or creates a new
// one. Returns the touched pattern, or nil when the fact stays
// unclustered.
//
// A merge recomputes the signature as the plain average over the newly
// supplied facts only, not the full historical member set. That
// approximation keeps merge O(group) and matches the engine's running-
// average semantics.
func (s *Store) ProcessFact(ctx context.Context, f fact.Fact) (*Pattern, error) {
	hits, err := s.backing.FindSimilarFacts(ctx, f.Embedding, s.config.SimilarityThreshold, s.config.SimilarFactLimit)
	if err != nil {
		return nil, err
	}

	similar := make([]fact.Fact, 0, len(hits))
	for _, h := range hits {
		if h.Fact.ID != f.ID {
			similar = append(similar, h.Fact)
		}
	}
	if len(similar) < 2 {
		return nil, nil
	}

	supplied := append(similar, f)
	ids := make([]string, len(supplied))
	impacts := make([]emotion.Vector, len(supplied))
	for i, sf := range supplied {
		ids[i] = sf.ID
		impacts[i] = sf.Impact
	}
	signature := emotion.MeanOf(impacts)
	now := s.config.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.findContaining(ids); existing != nil {
		p := *existing
		p.addFactIDs(ids)
		p.Weight += s.config.WeightIncrement
		if p.Weight > 1 {
			p.Weight = 1
		}
		p.Signature = signature
		p.LastAccessed = now

		if err := s.backing.UpdatePattern(ctx, p.Clone()); err != nil {
			return nil, err
		}
		s.cache[p.ID] = p

		s.logger.Debug("fact merged into pattern",
			zap.String("fact_id", f.ID),
			zap.String("pattern_id", p.ID),
			zap.Int("members", len(p.FactIDs)))
		out := p.Clone()
		return &out, nil
	}

	var weightSum, magnitudeSum float64
	for _, sf := range supplied {
		weightSum += sf.Weight
		magnitudeSum += sf.Impact.Magnitude()
	}
	n := float64(len(supplied))
	weight := (weightSum/n + magnitudeSum/n) / 2
	if weight > 1 {
		weight = 1
	}

	p := Pattern{
		ID:           uuid.New().String(),
		FactIDs:      ids,
		Weight:       weight,
		Signature:    signature,
		LastAccessed: now,
	}
	if err := s.backing.StorePattern(ctx, p.Clone()); err != nil {
		return nil, err
	}
	s.cache[p.ID] = p

	s.logger.Debug("pattern created",
		zap.String("pattern_id", p.ID),
		zap.Int("members", len(p.FactIDs)),
		zap.Float64("weight", p.Weight))
	out := p.Clone()
	return &out, nil
}

// findContaining returns the first cached pattern containing any of the
// ids, in deterministic id order. Caller holds the lock.
func (s *Store) findContaining(ids []string) *Pattern {
	keys := make([]string, 0, len(s.cache))
	for id := range s.cache {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	for _, key := range keys {
		p := s.cache[key]
		if p.ContainsAny(ids) {
			return &p
		}
	}
	return nil
}
