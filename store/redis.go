package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/synaptica/cogmem/fact"
	"github.com/synaptica/cogmem/pattern"
)

// RedisConfig configures the Redis-backed vector store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	// KeyPrefix namespaces every key. Defaults to "cogmem:".
	KeyPrefix string
	// Now is used for testing. Defaults to time.Now.
	Now func() time.Time
}

// Redis is a VectorStore backed by Redis. Facts and patterns are stored
// as JSON values with set indexes per type; similarity search loads the
// candidate set and ranks by cosine client-side. Suitable for sessions
// that must survive process restarts and be shared across processes.
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
	logger *zap.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(config RedisConfig, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, storeErr("connect", err)
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "cogmem:"
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Redis{
		client: client,
		prefix: prefix,
		now:    now,
		logger: logger.With(zap.String("component", "vector_store_redis")),
	}, nil
}

func (s *Redis) factKey(id string) string    { return s.prefix + "fact:" + id }
func (s *Redis) patternKey(id string) string { return s.prefix + "pattern:" + id }
func (s *Redis) factIndex() string           { return s.prefix + "facts" }
func (s *Redis) patternIndex() string        { return s.prefix + "patterns" }

func (s *Redis) StoreFact(ctx context.Context, f fact.Fact) error {
	if err := f.Validate(); err != nil {
		return storeErr("store_fact", err)
	}
	data, err := json.Marshal(f)
	if err != nil {
		return storeErr("store_fact", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.factKey(f.ID), data, 0)
	pipe.SAdd(ctx, s.factIndex(), f.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("store_fact", err)
	}
	return nil
}

func (s *Redis) loadFacts(ctx context.Context, ids []string) ([]fact.Fact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.factKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	facts := make([]fact.Fact, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a value: fact expired or was removed.
			continue
		}
		var f fact.Fact
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return nil, fmt.Errorf("unmarshal fact: %w", err)
		}
		facts = append(facts, f)
	}
	return facts, nil
}

func (s *Redis) FindSimilarFacts(ctx context.Context, embedding []float64, threshold float64, limit int) ([]pattern.FactHit, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := s.client.SMembers(ctx, s.factIndex()).Result()
	if err != nil {
		return nil, storeErr("find_similar_facts", err)
	}
	facts, err := s.loadFacts(ctx, ids)
	if err != nil {
		return nil, storeErr("find_similar_facts", err)
	}

	hits := rankFacts(facts, embedding, threshold, limit)
	return hits, nil
}

func (s *Redis) StorePattern(ctx context.Context, p pattern.Pattern) error {
	data, err := json.Marshal(p)
	if err != nil {
		return storeErr("store_pattern", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.patternKey(p.ID), data, 0)
	pipe.SAdd(ctx, s.patternIndex(), p.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("store_pattern", err)
	}
	return nil
}

func (s *Redis) UpdatePattern(ctx context.Context, p pattern.Pattern) error {
	exists, err := s.client.SIsMember(ctx, s.patternIndex(), p.ID).Result()
	if err != nil {
		return storeErr("update_pattern", err)
	}
	if !exists {
		return storeErr("update_pattern", pattern.ErrPatternNotFound)
	}
	return s.StorePattern(ctx, p)
}

func (s *Redis) loadPatterns(ctx context.Context) ([]pattern.Pattern, error) {
	ids, err := s.client.SMembers(ctx, s.patternIndex()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.patternKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	patterns := make([]pattern.Pattern, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p pattern.Pattern
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("unmarshal pattern: %w", err)
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func (s *Redis) FindPatternsWithFacts(ctx context.Context, factIDs []string) ([]pattern.Pattern, error) {
	patterns, err := s.loadPatterns(ctx)
	if err != nil {
		return nil, storeErr("find_patterns_with_facts", err)
	}
	var out []pattern.Pattern
	for _, p := range patterns {
		if p.ContainsAny(factIDs) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Redis) SignificantPatterns(ctx context.Context, limit int) ([]pattern.Pattern, error) {
	patterns, err := s.loadPatterns(ctx)
	if err != nil {
		return nil, storeErr("significant_patterns", err)
	}
	sortPatternsByWeight(patterns)
	if limit > 0 && limit < len(patterns) {
		patterns = patterns[:limit]
	}
	return patterns, nil
}

func (s *Redis) RemovePatterns(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		pipe.Del(ctx, s.patternKey(id))
		members[i] = id
	}
	pipe.SRem(ctx, s.patternIndex(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("remove_patterns", err)
	}
	return nil
}

func (s *Redis) CleanupOldData(ctx context.Context, retention time.Duration, minWeight float64) error {
	cutoff := s.now().Add(-retention)

	factIDs, err := s.client.SMembers(ctx, s.factIndex()).Result()
	if err != nil {
		return storeErr("cleanup_old_data", err)
	}
	facts, err := s.loadFacts(ctx, factIDs)
	if err != nil {
		return storeErr("cleanup_old_data", err)
	}
	var staleFacts []string
	for _, f := range facts {
		if f.Timestamp.Before(cutoff) && f.Weight < minWeight {
			staleFacts = append(staleFacts, f.ID)
		}
	}
	if len(staleFacts) > 0 {
		pipe := s.client.TxPipeline()
		members := make([]interface{}, len(staleFacts))
		for i, id := range staleFacts {
			pipe.Del(ctx, s.factKey(id))
			members[i] = id
		}
		pipe.SRem(ctx, s.factIndex(), members...)
		if _, err := pipe.Exec(ctx); err != nil {
			return storeErr("cleanup_old_data", err)
		}
	}

	patterns, err := s.loadPatterns(ctx)
	if err != nil {
		return storeErr("cleanup_old_data", err)
	}
	var stalePatterns []string
	for _, p := range patterns {
		if p.LastAccessed.Before(cutoff) && p.Weight < minWeight {
			stalePatterns = append(stalePatterns, p.ID)
		}
	}
	if err := s.RemovePatterns(ctx, stalePatterns); err != nil {
		return storeErr("cleanup_old_data", err)
	}

	if len(staleFacts) > 0 || len(stalePatterns) > 0 {
		s.logger.Info("old data cleaned up",
			zap.Int("facts", len(staleFacts)),
			zap.Int("patterns", len(stalePatterns)))
	}
	return nil
}

func (s *Redis) Ping(ctx context.Context) error {
	return storeErr("ping", s.client.Ping(ctx).Err())
}

func (s *Redis) Close() error { return s.client.Close() }
