package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/synaptica/cogmem/emotion"
	"github.com/synaptica/cogmem/fact"
	"github.com/synaptica/cogmem/pattern"
)

// SQLiteConfig configures the SQLite-backed vector store.
type SQLiteConfig struct {
	// Path is the database file. ":memory:" gives an ephemeral store.
	Path string
	// Now is used for testing. Defaults to time.Now.
	Now func() time.Time
}

// SQLite is a VectorStore backed by a single SQLite file through gorm,
// using the pure-Go driver. Embeddings are stored as packed float64
// blobs; similarity search loads candidates and ranks by cosine
// client-side. Suitable for durable single-node sessions without an
// external service.
type SQLite struct {
	db     *gorm.DB
	now    func() time.Time
	logger *zap.Logger
}

type factRecord struct {
	ID        string `gorm:"primaryKey"`
	Content   string
	Source    string
	Timestamp time.Time `gorm:"index"`
	Embedding []byte
	Joy       float64
	Calm      float64
	Anger     float64
	Sadness   float64
	Weight    float64 `gorm:"index"`
}

func (factRecord) TableName() string { return "facts" }

type patternRecord struct {
	ID           string `gorm:"primaryKey"`
	FactIDs      string
	Weight       float64 `gorm:"index"`
	Joy          float64
	Calm         float64
	Anger        float64
	Sadness      float64
	LastAccessed time.Time `gorm:"index"`
}

func (patternRecord) TableName() string { return "patterns" }

// NewSQLite opens (and migrates) the database at the given path.
func NewSQLite(config SQLiteConfig, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(config.Path), &gorm.Config{})
	if err != nil {
		return nil, storeErr("open", err)
	}
	if err := db.AutoMigrate(&factRecord{}, &patternRecord{}); err != nil {
		return nil, storeErr("migrate", err)
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &SQLite{
		db:     db,
		now:    now,
		logger: logger.With(zap.String("component", "vector_store_sqlite")),
	}, nil
}

func encodeEmbedding(v []float64) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeEmbedding(b []byte) []float64 {
	if len(b) == 0 {
		return nil
	}
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out
}

func toFactRecord(f fact.Fact) factRecord {
	return factRecord{
		ID:        f.ID,
		Content:   f.Content,
		Source:    string(f.Source),
		Timestamp: f.Timestamp,
		Embedding: encodeEmbedding(f.Embedding),
		Joy:       f.Impact.Joy,
		Calm:      f.Impact.Calm,
		Anger:     f.Impact.Anger,
		Sadness:   f.Impact.Sadness,
		Weight:    f.Weight,
	}
}

func (r factRecord) toFact() fact.Fact {
	return fact.Fact{
		ID:        r.ID,
		Content:   r.Content,
		Source:    fact.Source(r.Source),
		Timestamp: r.Timestamp,
		Embedding: decodeEmbedding(r.Embedding),
		Impact:    emotionVector(r.Joy, r.Calm, r.Anger, r.Sadness),
		Weight:    r.Weight,
	}
}

func toPatternRecord(p pattern.Pattern) (patternRecord, error) {
	ids, err := json.Marshal(p.FactIDs)
	if err != nil {
		return patternRecord{}, err
	}
	return patternRecord{
		ID:           p.ID,
		FactIDs:      string(ids),
		Weight:       p.Weight,
		Joy:          p.Signature.Joy,
		Calm:         p.Signature.Calm,
		Anger:        p.Signature.Anger,
		Sadness:      p.Signature.Sadness,
		LastAccessed: p.LastAccessed,
	}, nil
}

func (r patternRecord) toPattern() (pattern.Pattern, error) {
	var ids []string
	if r.FactIDs != "" {
		if err := json.Unmarshal([]byte(r.FactIDs), &ids); err != nil {
			return pattern.Pattern{}, err
		}
	}
	return pattern.Pattern{
		ID:           r.ID,
		FactIDs:      ids,
		Weight:       r.Weight,
		Signature:    emotionVector(r.Joy, r.Calm, r.Anger, r.Sadness),
		LastAccessed: r.LastAccessed,
	}, nil
}

func (s *SQLite) StoreFact(ctx context.Context, f fact.Fact) error {
	if err := f.Validate(); err != nil {
		return storeErr("store_fact", err)
	}
	rec := toFactRecord(f)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	return storeErr("store_fact", err)
}

func (s *SQLite) FindSimilarFacts(ctx context.Context, embedding []float64, threshold float64, limit int) ([]pattern.FactHit, error) {
	if limit <= 0 {
		return nil, nil
	}
	var records []factRecord
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, storeErr("find_similar_facts", err)
	}
	facts := make([]fact.Fact, len(records))
	for i, r := range records {
		facts[i] = r.toFact()
	}
	return rankFacts(facts, embedding, threshold, limit), nil
}

func (s *SQLite) StorePattern(ctx context.Context, p pattern.Pattern) error {
	rec, err := toPatternRecord(p)
	if err != nil {
		return storeErr("store_pattern", err)
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	return storeErr("store_pattern", err)
}

func (s *SQLite) UpdatePattern(ctx context.Context, p pattern.Pattern) error {
	var existing patternRecord
	err := s.db.WithContext(ctx).First(&existing, "id = ?", p.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storeErr("update_pattern", pattern.ErrPatternNotFound)
	}
	if err != nil {
		return storeErr("update_pattern", err)
	}
	return s.StorePattern(ctx, p)
}

func (s *SQLite) FindPatternsWithFacts(ctx context.Context, factIDs []string) ([]pattern.Pattern, error) {
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

func (s *SQLite) loadPatterns(ctx context.Context) ([]pattern.Pattern, error) {
	var records []patternRecord
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, err
	}
	patterns := make([]pattern.Pattern, 0, len(records))
	for _, r := range records {
		p, err := r.toPattern()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func (s *SQLite) SignificantPatterns(ctx context.Context, limit int) ([]pattern.Pattern, error) {
	query := s.db.WithContext(ctx).Order("weight DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []patternRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, storeErr("significant_patterns", err)
	}
	patterns := make([]pattern.Pattern, 0, len(records))
	for _, r := range records {
		p, err := r.toPattern()
		if err != nil {
			return nil, storeErr("significant_patterns", err)
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func (s *SQLite) RemovePatterns(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Delete(&patternRecord{}, "id IN ?", ids).Error
	return storeErr("remove_patterns", err)
}

func (s *SQLite) CleanupOldData(ctx context.Context, retention time.Duration, minWeight float64) error {
	cutoff := s.now().Add(-retention)

	res := s.db.WithContext(ctx).
		Delete(&factRecord{}, "timestamp < ? AND weight < ?", cutoff, minWeight)
	if res.Error != nil {
		return storeErr("cleanup_old_data", res.Error)
	}
	factsRemoved := res.RowsAffected

	res = s.db.WithContext(ctx).
		Delete(&patternRecord{}, "last_accessed < ? AND weight < ?", cutoff, minWeight)
	if res.Error != nil {
		return storeErr("cleanup_old_data", res.Error)
	}

	if factsRemoved > 0 || res.RowsAffected > 0 {
		s.logger.Info("old data cleaned up",
			zap.Int64("facts", factsRemoved),
			zap.Int64("patterns", res.RowsAffected))
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return storeErr("ping", err)
	}
	return storeErr("ping", db.PingContext(ctx))
}

func (s *SQLite) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func emotionVector(joy, calm, anger, sadness float64) emotion.Vector {
	return emotion.Vector{Joy: joy, Calm: calm, Anger: anger, Sadness: sadness}
}
