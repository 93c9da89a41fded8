package cognition

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/synaptica/cogmem/emotion"
	"github.com/synaptica/cogmem/fact"
	"github.com/synaptica/cogmem/internal/metrics"
	"github.com/synaptica/cogmem/memory"
	"github.com/synaptica/cogmem/pattern"
	"github.com/synaptica/cogmem/provider"
	"github.com/synaptica/cogmem/store"
)

// OrchestratorConfig configures the cognitive pipeline.
type OrchestratorConfig struct {
	// ContextWindow is how many recent same-source facts are fed to the
	// extractor as conversational context. Defaults to 5.
	ContextWindow int
	// Now is used for testing. Defaults to time.Now.
	Now func() time.Time
}

// Dependencies are the collaborators the orchestrator runs on top of.
// Collector is optional; everything else is required.
type Dependencies struct {
	Extractor provider.Extractor
	Embedder  provider.Embedder
	Scorer    provider.EmotionScorer
	Store     store.VectorStore
	Working   *memory.WorkingMemory
	Sensory   *memory.SensoryContext
	Patterns  *pattern.Store
	State     *emotion.State
	Collector *metrics.Collector
}

// ProcessResult is the outcome of one processed input.
type ProcessResult struct {
	// Fact is the stored fact built from the input.
	Fact fact.Fact
	// PatternID names the pattern the fact merged into or created, empty
	// when the fact stayed unclustered.
	PatternID string
	// State is the emotional quadrant after the update.
	State emotion.Vector
	// Confidence is derived from the impact magnitude, in [0.5, 1].
	Confidence float64
	// Degraded is true when any provider call failed and a neutral
	// fallback was substituted.
	Degraded bool
}

// Orchestrator is the live ingestion pipeline: extract, embed and score
// an input in parallel, persist the resulting fact, cluster it into
// patterns and move the emotional state.
//
// Provider failures degrade to neutral fallbacks and never fail the
// call; persistence failures do.
type Orchestrator struct {
	deps   Dependencies
	config OrchestratorConfig
	logger *zap.Logger

	mu            sync.Mutex
	lastEvictions uint64
}

// NewOrchestrator creates the pipeline over the given collaborators.
func NewOrchestrator(deps Dependencies, config OrchestratorConfig, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ContextWindow <= 0 {
		config.ContextWindow = 5
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Orchestrator{
		deps:   deps,
		config: config,
		logger: logger.With(zap.String("component", "orchestrator")),
	}
}

// ProcessInput runs the full pipeline for one piece of input text.
//
// The three provider calls run concurrently. A failed extraction falls
// back to the raw text with zero impact, a failed embedding to the zero
// vector, a failed score to the neutral vector; any fallback sets the
// Degraded flag on the result. The scorer's vector is the fact's impact
// when available, the extractor's otherwise.
func (o *Orchestrator) ProcessInput(ctx context.Context, text string, source fact.Source) (*ProcessResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("process input: %w", fact.ErrInvalidFact)
	}
	if !source.Valid() {
		return nil, fmt.Errorf("process input: %w: source %q", fact.ErrInvalidFact, source)
	}

	start := time.Now()
	hint := o.contextHint(source)

	var (
		extraction      provider.Extraction
		embedding       []float64
		scored          emotion.Vector
		extractDegraded bool
		embedDegraded   bool
		scoreDegraded   bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ex, err := o.deps.Extractor.Extract(gctx, text, hint)
		if err != nil {
			if !o.recoverable(ctx, err, "extract") {
				return err
			}
			extractDegraded = true
			ex = provider.Extraction{
				Content:   text,
				Source:    source,
				Timestamp: o.config.Now(),
			}
		}
		extraction = ex
		return nil
	})
	g.Go(func() error {
		v, err := o.deps.Embedder.Embed(gctx, text)
		if err != nil {
			if !o.recoverable(ctx, err, "embed") {
				return err
			}
			embedDegraded = true
			v = make([]float64, o.deps.Embedder.Dimension())
		}
		embedding = v
		return nil
	})
	g.Go(func() error {
		v, err := o.deps.Scorer.Score(gctx, text)
		if err != nil {
			if !o.recoverable(ctx, err, "score") {
				return err
			}
			scoreDegraded = true
			v = emotion.Vector{}
		}
		scored = v
		return nil
	})
	if err := g.Wait(); err != nil {
		o.recordOutcome(source, "failed", start)
		return nil, fmt.Errorf("process input: %w", err)
	}
	degraded := extractDegraded || embedDegraded || scoreDegraded

	impact := scored
	if scoreDegraded || scored.IsZero() {
		impact = extraction.Impact
	}

	content := extraction.Content
	if content == "" {
		content = text
	}
	factSource := extraction.Source
	if !factSource.Valid() {
		factSource = source
	}
	ts := extraction.Timestamp
	if ts.IsZero() {
		ts = o.config.Now()
	}

	f := fact.New(content, factSource, embedding, impact, ts)

	if err := o.deps.Working.AddFact(f); err != nil {
		o.recordOutcome(source, "failed", start)
		return nil, fmt.Errorf("process input: %w", err)
	}
	if err := o.deps.Store.StoreFact(ctx, f); err != nil {
		o.recordOutcome(source, "failed", start)
		return nil, fmt.Errorf("process input: %w", err)
	}

	matched, err := o.deps.Patterns.ProcessFact(ctx, f)
	if err != nil {
		o.recordOutcome(source, "failed", start)
		return nil, fmt.Errorf("process input: %w", err)
	}

	o.deps.State.Update(f.Impact)
	o.deps.Sensory.Observe(f)

	outcome := "stored"
	if degraded {
		outcome = "degraded"
	}
	o.recordOutcome(source, outcome, start)
	o.publishGauges()

	result := &ProcessResult{
		Fact:       f,
		State:      o.deps.State.Quadrant(),
		Confidence: emotion.Confidence(f.Impact),
		Degraded:   degraded,
	}
	if matched != nil {
		result.PatternID = matched.ID
	}

	o.logger.Debug("input processed",
		zap.String("fact_id", f.ID),
		zap.String("source", string(factSource)),
		zap.String("pattern_id", result.PatternID),
		zap.Bool("degraded", degraded))
	return result, nil
}

// Recall searches patterns similar to the query text, reweighted by the
// current emotional state.
func (o *Orchestrator) Recall(ctx context.Context, query string, threshold float64) ([]pattern.Pattern, error) {
	embedding, err := o.deps.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("recall: %w", err)
	}
	state := o.deps.State.Quadrant()
	return o.deps.Patterns.FindSimilarPatterns(ctx, embedding, threshold, &state)
}

// recoverable reports whether err is a provider failure that should
// degrade to a fallback rather than fail the pipeline. A cancelled
// parent context always fails.
func (o *Orchestrator) recoverable(ctx context.Context, err error, op string) bool {
	if ctx.Err() != nil || !provider.IsProviderError(err) {
		return false
	}
	o.logger.Warn("provider call degraded to fallback",
		zap.String("op", op),
		zap.Error(err))
	if o.deps.Collector != nil {
		o.deps.Collector.RecordProviderFallback(op)
	}
	return true
}

// contextHint joins the most recent same-source fact contents into the
// extraction context.
func (o *Orchestrator) contextHint(source fact.Source) string {
	recent := o.deps.Sensory.Recent(source, o.config.ContextWindow)
	if len(recent) == 0 {
		return ""
	}
	parts := make([]string, len(recent))
	for i, f := range recent {
		parts[i] = f.Content
	}
	return strings.Join(parts, "\n")
}

func (o *Orchestrator) recordOutcome(source fact.Source, outcome string, start time.Time) {
	if o.deps.Collector == nil {
		return
	}
	o.deps.Collector.RecordFactProcessed(string(source), outcome, time.Since(start))
}

func (o *Orchestrator) publishGauges() {
	if o.deps.Collector == nil {
		return
	}
	o.deps.Collector.SetWorkingMemorySize(o.deps.Working.Len())
	o.deps.Collector.SetActivePatterns(o.deps.Patterns.Len())
	o.deps.Collector.SetEmotionalIntensity(o.deps.State.Intensity())

	evictions := o.deps.Working.Metrics().Evictions
	o.mu.Lock()
	delta := evictions - o.lastEvictions
	o.lastEvictions = evictions
	o.mu.Unlock()
	if delta > 0 {
		o.deps.Collector.RecordEvictions(delta)
	}
}
