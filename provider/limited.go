package provider

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/synaptica/cogmem/emotion"
)

// LimitedConfig configures the bounded provider wrapper.
type LimitedConfig struct {
	// Timeout bounds every call to the wrapped providers. The reference
	// behavior had no timeout contract; here a timeout surfaces as a
	// recoverable ProviderError instead of propagating indefinitely.
	// Defaults to 30s.
	Timeout time.Duration
	// RPS throttles calls across all three providers. Zero disables
	// throttling.
	RPS float64
	// Burst is the limiter burst size. Defaults to max(1, ceil(RPS)).
	Burst int
}

// Limited wraps an Extractor, Embedder and EmotionScorer with a shared
// rate limiter and a per-call timeout. Every failure, including limiter
// and deadline errors, comes back as a *ProviderError so callers can
// apply a uniform fallback policy.
type Limited struct {
	extractor Extractor
	embedder  Embedder
	scorer    EmotionScorer
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewLimited creates the bounded wrapper around the given providers.
func NewLimited(extractor Extractor, embedder Embedder, scorer EmotionScorer, config LimitedConfig, logger *zap.Logger) *Limited {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if config.RPS > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = int(config.RPS) + 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RPS), burst)
	}
	return &Limited{
		extractor: extractor,
		embedder:  embedder,
		scorer:    scorer,
		timeout:   config.Timeout,
		limiter:   limiter,
		logger:    logger.With(zap.String("component", "provider_limiter")),
	}
}

func (l *Limited) acquire(ctx context.Context, op string) (context.Context, context.CancelFunc, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, nil, &ProviderError{Op: op, Err: err}
		}
	}
	bounded, cancel := context.WithTimeout(ctx, l.timeout)
	return bounded, cancel, nil
}

// Extract calls the wrapped extractor under the shared limit and
// timeout.
func (l *Limited) Extract(ctx context.Context, text, contextHint string) (Extraction, error) {
	bounded, cancel, err := l.acquire(ctx, "extract")
	if err != nil {
		return Extraction{}, err
	}
	defer cancel()

	out, err := l.extractor.Extract(bounded, text, contextHint)
	if err != nil {
		return Extraction{}, wrap("extract", err)
	}
	return out, nil
}

// Embed calls the wrapped embedder under the shared limit and timeout.
func (l *Limited) Embed(ctx context.Context, text string) ([]float64, error) {
	bounded, cancel, err := l.acquire(ctx, "embed")
	if err != nil {
		return nil, err
	}
	defer cancel()

	vec, err := l.embedder.Embed(bounded, text)
	if err != nil {
		return nil, wrap("embed", err)
	}
	return vec, nil
}

// Dimension reports the wrapped embedder's dimensionality.
func (l *Limited) Dimension() int { return l.embedder.Dimension() }

// Score calls the wrapped scorer under the shared limit and timeout.
// The result is clamped to the quadrant bounds regardless of what the
// provider returned.
func (l *Limited) Score(ctx context.Context, text string) (emotion.Vector, error) {
	bounded, cancel, err := l.acquire(ctx, "score")
	if err != nil {
		return emotion.Vector{}, err
	}
	defer cancel()

	v, err := l.scorer.Score(bounded, text)
	if err != nil {
		return emotion.Vector{}, wrap("score", err)
	}
	return v.Clamp(), nil
}

func wrap(op string, err error) error {
	if IsProviderError(err) {
		return err
	}
	return &ProviderError{Op: op, Err: err}
}
