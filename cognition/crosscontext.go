package cognition

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/synaptica/cogmem/fact"
	"github.com/synaptica/cogmem/pattern"
)

// CrossContextPatterns scans the most significant patterns for pairs
// whose member facts arrived through entirely different input channels
// and merges each such pair into a CrossContextPattern.
//
// Sources are resolved from working memory and the sensory windows;
// patterns whose facts have already aged out of both are skipped. The
// merge is a read-only projection: nothing is persisted.
func (o *Orchestrator) CrossContextPatterns(ctx context.Context, limit int) ([]pattern.CrossContextPattern, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	patterns := o.deps.Patterns.SignificantPatterns(limit)
	total := o.deps.Patterns.Len()
	if len(patterns) < 2 || total == 0 {
		return nil, nil
	}

	sourceOf := o.factSources()

	sources := make([][]fact.Source, len(patterns))
	for i, p := range patterns {
		sources[i] = patternSources(p, sourceOf)
	}

	var merges []pattern.CrossContextPattern
	for i := 0; i < len(patterns); i++ {
		if len(sources[i]) == 0 {
			continue
		}
		for j := i + 1; j < len(patterns); j++ {
			if len(sources[j]) == 0 || sharesSource(sources[i], sources[j]) {
				continue
			}
			a, b := patterns[i], patterns[j]
			merges = append(merges, pattern.CrossContextPattern{
				ID:         uuid.New().String(),
				PatternIDs: []string{a.ID, b.ID},
				Sources:    unionSources(sources[i], sources[j]),
				Weight:     (a.Weight + b.Weight) / 2,
				Signature:  a.Signature.Average(b.Signature),
				Confidence: 2 / float64(total),
			})
		}
	}

	if len(merges) > 0 {
		o.logger.Debug("cross-context patterns found", zap.Int("merges", len(merges)))
	}
	return merges, nil
}

// factSources indexes every currently reachable fact id by its source,
// using the working-memory buffer and the sensory windows.
func (o *Orchestrator) factSources() map[string]fact.Source {
	out := make(map[string]fact.Source)
	for _, f := range o.deps.Working.Facts() {
		out[f.ID] = f.Source
	}
	for source, window := range o.deps.Sensory.Snapshot() {
		for _, f := range window {
			out[f.ID] = source
		}
	}
	return out
}

// patternSources returns the sorted distinct sources of a pattern's
// resolvable member facts.
func patternSources(p pattern.Pattern, sourceOf map[string]fact.Source) []fact.Source {
	seen := make(map[fact.Source]bool)
	for _, id := range p.FactIDs {
		if s, ok := sourceOf[id]; ok {
			seen[s] = true
		}
	}
	out := make([]fact.Source, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sharesSource(a, b []fact.Source) bool {
	for _, s := range a {
		for _, t := range b {
			if s == t {
				return true
			}
		}
	}
	return false
}

func unionSources(a, b []fact.Source) []fact.Source {
	out := append(append([]fact.Source(nil), a...), b...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
