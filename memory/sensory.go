package memory

import (
	"sync"

	"github.com/synaptica/cogmem/fact"
)

// SensoryContext keeps a per-source sliding window of the most recent
// facts, giving extraction calls a short contextual history for each
// input channel.
type SensoryContext struct {
	mu      sync.Mutex
	windows map[fact.Source][]fact.Fact
	size    int
}

// NewSensoryContext creates sliding windows of the given size per
// source. Size defaults to 10.
func NewSensoryContext(size int) *SensoryContext {
	if size <= 0 {
		size = 10
	}
	return &SensoryContext{
		windows: make(map[fact.Source][]fact.Fact),
		size:    size,
	}
}

// Observe appends a fact to its source's window, dropping the oldest
// entry once the window is full.
func (c *SensoryContext) Observe(f fact.Fact) {
	c.mu.Lock()
	defer c.mu.Unlock()

	window := c.windows[f.Source]
	if len(window) >= c.size {
		window = window[1:]
	}
	c.windows[f.Source] = append(window, f)
}

// Recent returns up to n of the most recent facts for a source, oldest
// first.
func (c *SensoryContext) Recent(source fact.Source, n int) []fact.Fact {
	c.mu.Lock()
	defer c.mu.Unlock()

	window := c.windows[source]
	if n <= 0 || n > len(window) {
		n = len(window)
	}
	return append([]fact.Fact(nil), window[len(window)-n:]...)
}

// Snapshot returns a copy of every window keyed by source.
func (c *SensoryContext) Snapshot() map[fact.Source][]fact.Fact {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[fact.Source][]fact.Fact, len(c.windows))
	for source, window := range c.windows {
		out[source] = append([]fact.Fact(nil), window...)
	}
	return out
}

// Clear drops every window.
func (c *SensoryContext) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windows = make(map[fact.Source][]fact.Fact)
}
