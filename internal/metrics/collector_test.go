package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

// promauto registers against the global registry, so each test needs its
// own namespace.
func nextTestNamespace() string {
	return fmt.Sprintf("cogmem_test_%d", atomic.AddUint64(&collectorNamespaceSeq, 1))
}

func TestNewCollector(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())
	assert.NotNil(t, c)
}

func TestCollector_Recorders(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotPanics(t, func() {
		c.RecordFactProcessed("text", "stored", 12*time.Millisecond)
		c.RecordFactProcessed("conversation", "degraded", time.Millisecond)
		c.RecordProviderFallback("extract")
		c.SetWorkingMemorySize(42)
		c.RecordEvictions(3)
		c.SetActivePatterns(7)
		c.RecordPatternsPruned(2)
		c.RecordSleepCycle(50 * time.Millisecond)
		c.SetEmotionalIntensity(0.8)
	})
}

func TestNewCollector_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector(nextTestNamespace(), nil)
	})
}
