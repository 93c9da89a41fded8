package emotion

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// StateConfig configures the emotional state tracker.
type StateConfig struct {
	// Now is used for testing. Defaults to time.Now.
	Now func() time.Time
}

// State is the single mutable emotional vector of a cognitive session.
//
// The quadrant is additively moved by every processed fact's impact and
// multiplicatively decayed during sleep cycles. Every mutation keeps all
// four components inside [-1, 1]. Intensity is always derived from the
// quadrant and never stored independently.
//
// State is safe for concurrent use: live ingestion and the sleep-cycle
// timer both mutate it.
type State struct {
	mu          sync.Mutex
	quadrant    Vector
	lastUpdated time.Time
	now         func() time.Time
	logger      *zap.Logger
}

// NewState creates an emotional state at the neutral origin.
func NewState(config StateConfig, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &State{
		now:    now,
		logger: logger.With(zap.String("component", "emotional_state")),
	}
}

// Update additively applies an impact to the quadrant, clamping every
// component to [-1, 1], and stamps the update time.
func (s *State) Update(impact Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quadrant = s.quadrant.Add(impact).Clamp()
	s.lastUpdated = s.now()

	s.logger.Debug("emotional state updated",
		zap.Float64("intensity", s.quadrant.Magnitude()))
}

// Decay is the canonical decay operator: every component is reduced by
// rate, i.e. multiplied by (1 - rate). A rate of 0.1 moves the quadrant
// 10% toward the neutral origin. This is the only decay formula in the
// engine; sleep-cycle replay scales fact impacts instead of decaying the
// state directly.
func (s *State) Decay(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quadrant = s.quadrant.Scale(1 - rate).Clamp()
	s.lastUpdated = s.now()
}

// Quadrant returns a snapshot of the current quadrant vector.
func (s *State) Quadrant() Vector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quadrant
}

// Intensity returns the L2 norm of the current quadrant.
func (s *State) Intensity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quadrant.Magnitude()
}

// LastUpdated returns the time of the most recent Update or Decay.
func (s *State) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdated
}

// Reset returns the quadrant to the neutral origin. The state is never
// destroyed, only reset explicitly.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quadrant = Vector{}
	s.lastUpdated = s.now()
}

// Confidence maps an impact magnitude to a confidence score in
// [0.5, 1.0]: a neutral impact still carries baseline confidence.
func Confidence(impact Vector) float64 {
	m := impact.Magnitude()
	if m > 0.5 {
		m = 0.5
	}
	return 0.5 + m
}
