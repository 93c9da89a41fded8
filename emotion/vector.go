package emotion

import "math"

// Vector is a 4-dimensional emotional impact in quadrant space.
// Each component is expected to stay within [-1, 1]; Clamp enforces it.
type Vector struct {
	Joy     float64 `json:"joy" yaml:"joy"`
	Calm    float64 `json:"calm" yaml:"calm"`
	Anger   float64 `json:"anger" yaml:"anger"`
	Sadness float64 `json:"sadness" yaml:"sadness"`
}

// Magnitude returns the L2 norm of the vector.
func (v Vector) Magnitude() float64 {
	return math.Sqrt(v.Joy*v.Joy + v.Calm*v.Calm + v.Anger*v.Anger + v.Sadness*v.Sadness)
}

// Scale returns the vector with every component multiplied by f.
func (v Vector) Scale(f float64) Vector {
	return Vector{
		Joy:     v.Joy * f,
		Calm:    v.Calm * f,
		Anger:   v.Anger * f,
		Sadness: v.Sadness * f,
	}
}

// Add returns the component-wise sum of v and other. The result is not
// clamped; callers that need the quadrant invariant must Clamp.
func (v Vector) Add(other Vector) Vector {
	return Vector{
		Joy:     v.Joy + other.Joy,
		Calm:    v.Calm + other.Calm,
		Anger:   v.Anger + other.Anger,
		Sadness: v.Sadness + other.Sadness,
	}
}

// Clamp returns the vector with every component forced into [-1, 1].
func (v Vector) Clamp() Vector {
	return Vector{
		Joy:     clamp(v.Joy),
		Calm:    clamp(v.Calm),
		Anger:   clamp(v.Anger),
		Sadness: clamp(v.Sadness),
	}
}

// Average returns the component-wise mean of v and other.
func (v Vector) Average(other Vector) Vector {
	return Vector{
		Joy:     (v.Joy + other.Joy) / 2,
		Calm:    (v.Calm + other.Calm) / 2,
		Anger:   (v.Anger + other.Anger) / 2,
		Sadness: (v.Sadness + other.Sadness) / 2,
	}
}

// Similarity returns the mean of per-dimension products between the two
// vectors. Positive when the vectors agree in direction, negative when
// they oppose. Used to reinforce patterns whose signature matches the
// current emotional context.
func (v Vector) Similarity(other Vector) float64 {
	return (v.Joy*other.Joy + v.Calm*other.Calm + v.Anger*other.Anger + v.Sadness*other.Sadness) / 4
}

// IsZero reports whether every component is exactly zero.
func (v Vector) IsZero() bool {
	return v.Joy == 0 && v.Calm == 0 && v.Anger == 0 && v.Sadness == 0
}

// MeanOf returns the component-wise mean of the given vectors.
// Returns the zero vector for an empty slice.
func MeanOf(vectors []Vector) Vector {
	if len(vectors) == 0 {
		return Vector{}
	}
	var sum Vector
	for _, v := range vectors {
		sum = sum.Add(v)
	}
	return sum.Scale(1 / float64(len(vectors)))
}

func clamp(f float64) float64 {
	if f > 1 {
		return 1
	}
	if f < -1 {
		return -1
	}
	return f
}
