// Package vectormath holds the small set of vector operations the ranking
// engine is built on. Vectors are expected to be unit length before they are
// stored; Cosine does not divide by norms.
package vectormath

import (
	"errors"
	"fmt"
	"math"
)

// Epsilon guards L2Normalize against division by zero.
const Epsilon = 1e-12

// UnitTolerance is the allowed deviation of a stored vector's norm from 1.
const UnitTolerance = 1e-3

var (
	// ErrEmpty is returned when an operation requires at least one vector.
	ErrEmpty = errors.New("vectormath: no vectors")

	// ErrDimensionMismatch is returned when vectors of different lengths are combined.
	ErrDimensionMismatch = errors.New("vectormath: dimension mismatch")
)

// Cosine returns the dot product of a and b over min(len(a), len(b)) elements.
// For unit vectors this equals cosine similarity.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// IsUnit reports whether v has unit length within UnitTolerance.
func IsUnit(v []float32) bool {
	return math.Abs(Norm(v)-1) < UnitTolerance
}

// L2Normalize returns v / max(‖v‖, Epsilon) as a new slice.
func L2Normalize(v []float32) []float32 {
	norm := Norm(v)
	if norm < Epsilon {
		norm = Epsilon
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Mean returns the element-wise average of vectors. All vectors must share
// the same length.
func Mean(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, ErrEmpty
	}

	dim := len(vectors[0])
	sums := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		for j, x := range v {
			sums[j] += float64(x)
		}
	}

	out := make([]float32, dim)
	n := float64(len(vectors))
	for j, s := range sums {
		out[j] = float32(s / n)
	}
	return out, nil
}

// MeanNormalized averages vectors and re-normalizes the result, since the
// mean of unit vectors is generally shorter than unit length.
func MeanNormalized(vectors [][]float32) ([]float32, error) {
	mean, err := Mean(vectors)
	if err != nil {
		return nil, err
	}
	return L2Normalize(mean), nil
}
