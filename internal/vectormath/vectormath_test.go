package vectormath

import (
	"errors"
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical unit", a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{0, 1}, b: []float32{0, -1}, want: -1},
		{name: "truncates to shorter", a: []float32{0.6, 0.8, 5}, b: []float32{0.6, 0.8}, want: 1},
		{name: "empty", a: nil, b: []float32{1}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Cosine() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestL2Normalize(t *testing.T) {
	v := L2Normalize([]float32{3, 4})
	if !IsUnit(v) {
		t.Fatalf("expected unit vector, got norm %f", Norm(v))
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("unexpected components: %v", v)
	}

	zero := L2Normalize([]float32{0, 0, 0})
	for _, x := range zero {
		if x != 0 {
			t.Errorf("zero vector should stay zero, got %v", zero)
		}
	}
}

func TestMean(t *testing.T) {
	mean, err := Mean([][]float32{{1, 0}, {0, 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mean[0] != 0.5 || mean[1] != 0.5 {
		t.Errorf("Mean() = %v, want [0.5 0.5]", mean)
	}

	if _, err := Mean(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}

	if _, err := Mean([][]float32{{1, 0}, {1}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestMeanNormalizedIsUnit(t *testing.T) {
	vectors := [][]float32{
		L2Normalize([]float32{1, 2, 3}),
		L2Normalize([]float32{-1, 0, 2}),
		L2Normalize([]float32{0.5, 0.5, 0}),
	}

	mean, err := MeanNormalized(vectors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsUnit(mean) {
		t.Errorf("expected unit vector, got norm %f", Norm(mean))
	}
}
