package ranking

import (
	"math"

	"github.com/timmy/shotrank/internal/config"
)

// PoolMax returns the largest score, or 0 for an empty list.
func PoolMax(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s > best {
			best = s
		}
	}
	return best
}

// PoolSoftmax returns the smooth maximum τ·log((1/n)·Σ exp(sᵢ/τ)).
//
// The 1/n term keeps the result inside [min, max] for every τ > 0 and makes a
// singleton list return its score unchanged. As τ→0 it converges to the max.
// The sum is shifted by the max score so large scores cannot overflow.
func PoolSoftmax(scores []float64, temperature float64) float64 {
	switch len(scores) {
	case 0:
		return 0
	case 1:
		return scores[0]
	}
	if temperature <= 0 {
		return PoolMax(scores)
	}

	m := PoolMax(scores)
	var sum float64
	for _, s := range scores {
		sum += math.Exp((s - m) / temperature)
	}
	pooled := m + temperature*math.Log(sum/float64(len(scores)))

	// Rounding can push the result a hair past max.
	if pooled > m {
		return m
	}
	return pooled
}

// Pooler collapses per-expansion scores using the configured mode.
type Pooler struct {
	mode        string
	temperature float64
}

// NewPooler creates a Pooler from the pooling configuration.
func NewPooler(cfg config.PoolingConfig) Pooler {
	return Pooler{mode: cfg.Mode, temperature: cfg.Temperature}
}

// Pool combines scores into one value.
func (p Pooler) Pool(scores []float64) float64 {
	if p.mode == config.PoolingMax {
		return PoolMax(scores)
	}
	return PoolSoftmax(scores, p.temperature)
}
