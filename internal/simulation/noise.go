package simulation

import (
	"math/rand"
	"time"
)

// NoiseSource yields uniform values in [0, 1). *rand.Rand satisfies it.
type NoiseSource interface {
	Float64() float64
}

// NewNoiseSource returns a seeded source; seed 0 seeds from the wall clock
func NewNoiseSource(seed int64) NoiseSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// centered maps a [0,1) draw onto [-0.5, 0.5)
func centered(src NoiseSource) float64 {
	return src.Float64() - 0.5
}
