package workload

import (
	"fmt"
	"math/rand"
)

// Ethernet frame bounds in bytes.
const (
	MinFrameBytes = 64
	MaxFrameBytes = 1542
)

// SizeSampler generates frame sizes in bytes.
type SizeSampler interface {
	// Sample returns a positive frame size.
	Sample(rng *rand.Rand) float64
	// Mean returns the expected size, used to turn a load into a frame rate.
	Mean() float64
}

// UniformSize draws integer sizes uniformly from [min, max].
type UniformSize struct {
	min, max int
}

func (s *UniformSize) Sample(rng *rand.Rand) float64 {
	return float64(s.min + rng.Intn(s.max-s.min+1))
}

func (s *UniformSize) Mean() float64 { return float64(s.min+s.max) / 2 }

// ConstantSize always returns the same size.
type ConstantSize struct {
	bytes float64
}

func (s *ConstantSize) Sample(_ *rand.Rand) float64 { return s.bytes }

func (s *ConstantSize) Mean() float64 { return s.bytes }

// NewSizeSampler creates a SizeSampler from a spec.
func NewSizeSampler(spec SizeSpec) (SizeSampler, error) {
	switch spec.Type {
	case "", "uniform":
		lo, hi := spec.Min, spec.Max
		if lo == 0 && hi == 0 {
			lo, hi = MinFrameBytes, MaxFrameBytes
		}
		if lo <= 0 || hi < lo {
			return nil, fmt.Errorf("uniform size range [%d,%d] is invalid", lo, hi)
		}
		return &UniformSize{min: lo, max: hi}, nil
	case "constant":
		if spec.Bytes <= 0 {
			return nil, fmt.Errorf("constant size must be positive, got %g", spec.Bytes)
		}
		return &ConstantSize{bytes: spec.Bytes}, nil
	default:
		return nil, fmt.Errorf("unknown size distribution %q; valid: uniform, constant", spec.Type)
	}
}
