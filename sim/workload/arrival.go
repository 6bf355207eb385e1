package workload

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pon-dba/pon-dba-sim/sim"
)

// ArrivalSampler draws the gap to a source's next frame.
type ArrivalSampler interface {
	// SampleIAT returns the next inter-arrival time in ticks, at least 1.
	SampleIAT(rng *rand.Rand) int64
}

// minGammaShape is the smallest shape (1/CV²) sampled as gamma; burstier
// settings fall back to Poisson.
const minGammaShape = 0.01

// atLeastOneTick converts seconds to ticks so that arrivals always advance.
func atLeastOneTick(seconds float64) int64 {
	return max(sim.SecondsToTicks(seconds), 1)
}

// PoissonSampler draws exponential gaps (CV = 1).
type PoissonSampler struct {
	rate float64 // frames per second
}

func (s *PoissonSampler) SampleIAT(rng *rand.Rand) int64 {
	return atLeastOneTick(distuv.Exponential{Rate: s.rate, Src: rng}.Rand())
}

// ConstantSampler emits frames at a fixed period, as a periodic XR or
// haptic stream does. It never consumes randomness.
type ConstantSampler struct {
	period float64 // seconds
}

func (s *ConstantSampler) SampleIAT(_ *rand.Rand) int64 {
	return atLeastOneTick(s.period)
}

// GammaSampler draws gamma gaps with a configured coefficient of variation;
// CV > 1 gives bursty traffic.
type GammaSampler struct {
	shape float64 // 1/CV²
	rate  float64 // shape × frames per second, so the mean gap is 1/fps
}

func (s *GammaSampler) SampleIAT(rng *rand.Rand) int64 {
	return atLeastOneTick(distuv.Gamma{Alpha: s.shape, Beta: s.rate, Src: rng}.Rand())
}

// NewArrivalSampler creates a sampler for process at ratePerSecond frames
// per second. An empty process selects Poisson; cv only matters for gamma.
func NewArrivalSampler(process string, cv, ratePerSecond float64) ArrivalSampler {
	if ratePerSecond <= 0 {
		panic(fmt.Sprintf("NewArrivalSampler: rate must be positive, got %g", ratePerSecond))
	}
	switch process {
	case "", "poisson":
		return &PoissonSampler{rate: ratePerSecond}
	case "constant":
		return &ConstantSampler{period: 1 / ratePerSecond}
	case "gamma":
		if cv <= 0 {
			cv = 1
		}
		shape := 1 / (cv * cv)
		if shape < minGammaShape {
			logrus.Warnf("gamma shape %.4f (CV=%.1f) is too small to sample; using Poisson", shape, cv)
			return &PoissonSampler{rate: ratePerSecond}
		}
		return &GammaSampler{shape: shape, rate: shape * ratePerSecond}
	default:
		panic("NewArrivalSampler: unknown arrival process " + process)
	}
}
