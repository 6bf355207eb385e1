package workload

import (
	"fmt"
	"math"

	"github.com/pon-dba/pon-dba-sim/sim/dba"
)

// SourceSpec configures one traffic source, instantiated once per station
// it is attached to.
type SourceSpec struct {
	Name string `yaml:"name"`
	// Kind is background, xr, haptic, control or hmd.
	Kind string `yaml:"kind"`
	// Load is the offered fraction of DataRate.
	Load     float64 `yaml:"load"`
	DataRate float64 `yaml:"data_rate"` // bits per second
	// Arrival is poisson (default), constant or gamma.
	Arrival string   `yaml:"arrival,omitempty"`
	CV      float64  `yaml:"cv,omitempty"`
	Size    SizeSpec `yaml:"size,omitempty"`
	// Stations lists the subordinate ids to attach to; empty means every station.
	Stations []int `yaml:"stations,omitempty"`
	// Optional wireless hop between the device and its station.
	AccessRate      float64 `yaml:"access_rate,omitempty"` // bits per second, 0 = none
	AccessDistanceM float64 `yaml:"access_distance_m,omitempty"`
}

// SizeSpec parameterizes the frame size distribution.
type SizeSpec struct {
	Type  string  `yaml:"type,omitempty"` // uniform (default) or constant
	Min   int     `yaml:"min,omitempty"`
	Max   int     `yaml:"max,omitempty"`
	Bytes float64 `yaml:"bytes,omitempty"`
}

var validArrivalProcesses = map[string]bool{"": true, "poisson": true, "constant": true, "gamma": true}

// Validate checks the source against a tier of n stations.
func (s *SourceSpec) Validate(prefix string, n int) error {
	if s.Name == "" {
		return fmt.Errorf("%s: name must not be empty", prefix)
	}
	if _, err := dba.ParseTrafficKind(s.Kind); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	if err := validateFinitePositive(prefix+".load", s.Load); err != nil {
		return err
	}
	if err := validateFinitePositive(prefix+".data_rate", s.DataRate); err != nil {
		return err
	}
	if !validArrivalProcesses[s.Arrival] {
		return fmt.Errorf("%s: unknown arrival process %q; valid: poisson, constant, gamma", prefix, s.Arrival)
	}
	if s.Arrival == "gamma" {
		if err := validateFinitePositive(prefix+".cv", s.CV); err != nil {
			return err
		}
	}
	if _, err := NewSizeSampler(s.Size); err != nil {
		return fmt.Errorf("%s.size: %w", prefix, err)
	}
	for _, id := range s.Stations {
		if id < 0 || id >= n {
			return fmt.Errorf("%s: station %d out of range [0,%d)", prefix, id, n)
		}
	}
	if s.AccessRate < 0 || s.AccessDistanceM < 0 {
		return fmt.Errorf("%s: access_rate and access_distance_m must be non-negative", prefix)
	}
	return nil
}

// StationIDs returns the stations the source attaches to in a tier of n.
func (s *SourceSpec) StationIDs(n int) []int {
	if len(s.Stations) > 0 {
		return s.Stations
	}
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}
