package network

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pon-dba/pon-dba-sim/sim"
	"github.com/pon-dba/pon-dba-sim/sim/dba"
	"github.com/pon-dba/pon-dba-sim/sim/trace"
	"github.com/pon-dba/pon-dba-sim/sim/workload"
)

// Config describes one two-tier run. Loaded from YAML via LoadConfig(path).
type Config struct {
	HorizonSeconds float64           `yaml:"horizon_s"`
	Seed           int64             `yaml:"seed"`
	CycleSeconds   float64           `yaml:"cycle_s"`
	GuardSeconds   float64           `yaml:"guard_s"`
	LightSpeedKmS  float64           `yaml:"light_speed_km_s"` // in fiber
	Outer          TierConfig        `yaml:"outer"`
	Inner          []InnerTierConfig `yaml:"inner"`
	Trace          TraceConfig       `yaml:"trace"`
}

// TierConfig configures one scheduler, its splitter and its stations.
// Zero numeric fields take the tier's defaults, so overhead_class 0 means
// the tier default class. compensation_cycles is the exception: leaving it
// unset takes the default while an explicit 0 is kept.
type TierConfig struct {
	Name         string  `yaml:"name"`
	Subordinates int     `yaml:"subordinates"`
	LinkRate     float64 `yaml:"link_rate"` // bits per second
	FeederKm     float64 `yaml:"feeder_km"`
	DropKm       float64 `yaml:"drop_km"`
	// DropKmPerStation overrides DropKm station by station.
	DropKmPerStation   []float64             `yaml:"drop_km_per_station,omitempty"`
	BufferBytes        float64               `yaml:"buffer_bytes"`
	UplinkHeaderBytes  float64               `yaml:"uplink_header_bytes"`
	CompensationCycles *int                  `yaml:"compensation_cycles,omitempty"`
	OverheadClass      int                   `yaml:"overhead_class,omitempty"`
	Policy             string                `yaml:"policy"`
	Sources            []workload.SourceSpec `yaml:"sources"`
}

// InnerTierConfig is a tier nested below outer station Host.
type InnerTierConfig struct {
	Host       int `yaml:"host"`
	TierConfig `yaml:",inline"`
}

// TraceConfig selects decision tracing.
type TraceConfig struct {
	Level      string `yaml:"level"`
	MaxCycles  int    `yaml:"max_cycles"`
	MaxRecords int    `yaml:"max_records"`
}

// Tier defaults from the reference deployment.
const (
	DefaultOuterLinkRate  = 50e9
	DefaultInnerLinkRate  = 10e9
	DefaultBufferBytes    = 100e6
	DefaultGuardSeconds   = 1e-6
	DefaultLightSpeedKmS  = 2e5
	DefaultHorizonSeconds = 0.01
)

// DefaultConfig returns a four-ONU outer tier with one four-SFU inner tier
// hosted by ONU 0.
func DefaultConfig() Config {
	return Config{
		HorizonSeconds: DefaultHorizonSeconds,
		Seed:           42,
		CycleSeconds:   dba.DefaultCycleSeconds,
		GuardSeconds:   DefaultGuardSeconds,
		LightSpeedKmS:  DefaultLightSpeedKmS,
		Outer: TierConfig{
			Name:         "olt",
			Subordinates: 4,
			FeederKm:     10,
			DropKm:       10,
			Sources: []workload.SourceSpec{
				{Name: "bkg", Kind: "background", Load: 0.3, DataRate: 10e9},
			},
		},
		Inner: []InnerTierConfig{{
			Host: 0,
			TierConfig: TierConfig{
				Name:         "mfu0",
				Subordinates: 4,
				FeederKm:     0.5,
				DropKm:       0.5,
				Sources: []workload.SourceSpec{
					{Name: "xr", Kind: "xr", Load: 0.3, DataRate: 1e9},
					{Name: "haptic", Kind: "haptic", Load: 0.05, DataRate: 1e9, Arrival: "constant",
						Size: workload.SizeSpec{Type: "constant", Bytes: 128}},
				},
			},
		}},
		Trace: TraceConfig{Level: string(trace.TraceLevelNone)},
	}
}

// LoadConfig reads a YAML config on top of DefaultConfig.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	// Lists replace the defaults rather than merging into them.
	cfg.Inner = nil
	cfg.Outer.Sources = nil
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Validate checks every field, including the derived tier parameters.
func (c *Config) Validate() error {
	if c.HorizonSeconds <= 0 {
		return fmt.Errorf("horizon_s must be positive, got %g", c.HorizonSeconds)
	}
	if c.CycleSeconds <= 0 {
		return fmt.Errorf("cycle_s must be positive, got %g", c.CycleSeconds)
	}
	if c.GuardSeconds < 0 {
		return fmt.Errorf("guard_s must be non-negative, got %g", c.GuardSeconds)
	}
	if c.LightSpeedKmS <= 0 {
		return fmt.Errorf("light_speed_km_s must be positive, got %g", c.LightSpeedKmS)
	}
	if !trace.IsValidTraceLevel(c.Trace.Level) {
		return fmt.Errorf("unknown trace level %q; valid: none, decisions", c.Trace.Level)
	}
	if c.Trace.MaxCycles < 0 {
		return fmt.Errorf("trace max_cycles must be non-negative, got %d", c.Trace.MaxCycles)
	}
	if c.Trace.MaxRecords < 0 {
		return fmt.Errorf("trace max_records must be non-negative, got %d", c.Trace.MaxRecords)
	}
	if err := c.validateTier("outer", c.Outer, dba.OuterTier); err != nil {
		return err
	}
	names := map[string]bool{c.Outer.Name: true}
	for i, in := range c.Inner {
		prefix := fmt.Sprintf("inner[%d]", i)
		if in.Host < 0 || in.Host >= c.Outer.Subordinates {
			return fmt.Errorf("%s: host %d out of range [0,%d)", prefix, in.Host, c.Outer.Subordinates)
		}
		if names[in.Name] {
			return fmt.Errorf("%s: duplicate tier name %q", prefix, in.Name)
		}
		names[in.Name] = true
		if err := c.validateTier(prefix, in.TierConfig, dba.InnerTier); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateTier(prefix string, tc TierConfig, kind dba.TierKind) error {
	if tc.FeederKm < 0 || tc.DropKm < 0 {
		return fmt.Errorf("%s: fiber lengths must be non-negative", prefix)
	}
	if n := len(tc.DropKmPerStation); n > 0 && n != tc.Subordinates {
		return fmt.Errorf("%s: drop_km_per_station has %d entries, want %d", prefix, n, tc.Subordinates)
	}
	for _, km := range tc.DropKmPerStation {
		if km < 0 {
			return fmt.Errorf("%s: drop_km_per_station entries must be non-negative", prefix)
		}
	}
	if !dba.IsValidGrantPolicy(tc.Policy) {
		return fmt.Errorf("%s: %w %q; valid: limited, fixed", prefix, dba.ErrUnknownGrantPolicy, tc.Policy)
	}
	if err := c.tier(tc, kind).Validate(); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	for i := range tc.Sources {
		if err := tc.Sources[i].Validate(fmt.Sprintf("%s.sources[%d]", prefix, i), tc.Subordinates); err != nil {
			return err
		}
	}
	return nil
}

// tier derives the dba parameters of tc, applying per-kind defaults.
func (c *Config) tier(tc TierConfig, kind dba.TierKind) dba.Tier {
	t := dba.Tier{
		Kind:              kind,
		Name:              tc.Name,
		Subordinates:      tc.Subordinates,
		LinkRate:          tc.LinkRate,
		Cycle:             sim.SecondsToTicks(c.CycleSeconds),
		Guard:             sim.SecondsToTicks(c.GuardSeconds),
		BufferCapacity:    tc.BufferBytes,
		UplinkHeaderBytes: tc.UplinkHeaderBytes,
		OverheadClass:     dba.TrafficClass(tc.OverheadClass),
	}
	if t.BufferCapacity == 0 {
		t.BufferCapacity = DefaultBufferBytes
	}
	if t.UplinkHeaderBytes == 0 {
		t.UplinkHeaderBytes = dba.DefaultUplinkHeaderBytes
	}
	switch kind {
	case dba.OuterTier:
		if t.LinkRate == 0 {
			t.LinkRate = DefaultOuterLinkRate
		}
		t.CompensationCycles = compensationOr(tc.CompensationCycles, 2)
		if t.OverheadClass == 0 {
			t.OverheadClass = dba.Class3
		}
	case dba.InnerTier:
		if t.LinkRate == 0 {
			t.LinkRate = DefaultInnerLinkRate
		}
		t.CompensationCycles = compensationOr(tc.CompensationCycles, 1)
		if t.OverheadClass == 0 {
			t.OverheadClass = dba.Class2
		}
	}
	return t
}

func compensationOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// propagation returns the one-way fiber delay over km.
func (c *Config) propagation(km float64) int64 {
	return sim.SecondsToTicks(km / c.LightSpeedKmS)
}

// dropKm returns the drop fiber length of station i.
func (tc TierConfig) dropKm(i int) float64 {
	if len(tc.DropKmPerStation) > 0 {
		return tc.DropKmPerStation[i]
	}
	return tc.DropKm
}
