// Package dba implements two-tier dynamic bandwidth allocation: RTT ranging,
// per-cycle grant computation, grant-constrained station uplink with
// fragmentation, and the shared-medium relay between a scheduler and its
// stations. The same components serve the outer tier (OLT and ONUs) and
// every inner tier (an MFU and its SFUs); only the Tier parameters differ.
package dba

import (
	"fmt"
	"math"

	"github.com/pon-dba/pon-dba-sim/sim"
)

// TierKind distinguishes the outer PON from an inner PON nested below an ONU.
type TierKind int

const (
	OuterTier TierKind = iota
	InnerTier
)

func (k TierKind) String() string {
	switch k {
	case OuterTier:
		return "outer"
	case InnerTier:
		return "inner"
	default:
		return fmt.Sprintf("TierKind(%d)", int(k))
	}
}

// Default timing and framing constants.
const (
	DefaultCycleSeconds = 125e-6
	// DefaultUplinkHeaderBytes is preamble + delimiter + BIP + PLOu header.
	DefaultUplinkHeaderBytes = 3 + 1 + 1 + 5 + 8
	// downlinkHeaderBaseBytes is the fixed part of a grant map; each
	// subordinate adds an 8-byte allocation entry.
	downlinkHeaderBaseBytes = 4 + 4 + 13 + 1 + 4*2
	allocationEntryBytes    = 8
)

// Tier holds the parameters shared by one scheduler and its stations.
type Tier struct {
	Kind         TierKind
	Name         string  // label for logs and metrics, e.g. "olt" or "mfu0"
	Subordinates int     // number of polled stations
	LinkRate     float64 // bits per second
	Cycle        int64   // polling cycle, ticks
	Guard        int64   // guard interval per subordinate, ticks
	// CompensationCycles is how many cycle periods a station waits past the
	// grant map arrival before its window opens: 2 on the outer tier, 1 on
	// an inner tier.
	CompensationCycles int
	BufferCapacity     float64 // bytes per station
	UplinkHeaderBytes  float64
	// OverheadClass is the class whose grant pays for the uplink header.
	OverheadClass TrafficClass
}

// Validate checks the tier parameters, including that guard intervals leave
// room for a positive grant.
func (t Tier) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tier name must not be empty")
	}
	if t.Subordinates <= 0 {
		return fmt.Errorf("tier %s: subordinate count must be positive, got %d", t.Name, t.Subordinates)
	}
	if t.LinkRate <= 0 {
		return fmt.Errorf("tier %s: link rate must be positive, got %g", t.Name, t.LinkRate)
	}
	if t.Cycle <= 0 {
		return fmt.Errorf("tier %s: cycle must be positive, got %d", t.Name, t.Cycle)
	}
	if t.Guard < 0 {
		return fmt.Errorf("tier %s: guard must be non-negative, got %d", t.Name, t.Guard)
	}
	if t.CompensationCycles < 0 {
		return fmt.Errorf("tier %s: compensation cycles must be non-negative, got %d", t.Name, t.CompensationCycles)
	}
	if t.BufferCapacity <= 0 {
		return fmt.Errorf("tier %s: buffer capacity must be positive, got %g", t.Name, t.BufferCapacity)
	}
	if t.UplinkHeaderBytes < 0 {
		return fmt.Errorf("tier %s: uplink header bytes must be non-negative, got %g", t.Name, t.UplinkHeaderBytes)
	}
	if t.OverheadClass != Class2 && t.OverheadClass != Class3 {
		return fmt.Errorf("tier %s: overhead class must be 2 or 3, got %d", t.Name, t.OverheadClass)
	}
	if t.MaxGrant() <= 0 {
		return fmt.Errorf("tier %s: guard intervals exhaust the cycle (max grant %g bytes)", t.Name, t.MaxGrant())
	}
	return nil
}

// MaxGrant returns the per-subordinate grant ceiling in bytes:
// floor((cycle − guard·N) · (rate/N) / 8).
func (t Tier) MaxGrant() float64 {
	n := float64(t.Subordinates)
	cycle := sim.TicksToSeconds(t.Cycle)
	guard := sim.TicksToSeconds(t.Guard)
	return math.Floor((cycle - guard*n) * (t.LinkRate / n) / 8)
}

// DownlinkHeaderBytes returns the grant map length for this tier.
func (t Tier) DownlinkHeaderBytes() float64 {
	return downlinkHeaderBaseBytes + allocationEntryBytes*float64(t.Subordinates)
}

// Compensation returns the fixed wait applied by stations to grant map arrivals.
func (t Tier) Compensation() int64 {
	return int64(t.CompensationCycles) * t.Cycle
}

// TxTicks returns the serialization time of bytes on this tier's links.
func (t Tier) TxTicks(bytes float64) int64 {
	return sim.TxTicks(bytes, t.LinkRate)
}
