package dba

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownGrantPolicy is returned for unrecognized policy names.
var ErrUnknownGrantPolicy = errors.New("unknown grant policy")

// ValidGrantPolicies is the set of recognized grant policy names.
// The empty string selects the default (limited service).
var ValidGrantPolicies = map[string]bool{"": true, "limited": true, "fixed": true}

// IsValidGrantPolicy reports whether name is a recognized grant policy.
func IsValidGrantPolicy(name string) bool {
	return ValidGrantPolicies[name]
}

// GrantPolicy splits one subordinate's grant ceiling across classes 2 and 3.
type GrantPolicy interface {
	Allocate(occupancy2, occupancy3, maxGrant float64) (grant2, grant3 float64)
}

// NewGrantPolicy creates a grant policy by name.
func NewGrantPolicy(name string) (GrantPolicy, error) {
	switch name {
	case "", "limited":
		return LimitedService{}, nil
	case "fixed":
		return FixedService{}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownGrantPolicy, name)
	}
}

// ClassCaps splits maxGrant in proportion to the class-2 share of the
// reported backlog. Zero combined backlog gives class 2 a share of 0, so
// class 3 receives the whole ceiling. cap2 + cap3 == maxGrant.
func ClassCaps(occupancy2, occupancy3, maxGrant float64) (cap2, cap3 float64) {
	occupancy2, occupancy3 = nonNegative(occupancy2), nonNegative(occupancy3)
	share2 := 0.0
	if total := occupancy2 + occupancy3; total > 0 {
		share2 = occupancy2 / total
	}
	if math.IsNaN(share2) {
		// both backlogs infinite
		share2 = 0
	}
	cap2 = share2 * maxGrant
	cap3 = maxGrant - cap2
	return cap2, cap3
}

// LimitedService grants min(backlog, proportional cap) per class, so an idle
// queue is never granted unused capacity.
type LimitedService struct{}

func (LimitedService) Allocate(occupancy2, occupancy3, maxGrant float64) (float64, float64) {
	cap2, cap3 := ClassCaps(occupancy2, occupancy3, maxGrant)
	return math.Min(nonNegative(occupancy2), cap2), math.Min(nonNegative(occupancy3), cap3)
}

// FixedService splits the ceiling evenly regardless of backlog.
type FixedService struct{}

func (FixedService) Allocate(_, _, maxGrant float64) (float64, float64) {
	half := maxGrant / 2
	return half, maxGrant - half
}

// nonNegative clamps negative and NaN inputs to zero.
func nonNegative(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}
