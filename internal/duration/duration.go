// Package duration turns a (value, unit) pair into an absolute expiry.
package duration

import (
	"errors" // Sentinel errors
	"fmt"    // Error formatting
	"slices" // Slice helpers
	"time"   // Time handling
)

// Unit is a calendar unit a campaign duration is expressed in.
type Unit string

const (
	Hours  Unit = "hours"
	Days   Unit = "days"
	Weeks  Unit = "weeks"
	Months Unit = "months"
)

// UnitSet lists the units an operation accepts.
type UnitSet []Unit

var (
	// ContributionUnits are accepted for contribution campaigns.
	ContributionUnits = UnitSet{Days, Weeks, Months}
	// VoteUnits are accepted for votes.
	VoteUnits = UnitSet{Hours, Days, Weeks}
)

// ErrInvalid is returned for non-positive values, missing units or units
// outside the allowed set.
var ErrInvalid = errors.New("invalid duration")

// Spec is a requested duration.
type Spec struct {
	Value int  `json:"value"`
	Unit  Unit `json:"unit"`
}

// Resolve returns now + spec in the spec's unit. Only a nil spec means
// "no expiry" and yields a nil timestamp.
// Months use calendar-month addition, so Jan 31 + 1 month normalizes into March.
func Resolve(now time.Time, spec *Spec, allowed UnitSet) (*time.Time, error) {
	if spec == nil {
		return nil, nil
	}
	if spec.Value <= 0 {
		return nil, fmt.Errorf("%w: value must be positive, got %d", ErrInvalid, spec.Value)
	}
	if spec.Unit == "" {
		return nil, fmt.Errorf("%w: unit is required", ErrInvalid)
	}
	if !slices.Contains(allowed, spec.Unit) {
		return nil, fmt.Errorf("%w: unit %q not accepted here", ErrInvalid, spec.Unit)
	}
	var end time.Time
	switch spec.Unit {
	case Hours:
		end = now.Add(time.Duration(spec.Value) * time.Hour)
	case Days:
		end = now.AddDate(0, 0, spec.Value)
	case Weeks:
		end = now.AddDate(0, 0, 7*spec.Value)
	case Months:
		end = now.AddDate(0, spec.Value, 0)
	default:
		return nil, fmt.Errorf("%w: unknown unit %q", ErrInvalid, spec.Unit)
	}
	return &end, nil
}

// Ended is true iff end is set and now is strictly after it.
func Ended(end *time.Time, now time.Time) bool {
	return end != nil && now.After(*end)
}
