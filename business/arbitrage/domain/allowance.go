package domain

import "github.com/shopspring/decimal"

// Allowance is what the current net position permits the next trade to do.
type Allowance int

const (
	CanDoEither Allowance = iota
	CanGoLong
	CanGoShort
	// NoAllowance is used when the position could not be read.
	NoAllowance
)

// String implements fmt.Stringer.
func (a Allowance) String() string {
	switch a {
	case CanDoEither:
		return "either"
	case CanGoLong:
		return "long_only"
	case CanGoShort:
		return "short_only"
	default:
		return "none"
	}
}

// Requirement is the exposure a direction's perp leg adds.
type Requirement int

const (
	RequiresLong Requirement = iota + 1
	RequiresShort
)

// String implements fmt.Stringer.
func (r Requirement) String() string {
	if r == RequiresLong {
		return "long"
	}
	return "short"
}

// AllowanceFor derives the allowance from the signed base position.
// A position beyond +threshold may only be reduced by going short, one below
// -threshold only by going long. No position permits either.
func AllowanceFor(baseUI decimal.Decimal, exists bool, threshold decimal.Decimal) Allowance {
	if !exists {
		return CanDoEither
	}
	switch {
	case baseUI.GreaterThan(threshold):
		return CanGoShort
	case baseUI.LessThan(threshold.Neg()):
		return CanGoLong
	default:
		return CanDoEither
	}
}

// Permits reports whether the allowance lets a trade with requirement r through.
func (a Allowance) Permits(r Requirement) bool {
	switch a {
	case CanDoEither:
		return true
	case CanGoLong:
		return r == RequiresLong
	case CanGoShort:
		return r == RequiresShort
	default:
		return false
	}
}
