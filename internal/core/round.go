package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	half    = decimal.New(5, -1)
	hundred = decimal.NewFromInt(100)

	maxWhole = decimal.NewFromInt(math.MaxInt64)
	minWhole = decimal.NewFromInt(-math.MaxInt64)
)

// ZeroACVPolicy decides what happens when a group's ACV sums to zero.
type ZeroACVPolicy int

const (
	// ZeroACVSentinel renders every row of the group as "0%". The synthetic
	// Total row keeps "100%".
	ZeroACVSentinel ZeroACVPolicy = iota
	// ZeroACVError aborts the aggregation with a *DegenerateBucketError.
	ZeroACVError
)

func (p ZeroACVPolicy) String() string {
	switch p {
	case ZeroACVError:
		return "error"
	default:
		return "sentinel"
	}
}

// ParseZeroACVPolicy accepts "sentinel" (or empty) and "error".
func ParseZeroACVPolicy(s string) (ZeroACVPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sentinel":
		return ZeroACVSentinel, nil
	case "error":
		return ZeroACVError, nil
	default:
		return ZeroACVSentinel, fmt.Errorf("unknown zero ACV policy %q: must be sentinel or error", s)
	}
}

// RoundHalfUp rounds to the nearest integer with ties going towards +Inf,
// the same rule as JavaScript's Math.round. d must satisfy RoundsInRange.
func RoundHalfUp(d decimal.Decimal) int64 {
	return roundHalfUp(d).IntPart()
}

func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Add(half).Floor()
}

// RoundsInRange reports whether d rounds to a whole number within
// ±math.MaxInt64.
func RoundsInRange(d decimal.Decimal) bool {
	r := roundHalfUp(d)
	return !r.GreaterThan(maxWhole) && !r.LessThan(minWhole)
}

// Percentage formats round(100*part/total) as "<int>%". The share stays a
// decimal, so extreme ratios cannot wrap.
func Percentage(part, total int64) string {
	share := decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(total))
	return roundHalfUp(share).String() + "%"
}

func percentageFor(part, total int64, policy ZeroACVPolicy, quarter string) (string, error) {
	if total == 0 {
		if policy == ZeroACVError {
			return "", &DegenerateBucketError{Quarter: quarter}
		}
		return "0%", nil
	}
	return Percentage(part, total), nil
}
