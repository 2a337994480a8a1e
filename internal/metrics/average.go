// Package metrics provides the arithmetic primitives for incremental
// running-average maintenance.
//
// All results are rounded half-up (away from zero) to a fixed number of
// decimal places. The rounding is part of the observable contract: callers
// store and compare the rounded values, so the same sequence of operations
// always yields the same stored aggregate.
package metrics

import (
	"errors"
	"math"
	"time"
)

// ErrNoPriorValue is returned when a replacement is requested but no prior
// value exists. The calling rule's guard makes this unreachable in normal
// operation; hitting it means the guard was bypassed.
var ErrNoPriorValue = errors.New("replace requested with no prior value")

// Round2 rounds to 2 decimal places, half away from zero.
func Round2(v float64) float64 {
	return roundTo(v, 2)
}

// Round3 rounds to 3 decimal places, half away from zero.
// On-time delivery is the one metric stored at 3 decimals.
func Round3(v float64) float64 {
	return roundTo(v, 3)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// NewAverage folds a newly counted value into a running average.
// countBefore is the number of values already reflected in currentAvg.
// A zero denominator yields 0.0 rather than an error.
func NewAverage(currentAvg float64, countBefore int, newValue float64) float64 {
	denom := countBefore + 1
	if denom == 0 {
		return 0.0
	}
	return Round2((currentAvg*float64(countBefore) + newValue) / float64(denom))
}

// ReplaceInAverage swaps one already-counted value for another, leaving the
// count unchanged. oldValue must be non-nil; a nil oldValue returns
// ErrNoPriorValue. A zero count yields 0.0.
func ReplaceInAverage(currentAvg float64, count int, newValue float64, oldValue *float64) (float64, error) {
	if oldValue == nil {
		return 0, ErrNoPriorValue
	}
	if count == 0 {
		return 0.0, nil
	}
	return Round2((currentAvg*float64(count) - *oldValue + newValue) / float64(count)), nil
}

// ElapsedHours returns the hours between t2 and t1 (t1 - t2), rounded to
// 2 decimal places. Negative when t1 precedes t2.
func ElapsedHours(t1, t2 time.Time) float64 {
	return Round2(t1.Sub(t2).Seconds() / 3600)
}
