package memutils

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Integer
}

func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return errors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// DivideRoundUp returns ceil(value / divisor) for non-negative values and a positive divisor
func DivideRoundUp[T Number](value, divisor T) T {
	return (value + divisor - 1) / divisor
}

// RoundDown returns the largest multiple of unit that is not greater than value
func RoundDown[T Number](value, unit T) T {
	return value - value%unit
}
