package memutils

import (
	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// Number constrains the integer types the alignment and power-of-two helpers
// accept. Heap code mixes int sizes, uintptr addresses, and uint32 flags, so
// the full integer set is allowed.
type Number interface {
	constraints.Integer
}

// IsPow2 returns true if number is a power of two. Zero is not a power of two.
func IsPow2[T Number](number T) bool {
	return number != 0 && number&(number-1) == 0
}

// CheckPow2 returns a wrapped PowerOfTwoError identifying the offending value by
// name if number is not a power of two.
func CheckPow2[T Number](number T, name string) error {
	if !IsPow2(number) {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// CheckMultipleOf returns a wrapped MultipleOfError identifying the offending value
// by name if number is not an exact multiple of factor.
func CheckMultipleOf[T Number](number T, factor T, name string) error {
	if factor == 0 || number%factor != 0 {
		return cerrors.Wrapf(MultipleOfError, "%s is %d, factor is %d", name, number, factor)
	}
	return nil
}

// AlignUp rounds value up to the nearest multiple of alignment. The alignment
// must be a power of two.
func AlignUp[T Number](value T, alignment T) T {
	return (value + alignment - 1) &^ (alignment - 1)
}

// AlignDown rounds value down to the nearest multiple of alignment. The alignment
// must be a power of two.
func AlignDown[T Number](value T, alignment T) T {
	return value &^ (alignment - 1)
}
