package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint
}

func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}

// AlignUp32 rounds value up to the next multiple of alignment. Firmware sizes
// and alignments are 32-bit on the wire, so this variant avoids widening at
// every call site.
func AlignUp32(value, alignment uint32) uint32 {
	return (value + alignment - 1) &^ (alignment - 1)
}
