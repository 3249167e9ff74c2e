package bench

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFillAndVerify(t *testing.T) {
	buf := make([]uint32, 256)
	FillPattern(buf, DefaultSeed)

	require.Equal(t, DefaultSeed, buf[0])
	require.Equal(t, DefaultSeed+255, buf[255])

	mismatches, firstBad := VerifyPattern(buf, DefaultSeed)
	require.Zero(t, mismatches)
	require.Equal(t, -1, firstBad)
}

func TestVerifyReportsCorruption(t *testing.T) {
	buf := make([]uint32, 256)
	FillPattern(buf, 7)

	buf[10] = 0xFFFFFFFF
	buf[200] = 0

	mismatches, firstBad := VerifyPattern(buf, 7)
	require.Equal(t, 2, mismatches)
	require.Equal(t, 10, firstBad)
}

func TestVerifyRejectsStaleZeroes(t *testing.T) {
	buf := make([]uint32, 64)
	mismatches, firstBad := VerifyPattern(buf, 5)
	require.Equal(t, 64, mismatches)
	require.Zero(t, firstBad)
}

func TestZeroClearsBuffer(t *testing.T) {
	buf := make([]uint32, 64)
	FillPattern(buf, 1)
	Zero(buf)
	for _, w := range buf {
		require.Zero(t, w)
	}
}
