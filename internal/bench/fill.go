package bench

// FillPattern writes an incrementing 32-bit pattern starting at seed. Every
// word gets a unique value, which makes full verification possible and
// simulates data generation rather than a constant-splat memset.
func FillPattern(words []uint32, seed uint32) {
	value := seed
	for i := range words {
		words[i] = value
		value++
	}
}

// VerifyPattern checks that words holds the incrementing pattern produced by
// FillPattern. It returns the number of mismatched words and the index of
// the first mismatch, or -1 when the buffer verifies clean.
func VerifyPattern(words []uint32, seed uint32) (mismatches, firstBad int) {
	firstBad = -1
	expected := seed
	for i, w := range words {
		if w != expected {
			if firstBad < 0 {
				firstBad = i
			}
			mismatches++
		}
		expected++
	}
	return mismatches, firstBad
}

// Zero clears the buffer between iterations so stale data cannot satisfy
// verification.
func Zero(words []uint32) {
	for i := range words {
		words[i] = 0
	}
}
