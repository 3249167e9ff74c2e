package memutils

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

// FlagStringMapping is a registry of human-readable names for the bits of a
// flag type. Flag types register each bit once from an init function and
// implement String in terms of FlagsToString.
type FlagStringMapping[T constraints.Integer] struct {
	mapping map[T]string
}

func NewFlagStringMapping[T constraints.Integer]() FlagStringMapping[T] {
	return FlagStringMapping[T]{mapping: make(map[T]string)}
}

func (m FlagStringMapping[T]) Register(flag T, str string) {
	m.mapping[flag] = str
}

func (m FlagStringMapping[T]) FlagsToString(flags T) string {
	if flags == 0 {
		return "None"
	}

	var names []string
	var remaining = flags
	for i := uint(0); i < 64; i++ {
		bit := T(uint64(1) << i)
		if bit == 0 {
			// Shifted past the width of T
			break
		}
		if flags&bit == 0 {
			continue
		}
		name, ok := m.mapping[bit]
		if !ok {
			continue
		}
		names = append(names, name)
		remaining &^= bit
	}

	if remaining != 0 {
		names = append(names, fmt.Sprintf("0x%X", uint64(remaining)))
	}

	return strings.Join(names, "|")
}
