package vcmem

import "github.com/Foadsf/HPC-GPGPU/memutils"

// AllocateFlags control how the firmware allocates memory and which bus
// alias the allocation appears under once locked.
type AllocateFlags uint32

var allocateFlagsMapping = memutils.NewFlagStringMapping[AllocateFlags]()

func (f AllocateFlags) Register(str string) {
	allocateFlagsMapping.Register(f, str)
}
func (f AllocateFlags) String() string {
	return allocateFlagsMapping.FlagsToString(f)
}

const (
	// MemFlagDiscardable marks memory the firmware may resize to 0 at any time.
	MemFlagDiscardable AllocateFlags = 1 << 0
	// MemFlagNormal allocates normally cached memory.
	MemFlagNormal AllocateFlags = 0 << 2
	// MemFlagDirect allocates under the direct/uncached alias.
	MemFlagDirect AllocateFlags = 1 << 2
	// MemFlagCoherent allocates under the coherent (L2 cached, ARM-visible) alias.
	MemFlagCoherent AllocateFlags = 2 << 2
	// MemFlagL1NonAllocating allocates under the L1-non-allocating alias.
	MemFlagL1NonAllocating AllocateFlags = MemFlagDirect | MemFlagCoherent
	// MemFlagZero initializes the allocation to all zeros.
	MemFlagZero AllocateFlags = 1 << 4
	// MemFlagNoInit leaves the allocation uninitialized.
	MemFlagNoInit AllocateFlags = 1 << 5
	// MemFlagHintPermalock hints that the allocation will stay locked and
	// needs no kernel mapping.
	MemFlagHintPermalock AllocateFlags = 1 << 6

	// MemFlagZeroCopy is the recommended preset for zero-copy GPU memory:
	// CPU writes go directly to RAM with no cache to flush.
	MemFlagZeroCopy = MemFlagDirect | MemFlagZero
	// MemFlagCachedCoherent is the recommended preset for cached CPU memory
	// with GPU access.
	MemFlagCachedCoherent = MemFlagCoherent | MemFlagZero
)

func init() {
	MemFlagDiscardable.Register("MemFlagDiscardable")
	MemFlagDirect.Register("MemFlagDirect")
	MemFlagCoherent.Register("MemFlagCoherent")
	MemFlagZero.Register("MemFlagZero")
	MemFlagNoInit.Register("MemFlagNoInit")
	MemFlagHintPermalock.Register("MemFlagHintPermalock")
}

// AliasClass extracts the alias selector from bits 2-3.
func (f AllocateFlags) AliasClass() Alias {
	return Alias(f>>2) & 0x3
}

// WantsUncachedMapping reports whether a process mapping of this allocation
// should bypass the CPU cache. Only the pure direct alias maps uncached;
// coherent and L1-non-allocating allocations stay on the cached path.
func (f AllocateFlags) WantsUncachedMapping() bool {
	return f&MemFlagL1NonAllocating == MemFlagDirect
}
