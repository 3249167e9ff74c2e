package vcmem

// The same memory coexists under three representations: the ARM's flat
// physical view (low 30 bits), the GPU's bus view (physical bits with a
// 2-bit cache alias in bits 30-31), and the process virtual address after
// mapping. Bus->physical and physical->bus conversions are lossless;
// virtual addresses are opaque and only invertible by retaining the mapping.

// PhysicalAddress is the ARM's view of a memory location.
type PhysicalAddress uint32

// BusAddress is the GPU's view of a memory location, carrying a cache alias
// in its top two bits.
type BusAddress uint32

// MemoryHandle is the opaque firmware token identifying one allocation.
// Zero is the sentinel for "unallocated".
type MemoryHandle uint32

// Alias selects one of four caching behaviors for a physical page as seen by
// the GPU. The values are hardware constants for the BCM2837 generation, not
// configurable.
type Alias uint32

const (
	// AliasCached is fully cached (L1 and L2).
	AliasCached Alias = 0
	// AliasDirect bypasses all caches.
	AliasDirect Alias = 1
	// AliasCoherent is L2 cached and coherent with the ARM.
	AliasCoherent Alias = 2
	// AliasL1NonAllocating is L2 cached without allocating in L1.
	AliasL1NonAllocating Alias = 3
)

var aliasNameMapping = make(map[Alias]string)

func (a Alias) String() string {
	return aliasNameMapping[a&0x3]
}

func init() {
	aliasNameMapping[AliasCached] = "AliasCached"
	aliasNameMapping[AliasDirect] = "AliasDirect"
	aliasNameMapping[AliasCoherent] = "AliasCoherent"
	aliasNameMapping[AliasL1NonAllocating] = "AliasL1NonAllocating"
}

const physicalMask = 0x3FFFFFFF

// Physical strips the alias bits, yielding the ARM physical address.
func (b BusAddress) Physical() PhysicalAddress {
	return PhysicalAddress(b) & physicalMask
}

// Alias extracts the 2-bit cache alias. Total over all 32-bit inputs.
func (b BusAddress) Alias() Alias {
	return Alias(b>>30) & 0x3
}

// Bus reconstructs a bus address from a physical address and an alias.
func (p PhysicalAddress) Bus(alias Alias) BusAddress {
	return BusAddress(p&physicalMask) | BusAddress(alias&0x3)<<30
}
