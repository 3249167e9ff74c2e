package vcmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBusAddressRoundTrip(t *testing.T) {
	// toBus(toPhysical(x), aliasOf(x)) == x must hold for every bus address
	cases := []uint32{0, 1, 0x3FFFFFFF, 0x40000000, 0x7FFFFFFF, 0x80000000, 0xC0000000, 0xDEADBEEF, 0xFFFFFFFF}
	for _, c := range cases {
		bus := BusAddress(c)
		require.Equal(t, bus, bus.Physical().Bus(bus.Alias()), "round trip failed for 0x%08X", c)
	}

	for x := uint64(0); x <= 0xFFFFFFFF; x += 0x10001 {
		bus := BusAddress(x)
		require.Equal(t, bus, bus.Physical().Bus(bus.Alias()))
	}
}

func TestAliasIsTotal(t *testing.T) {
	for x := uint64(0); x <= 0xFFFFFFFF; x += 0x3FFFF {
		alias := BusAddress(x).Alias()
		require.LessOrEqual(t, uint32(alias), uint32(3))
	}

	require.Equal(t, AliasCached, BusAddress(0x00001000).Alias())
	require.Equal(t, AliasDirect, BusAddress(0x40001000).Alias())
	require.Equal(t, AliasCoherent, BusAddress(0x80001000).Alias())
	require.Equal(t, AliasL1NonAllocating, BusAddress(0xC0001000).Alias())
}

func TestPhysicalStripsAliasBits(t *testing.T) {
	require.Equal(t, PhysicalAddress(0x1000), BusAddress(0xC0001000).Physical())
	require.Equal(t, PhysicalAddress(0x3FFFFFFF), BusAddress(0xFFFFFFFF).Physical())
	require.Equal(t, PhysicalAddress(0), BusAddress(0x40000000).Physical())
}

func TestPhysicalBusMasksHighBits(t *testing.T) {
	// Physical addresses only carry 30 bits; anything above is discarded
	require.Equal(t, BusAddress(0x40001000), PhysicalAddress(0xC0001000).Bus(AliasDirect))
}

func TestAliasString(t *testing.T) {
	require.Equal(t, "AliasCached", AliasCached.String())
	require.Equal(t, "AliasDirect", AliasDirect.String())
	require.Equal(t, "AliasCoherent", AliasCoherent.String())
	require.Equal(t, "AliasL1NonAllocating", AliasL1NonAllocating.String())
}

func TestAllocateFlagsAliasClass(t *testing.T) {
	require.Equal(t, AliasCached, MemFlagNormal.AliasClass())
	require.Equal(t, AliasDirect, MemFlagDirect.AliasClass())
	require.Equal(t, AliasCoherent, MemFlagCoherent.AliasClass())
	require.Equal(t, AliasL1NonAllocating, MemFlagL1NonAllocating.AliasClass())
	require.Equal(t, AliasDirect, MemFlagZeroCopy.AliasClass())
	require.Equal(t, AliasCoherent, MemFlagCachedCoherent.AliasClass())
}

func TestWantsUncachedMapping(t *testing.T) {
	require.True(t, MemFlagZeroCopy.WantsUncachedMapping())
	require.True(t, MemFlagDirect.WantsUncachedMapping())
	require.False(t, MemFlagCachedCoherent.WantsUncachedMapping())
	require.False(t, MemFlagL1NonAllocating.WantsUncachedMapping())
	require.False(t, MemFlagNormal.WantsUncachedMapping())
}

func TestAllocateFlagsString(t *testing.T) {
	require.Equal(t, "None", AllocateFlags(0).String())
	require.Equal(t, "MemFlagDirect|MemFlagZero", MemFlagZeroCopy.String())
	require.Equal(t, "MemFlagCoherent|MemFlagZero", MemFlagCachedCoherent.String())
}
