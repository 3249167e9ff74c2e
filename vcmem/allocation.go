package vcmem

import (
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"
)

// Allocation is one live GPU memory region: allocated from the firmware,
// locked to a bus address, and mapped into the process. Instances are only
// created by Allocator.AllocateAndMap, which guarantees all three steps
// completed; Release tears all three down.
type Allocation struct {
	allocator *Allocator

	handle  MemoryHandle
	busAddr BusAddress
	size    int
	flags   AllocateFlags

	pageBase PhysicalAddress
	window   []byte
	data     []byte

	prev *Allocation
	next *Allocation
}

// Handle is the firmware token for this allocation.
func (a *Allocation) Handle() MemoryHandle {
	return a.handle
}

// BusAddress is the GPU's address for this memory, including the cache
// alias in its top bits.
func (a *Allocation) BusAddress() BusAddress {
	return a.busAddr
}

// PhysicalAddress is the ARM's address for this memory.
func (a *Allocation) PhysicalAddress() PhysicalAddress {
	return a.busAddr.Physical()
}

// Size is the allocation length in bytes, after rounding up to the requested
// alignment.
func (a *Allocation) Size() int {
	return a.size
}

func (a *Allocation) Flags() AllocateFlags {
	return a.flags
}

// Bytes is the process-mapped view of the allocation. Writes land in GPU
// memory directly; whether they go through the CPU cache depends on the
// allocation's alias class.
func (a *Allocation) Bytes() []byte {
	return a.data
}

// Words reinterprets the mapped region as 32-bit words.
func (a *Allocation) Words() []uint32 {
	if len(a.data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&a.data[0])), len(a.data)/4)
}

// IsReleased reports whether Release has already run.
func (a *Allocation) IsReleased() bool {
	return a.allocator == nil
}

// Release tears the allocation down: unmap, unlock, free, in that order.
// Teardown is best-effort: a failing step is logged and recorded but does
// not stop the remaining steps, since leaking firmware memory is worse than
// a partial warning. The combined error of all failed steps is returned.
// Release is idempotent; calling it again is a no-op.
func (a *Allocation) Release() error {
	if a.allocator == nil {
		return nil
	}
	allocator := a.allocator
	a.allocator = nil

	allocator.unregisterAllocation(a)

	var combined error

	if a.window != nil {
		if err := allocator.unmapPhysical(a.window, a.pageBase); err != nil {
			allocator.logger.Error("Allocation::Release: unmap failed",
				slog.Uint64("Handle", uint64(a.handle)), slog.Any("error", err))
			combined = cerrors.CombineErrors(combined, err)
		}
		a.window = nil
		a.data = nil
	}

	if a.busAddr != 0 {
		if err := allocator.Unlock(a.handle); err != nil {
			allocator.logger.Error("Allocation::Release: unlock failed",
				slog.Uint64("Handle", uint64(a.handle)), slog.Any("error", err))
			combined = cerrors.CombineErrors(combined, err)
		}
		a.busAddr = 0
	}

	if a.handle != 0 {
		if err := allocator.Free(a.handle); err != nil {
			allocator.logger.Error("Allocation::Release: free failed",
				slog.Uint64("Handle", uint64(a.handle)), slog.Any("error", err))
			combined = cerrors.CombineErrors(combined, err)
		}
		a.handle = 0
	}

	return combined
}

func (a *Allocation) printParameters(json *jwriter.ObjectState) {
	json.Name("Handle").Int(int(a.handle))
	json.Name("BusAddress").Int(int(a.busAddr))
	json.Name("PhysicalAddress").Int(int(a.busAddr.Physical()))
	json.Name("Alias").String(a.busAddr.Alias().String())
	json.Name("Size").Int(a.size)
	json.Name("Flags").String(a.flags.String())
	json.Name("WindowSize").Int(len(a.window))
}
