package vcmem

import (
	"github.com/Foadsf/HPC-GPGPU/mbox"
)

// fakeFirmware stands in for the VideoCore at the property-channel boundary.
// It parses the same wire buffers the real firmware would, assigns handles
// and page-aligned physical windows inside a backing file, and mutates the
// buffer in place exactly like the real transaction does.
type fakeFirmware struct {
	nextHandle uint32
	nextPhys   uint32

	// reusePhys hands out the same physical window for every lock, which is
	// how overlapping-mapping behavior is provoked.
	reusePhys bool

	// failure injection
	transactErr      error
	lockReturnsZero  bool
	lockResponseErr  bool
	unlockStatusFail bool
	freeStatusFail   bool

	allocations map[uint32]*fakeAllocation
	freed       []uint32
	ops         []mbox.TagID
}

type fakeAllocation struct {
	size   uint32
	flags  uint32
	phys   uint32
	locked bool
}

func newFakeFirmware() *fakeFirmware {
	return &fakeFirmware{
		// Start past page zero so a bus address of zero always means failure
		nextPhys:    0x1000,
		allocations: make(map[uint32]*fakeAllocation),
	}
}

var _ mbox.Channel = (*fakeFirmware)(nil)

func (f *fakeFirmware) Property(msg *mbox.Message) error {
	if f.transactErr != nil {
		return f.transactErr
	}

	words := msg.Words()
	tag := mbox.TagID(words[2])
	f.ops = append(f.ops, tag)

	words[1] = mbox.ResponseSuccess
	const responseBit = 0x80000000

	switch tag {
	case mbox.TagAllocateMemory:
		size, flags := words[5], words[7]
		f.nextHandle++
		handle := f.nextHandle

		phys := f.nextPhys
		if !f.reusePhys {
			f.nextPhys += (size + 0xFFF) &^ 0xFFF
		}
		f.allocations[handle] = &fakeAllocation{size: size, flags: flags, phys: phys}

		words[4] = responseBit | 4
		words[5] = handle

	case mbox.TagLockMemory:
		handle := words[5]
		words[4] = responseBit | 4
		if f.lockResponseErr {
			words[1] = mbox.ResponseError
			break
		}
		if f.lockReturnsZero {
			words[5] = 0
			break
		}
		alloc := f.allocations[handle]
		alloc.locked = true
		alias := (alloc.flags >> 2) & 0x3
		words[5] = alloc.phys | alias<<30

	case mbox.TagUnlockMemory:
		handle := words[5]
		words[4] = responseBit | 4
		words[5] = 0
		if f.unlockStatusFail {
			words[5] = 1
			break
		}
		if alloc, ok := f.allocations[handle]; ok {
			alloc.locked = false
		}

	case mbox.TagReleaseMemory:
		handle := words[5]
		words[4] = responseBit | 4
		words[5] = 0
		if f.freeStatusFail {
			words[5] = 1
			break
		}
		delete(f.allocations, handle)
		f.freed = append(f.freed, handle)

	case mbox.TagGetFirmwareRevision:
		words[4] = responseBit | 4
		words[5] = 0x5F1A5EED

	case mbox.TagGetARMMemory:
		words[4] = responseBit | 8
		words[5] = 0x00000000
		words[6] = 0x3B400000 // 948 MB

	case mbox.TagGetVCMemory:
		words[4] = responseBit | 8
		words[5] = 0x3B400000
		words[6] = 0x04C00000 // 76 MB

	default:
		words[1] = mbox.ResponseError
	}

	return msg.ParseResponse()
}

func (f *fakeFirmware) liveAllocations() int {
	return len(f.allocations)
}

func (f *fakeFirmware) wasFreed(handle MemoryHandle) bool {
	for _, h := range f.freed {
		if h == uint32(handle) {
			return true
		}
	}
	return false
}
