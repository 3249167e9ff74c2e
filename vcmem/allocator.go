// Package vcmem manages the lifecycle of GPU memory allocated through the
// VideoCore firmware mailbox: allocate, lock, map into the process, and the
// reverse teardown path. The central type is Allocator, an explicit context
// object owned by the caller; there is no package-level state.
package vcmem

import (
	"sync"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"

	"github.com/Foadsf/HPC-GPGPU/mbox"
	"github.com/Foadsf/HPC-GPGPU/memutils"
)

var (
	// ErrAllocationFailed is returned when the firmware declines an
	// allocation (zero handle) or the allocate transaction fails.
	ErrAllocationFailed error = errors.New("firmware memory allocation failed")
	// ErrLockFailed is returned when a handle cannot be locked to a bus
	// address (zero address, error response, or a failed transaction).
	ErrLockFailed error = errors.New("firmware memory lock failed")
	// ErrMappingFailed is returned when a locked allocation cannot be mapped
	// into the process.
	ErrMappingFailed error = errors.New("physical memory mapping failed")
)

const (
	// DefaultPageSize is the platform page size; physical mappings must be
	// aligned to it.
	DefaultPageSize = 4096
	// DefaultDevMemPath is the raw physical memory device.
	DefaultDevMemPath = "/dev/mem"
)

// CreateOptions contains optional settings when creating an Allocator. It is
// valid to leave all fields blank.
type CreateOptions struct {
	// PageSize overrides the mapping page size. Must be a power of two.
	// Defaults to DefaultPageSize.
	PageSize int

	// DevMemPath overrides the raw physical-memory device path. Defaults to
	// DefaultDevMemPath. Tests point this at a regular file.
	DevMemPath string

	// AllowAliasedMappings permits mapping physical windows that overlap a
	// live mapping. The kernel allows this silently, but concurrent cached
	// and uncached views of the same page corrupt each other, so overlap is
	// refused unless the caller opts in.
	AllowAliasedMappings bool

	// MemoryCallbackOptions is an optional set of callbacks executed when
	// firmware memory is allocated or released through this Allocator.
	MemoryCallbackOptions *MemoryCallbackOptions
}

// Allocator sequences the GPU memory lifecycle over one mailbox channel.
//
// The channel is borrowed and must outlive the Allocator and every
// Allocation made from it. Apart from the live-mapping registry, an
// Allocator is not synchronized internally: callers running lifecycle
// operations from multiple goroutines must serialize them, same as the
// underlying property channel requires.
type Allocator struct {
	logger     *slog.Logger
	channel    mbox.Channel
	pageSize   int
	devMemPath string

	allowAliased bool
	callbacks    *memoryCallbacks

	// registryMutex guards mappings, allocations and stats; Release may run
	// from deferred paths while a new allocation is in flight.
	registryMutex sync.Mutex
	mappings      *swiss.Map[PhysicalAddress, int]
	allocations   allocationList
	stats         memutils.Statistics
}

// New creates an Allocator over an open mailbox channel.
//
// logger - optional; defaults to slog.Default()
//
// channel - the firmware channel all transactions go through; required
//
// options - optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, channel mbox.Channel, options CreateOptions) (*Allocator, error) {
	if channel == nil {
		return nil, cerrors.New("vcmem.New: a mailbox channel is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	pageSize := options.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if err := memutils.CheckPow2(uint(pageSize), "options.PageSize"); err != nil {
		return nil, err
	}

	devMemPath := options.DevMemPath
	if devMemPath == "" {
		devMemPath = DefaultDevMemPath
	}

	allocator := &Allocator{
		logger:       logger,
		channel:      channel,
		pageSize:     pageSize,
		devMemPath:   devMemPath,
		allowAliased: options.AllowAliasedMappings,
		mappings:     swiss.NewMap[PhysicalAddress, int](8),
	}
	allocator.callbacks = &memoryCallbacks{
		Callbacks: options.MemoryCallbackOptions,
		Allocator: allocator,
	}
	return allocator, nil
}

// Allocate requests a block from the firmware's memory pool. The size is
// rounded up to alignment, which must be a nonzero power of two. The returned
// handle must be locked before the memory is usable, and must eventually be
// released with Free.
func (a *Allocator) Allocate(size, alignment uint32, flags AllocateFlags) (MemoryHandle, error) {
	if size == 0 {
		return 0, cerrors.Wrap(ErrAllocationFailed, "requested size is zero")
	}
	if alignment == 0 {
		return 0, cerrors.Wrap(ErrAllocationFailed, "alignment must be nonzero")
	}
	if err := memutils.CheckPow2(uint(alignment), "alignment"); err != nil {
		return 0, err
	}
	size = memutils.AlignUp32(size, alignment)

	msg := mbox.NewMessage(mbox.Tag{
		ID:               mbox.TagAllocateMemory,
		Request:          []uint32{size, alignment, uint32(flags)},
		ResponseCapacity: 12,
	})
	if err := a.channel.Property(msg); err != nil {
		return 0, cerrors.Mark(cerrors.Wrapf(err, "allocating %d bytes", size), ErrAllocationFailed)
	}

	handle := MemoryHandle(msg.ValueUint32(0))
	if handle == 0 {
		return 0, cerrors.Wrapf(ErrAllocationFailed, "firmware returned a zero handle for %d bytes (flags %s)", size, flags)
	}

	a.logger.Debug("Allocator::Allocate",
		slog.Int("Size", int(size)),
		slog.String("Flags", flags.String()),
		slog.Uint64("Handle", uint64(handle)))
	return handle, nil
}

// Lock pins an allocated handle and returns the bus address the GPU sees it
// under. A failed lock never yields a nonzero address.
func (a *Allocator) Lock(handle MemoryHandle) (BusAddress, error) {
	msg := mbox.NewMessage(mbox.Tag{
		ID:               mbox.TagLockMemory,
		Request:          []uint32{uint32(handle)},
		ResponseCapacity: 4,
	})
	if err := a.channel.Property(msg); err != nil {
		return 0, cerrors.Mark(cerrors.Wrapf(err, "locking handle %d", handle), ErrLockFailed)
	}

	busAddr := BusAddress(msg.ValueUint32(0))
	if busAddr == 0 {
		return 0, cerrors.Wrapf(ErrLockFailed, "firmware returned a zero bus address for handle %d", handle)
	}

	a.logger.Debug("Allocator::Lock",
		slog.Uint64("Handle", uint64(handle)),
		slog.Uint64("BusAddress", uint64(busAddr)),
		slog.String("Alias", busAddr.Alias().String()))
	return busAddr, nil
}

// Unlock releases the bus address of a locked handle. Any nonzero status
// word from the firmware is a failure; the status space is not fully
// disambiguated, so no sentinel value is special-cased.
func (a *Allocator) Unlock(handle MemoryHandle) error {
	return a.statusTransaction(mbox.TagUnlockMemory, handle)
}

// Free releases an allocation back to the firmware. The handle must be
// unlocked first.
func (a *Allocator) Free(handle MemoryHandle) error {
	return a.statusTransaction(mbox.TagReleaseMemory, handle)
}

func (a *Allocator) statusTransaction(tag mbox.TagID, handle MemoryHandle) error {
	msg := mbox.NewMessage(mbox.Tag{
		ID:               tag,
		Request:          []uint32{uint32(handle)},
		ResponseCapacity: 4,
	})
	if err := a.channel.Property(msg); err != nil {
		return cerrors.Wrapf(err, "%s for handle %d", tag, handle)
	}
	if status := msg.ValueUint32(0); status != 0 {
		return cerrors.Newf("%s for handle %d: firmware status 0x%08X", tag, handle, status)
	}
	return nil
}

// AllocateAndMap runs the full forward lifecycle: allocate, lock, and map
// the memory into the process. On any step's failure the completed prior
// steps are unwound in reverse order and the first error is returned; a
// partially constructed allocation is never handed back.
func (a *Allocator) AllocateAndMap(size, alignment uint32, flags AllocateFlags) (alloc *Allocation, err error) {
	handle, err := a.Allocate(size, alignment, flags)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if freeErr := a.Free(handle); freeErr != nil {
				a.logger.Error("failed to free handle while unwinding an aborted allocation",
					slog.Uint64("Handle", uint64(handle)), slog.Any("error", freeErr))
			}
		}
	}()

	busAddr, err := a.Lock(handle)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if unlockErr := a.Unlock(handle); unlockErr != nil {
				a.logger.Error("failed to unlock handle while unwinding an aborted allocation",
					slog.Uint64("Handle", uint64(handle)), slog.Any("error", unlockErr))
			}
		}
	}()

	roundedSize := int(memutils.AlignUp32(size, alignment))
	window, data, pageBase, err := a.mapPhysical(busAddr.Physical(), roundedSize, flags.WantsUncachedMapping())
	if err != nil {
		return nil, err
	}

	alloc = &Allocation{
		allocator: a,
		handle:    handle,
		busAddr:   busAddr,
		size:      roundedSize,
		flags:     flags,
		pageBase:  pageBase,
		window:    window,
		data:      data,
	}

	a.registryMutex.Lock()
	a.allocations.Register(alloc)
	a.stats.AddAllocation(roundedSize)
	a.registryMutex.Unlock()

	a.callbacks.Allocate(handle, roundedSize)
	return alloc, nil
}

// Statistics returns a snapshot of the live allocation and mapping counters.
func (a *Allocator) Statistics() memutils.Statistics {
	a.registryMutex.Lock()
	defer a.registryMutex.Unlock()
	return a.stats
}

func (a *Allocator) unregisterAllocation(alloc *Allocation) {
	a.registryMutex.Lock()
	a.allocations.Unregister(alloc)
	a.stats.RemoveAllocation(alloc.size)
	a.registryMutex.Unlock()

	a.callbacks.Free(alloc.handle, alloc.size)
}
