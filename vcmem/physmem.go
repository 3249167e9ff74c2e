package vcmem

import (
	"os"

	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
	"golang.org/x/sys/unix"

	"github.com/Foadsf/HPC-GPGPU/memutils"
)

// mapPhysical maps size bytes of physical memory at phys into the process
// through the raw-memory device. The mapping window is widened to page
// boundaries as mmap requires; data is the view adjusted back to the
// requested, possibly sub-page-aligned, address. The device descriptor is
// closed right after the map call: it is not needed once the mapping exists.
func (a *Allocator) mapPhysical(phys PhysicalAddress, size int, uncached bool) (window, data []byte, pageBase PhysicalAddress, err error) {
	pageBase = PhysicalAddress(memutils.AlignDown(int(phys), uint(a.pageSize)))
	pageOffset := int(phys - pageBase)
	windowSize := memutils.AlignUp(size+pageOffset, uint(a.pageSize))

	a.registryMutex.Lock()
	defer a.registryMutex.Unlock()

	if !a.allowAliased && a.overlapsLiveMapping(pageBase, windowSize) {
		return nil, nil, 0, cerrors.Wrapf(ErrMappingFailed,
			"physical window 0x%08X-0x%08X overlaps a live mapping; aliased cached/uncached views of a page corrupt each other (set CreateOptions.AllowAliasedMappings to permit this)",
			uint32(pageBase), uint32(int(pageBase)+windowSize))
	}

	openFlags := os.O_RDWR
	if uncached {
		// O_SYNC on the memory device selects an uncached mapping
		openFlags |= unix.O_SYNC
	}
	f, err := os.OpenFile(a.devMemPath, openFlags, 0)
	if err != nil {
		if os.IsPermission(err) {
			return nil, nil, 0, cerrors.Wrapf(ErrMappingFailed,
				"open %s: %s (requires CAP_SYS_RAWIO; run as root)", a.devMemPath, err)
		}
		return nil, nil, 0, cerrors.Wrapf(ErrMappingFailed, "open %s: %s", a.devMemPath, err)
	}

	window, mmapErr := unix.Mmap(int(f.Fd()), int64(pageBase), windowSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	closeErr := f.Close()
	if mmapErr != nil {
		return nil, nil, 0, cerrors.Wrapf(ErrMappingFailed,
			"mmap 0x%08X (%d bytes) from %s: %s", uint32(pageBase), windowSize, a.devMemPath, mmapErr)
	}
	if closeErr != nil {
		a.logger.Warn("closing the memory device after mmap failed", slog.Any("error", closeErr))
	}

	a.mappings.Put(pageBase, windowSize)
	a.stats.AddMapping(windowSize)

	a.logger.Debug("Allocator::mapPhysical",
		slog.Uint64("PageBase", uint64(pageBase)),
		slog.Int("WindowSize", windowSize),
		slog.Bool("Uncached", uncached))
	return window, window[pageOffset : pageOffset+size], pageBase, nil
}

// unmapPhysical is the inverse of mapPhysical over the same page-aligned
// window.
func (a *Allocator) unmapPhysical(window []byte, pageBase PhysicalAddress) error {
	a.registryMutex.Lock()
	defer a.registryMutex.Unlock()

	windowSize := len(window)
	err := unix.Munmap(window)

	a.mappings.Delete(pageBase)
	a.stats.RemoveMapping(windowSize)

	if err != nil {
		return cerrors.Wrapf(err, "munmap 0x%08X (%d bytes)", uint32(pageBase), windowSize)
	}
	return nil
}

// overlapsLiveMapping reports whether [pageBase, pageBase+windowSize)
// intersects any live mapping window. Caller holds registryMutex.
func (a *Allocator) overlapsLiveMapping(pageBase PhysicalAddress, windowSize int) bool {
	start := int64(pageBase)
	end := start + int64(windowSize)

	overlap := false
	a.mappings.Iter(func(base PhysicalAddress, size int) bool {
		if int64(base) < end && start < int64(base)+int64(size) {
			overlap = true
			return true
		}
		return false
	})
	return overlap
}
