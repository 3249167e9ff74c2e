// Package mbox implements the property mailbox protocol used to communicate
// with the VideoCore firmware on a Raspberry Pi through the /dev/vcio
// character device.
//
// https://github.com/raspberrypi/firmware/wiki/Mailbox-property-interface
package mbox

import (
	"os"
	"runtime"
	"sync"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DefaultDevicePath is the mailbox character device exposed by the
// bcm2708_vcio kernel driver.
const DefaultDevicePath = "/dev/vcio"

var (
	// ErrChannelUnavailable is returned when the mailbox device cannot be
	// opened or has been closed. The most common cause is missing privilege.
	ErrChannelUnavailable error = errors.New("mailbox device unavailable")
	// ErrTransactionFailed is returned when the property ioctl itself fails.
	// Firmware-level failures are not transient, so transactions are never
	// retried.
	ErrTransactionFailed error = errors.New("mailbox transaction failed")
	// ErrBadResponse is returned when the firmware answers with an error
	// response code or a malformed response.
	ErrBadResponse error = errors.New("firmware returned an error response")
)

const permissionHint = "run as root or add your user to the video group"

// ioctlProperty is _IOWR(100, 0, char *): the single ioctl understood by the
// vcio driver. The size field depends on the platform pointer width.
var ioctlProperty = func() uintptr {
	const (
		iocMajor = 100
		iocNR    = 0
		iocDirRW = 3 // _IOC_READ|_IOC_WRITE
	)
	size := uintptr(unsafe.Sizeof(uintptr(0)))
	return uintptr(iocDirRW)<<30 | size<<16 | iocMajor<<8 | iocNR
}()

// Channel is one open firmware communication path. It is satisfied by
// *Mailbox and by test fakes standing in for the firmware.
type Channel interface {
	// Property performs one blocking request/response exchange, mutating the
	// message buffer in place and validating the response code.
	Property(msg *Message) error
}

// Mailbox is an open property channel to the VideoCore firmware. A Mailbox
// serializes its own transactions, but an individual Message must still not
// be shared between goroutines.
type Mailbox struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

var _ Channel = (*Mailbox)(nil)

// Open acquires the default mailbox device.
func Open() (*Mailbox, error) {
	return OpenPath(DefaultDevicePath)
}

// OpenPath acquires the mailbox device at path. Failures wrap
// ErrChannelUnavailable; permission failures carry a hint about the required
// privilege, since that is the usual failure mode on this hardware.
func OpenPath(path string) (*Mailbox, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsPermission(err) {
			return nil, cerrors.Wrapf(ErrChannelUnavailable, "open %s: %s (%s)", path, err, permissionHint)
		}
		return nil, cerrors.Wrapf(ErrChannelUnavailable, "open %s: %s", path, err)
	}
	return &Mailbox{f: f, path: path}, nil
}

// Property sends msg to the firmware and blocks until it responds. There is
// no timeout anywhere in this protocol: a non-responding firmware manifests
// as an indefinite block, not an error.
func (m *Mailbox) Property(msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.f == nil {
		return cerrors.Wrap(ErrChannelUnavailable, "mailbox is closed")
	}

	words := msg.Words()
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, m.f.Fd(), ioctlProperty, uintptr(unsafe.Pointer(&words[0])))
	runtime.KeepAlive(words)
	if errno != 0 {
		return cerrors.Wrapf(ErrTransactionFailed, "property ioctl on %s: %s", m.path, errno)
	}

	return msg.ParseResponse()
}

// Close releases the device. It is safe to call on a nil, never-opened, or
// already-closed mailbox.
func (m *Mailbox) Close() error {
	if m == nil || m.f == nil {
		return nil
	}
	err := m.f.Close()
	m.f = nil
	return err
}

// FirmwareRevision queries the VideoCore firmware revision.
func (m *Mailbox) FirmwareRevision() (uint32, error) {
	msg := NewMessage(Tag{ID: TagGetFirmwareRevision, ResponseCapacity: 4})
	if err := m.Property(msg); err != nil {
		return 0, err
	}
	return msg.ValueUint32(0), nil
}

// ARMMemory queries the base and size of the memory region assigned to the
// ARM processor.
func (m *Mailbox) ARMMemory() (base, size uint32, err error) {
	msg := NewMessage(Tag{ID: TagGetARMMemory, ResponseCapacity: 8})
	if err := m.Property(msg); err != nil {
		return 0, 0, err
	}
	base, size = msg.ValueRange(0)
	return base, size, nil
}

// VCMemory queries the base and size of the memory region owned by the
// VideoCore GPU.
func (m *Mailbox) VCMemory() (base, size uint32, err error) {
	msg := NewMessage(Tag{ID: TagGetVCMemory, ResponseCapacity: 8})
	if err := m.Property(msg); err != nil {
		return 0, 0, err
	}
	base, size = msg.ValueRange(0)
	return base, size, nil
}
