// Package simram provides simulated physical memory for running the kernel's
// memory management code as an ordinary Linux process.
//
// The simulated RAM is a memfd mapped into the process. Physical address p is
// found at host address Offset()+p, which makes Offset() usable as the kernel's
// physical memory offset. Individual frames can additionally be mirrored at
// arbitrary page-aligned host addresses inside reserved windows, emulating
// what the MMU does for a mapped virtual page.
package simram

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const pageSize = 4096

var errNotMirrorable = errors.New("address is not inside a reserved window")

type window struct {
	start, end uintptr
}

// RAM is a block of simulated physical memory.
type RAM struct {
	fd      int
	mem     []byte
	windows []window
}

// New allocates size bytes of zeroed simulated RAM. The size is rounded up to
// a multiple of the page size.
func New(size uintptr) (*RAM, error) {
	if hostPageSize := unix.Getpagesize(); hostPageSize != pageSize {
		return nil, errors.Errorf("unsupported host page size %d", hostPageSize)
	}

	size = (size + pageSize - 1) &^ (pageSize - 1)
	if size == 0 {
		return nil, errors.New("simulated RAM size must be greater than zero")
	}

	fd, err := unix.MemfdCreate("simram", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "creating memfd")
	}

	if err = unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrapf(err, "resizing memfd to %d bytes", size)
	}

	mem, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "mapping simulated RAM")
	}

	return &RAM{fd: fd, mem: mem}, nil
}

// Offset returns the host address where physical address 0 is mapped.
func (r *RAM) Offset() uintptr {
	return uintptr(unsafe.Pointer(&r.mem[0]))
}

// Size returns the amount of simulated RAM in bytes.
func (r *RAM) Size() uintptr {
	return uintptr(len(r.mem))
}

// Bytes returns the contents of the simulated RAM indexed by physical address.
func (r *RAM) Bytes() []byte {
	return r.mem
}

// ReserveWindow reserves the host address range [virt, virt+size) so that
// frames can later be mirrored into it. The range is inaccessible until a
// frame is mirrored at one of its pages. ReserveWindow fails if any part of
// the range is already in use by the process.
func (r *RAM) ReserveWindow(virt, size uintptr) error {
	if virt&(pageSize-1) != 0 {
		return errors.Errorf("window address 0x%x is not page-aligned", virt)
	}
	size = (size + pageSize - 1) &^ (pageSize - 1)

	addr, err := mmapFixed(virt, size, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_NORESERVE|unix.MAP_FIXED_NOREPLACE, -1, 0)
	if err != nil {
		return errors.Wrapf(err, "reserving window [0x%x - 0x%x)", virt, virt+size)
	}

	// kernels without MAP_FIXED_NOREPLACE treat the address as a hint
	if addr != virt {
		_ = munmap(addr, size)
		return errors.Errorf("window [0x%x - 0x%x) overlaps an existing mapping", virt, virt+size)
	}

	r.windows = append(r.windows, window{start: virt, end: virt + size})
	return nil
}

// Mirror makes the frame at physical address phys accessible at the host
// page containing virt. virt must belong to a reserved window.
func (r *RAM) Mirror(virt, phys uintptr) error {
	virt &^= pageSize - 1
	phys &^= pageSize - 1

	if !r.InWindow(virt) {
		return errors.Wrapf(errNotMirrorable, "mirroring 0x%x", virt)
	}

	if phys+pageSize > r.Size() {
		return errors.Errorf("physical address 0x%x is outside the simulated RAM", phys)
	}

	if _, err := mmapFixed(virt, pageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_FIXED, r.fd, phys); err != nil {
		return errors.Wrapf(err, "mirroring physical address 0x%x at 0x%x", phys, virt)
	}

	return nil
}

// Unmirror makes the host page containing virt inaccessible again.
func (r *RAM) Unmirror(virt uintptr) error {
	virt &^= pageSize - 1

	if !r.InWindow(virt) {
		return errors.Wrapf(errNotMirrorable, "unmirroring 0x%x", virt)
	}

	if _, err := mmapFixed(virt, pageSize, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_NORESERVE|unix.MAP_FIXED, -1, 0); err != nil {
		return errors.Wrapf(err, "unmirroring 0x%x", virt)
	}

	return nil
}

// Close releases the simulated RAM and every reserved window.
func (r *RAM) Close() error {
	for _, w := range r.windows {
		if err := munmap(w.start, w.end-w.start); err != nil {
			return errors.Wrapf(err, "releasing window [0x%x - 0x%x)", w.start, w.end)
		}
	}
	r.windows = nil

	if r.mem != nil {
		if err := unix.Munmap(r.mem); err != nil {
			return errors.Wrap(err, "unmapping simulated RAM")
		}
		r.mem = nil
	}

	return errors.Wrap(unix.Close(r.fd), "closing memfd")
}

// InWindow reports whether the host page containing virt belongs to a
// reserved window.
func (r *RAM) InWindow(virt uintptr) bool {
	virt &^= pageSize - 1
	for _, w := range r.windows {
		if virt >= w.start && virt+pageSize <= w.end {
			return true
		}
	}
	return false
}

// mmapFixed issues a raw mmap call; unix.Mmap does not accept an address.
func mmapFixed(addr, length uintptr, prot, flags, fd int, offset uintptr) (uintptr, error) {
	r, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, length, uintptr(prot), uintptr(flags), uintptr(fd), offset)
	if errno != 0 {
		return 0, errno
	}
	return r, nil
}

func munmap(addr, length uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_MUNMAP, addr, length, 0); errno != 0 {
		return errno
	}
	return nil
}
