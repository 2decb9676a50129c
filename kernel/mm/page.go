// Package mm defines the physical frame and virtual page primitives shared by
// the physical and virtual memory managers.
package mm

import (
	"math"

	"github.com/nearsyh/near-os/kernel"
)

// Frame describes a physical memory page index.
type Frame uintptr

const (
	// InvalidFrame is returned by frame allocators when they fail to
	// reserve the requested frame.
	InvalidFrame = Frame(math.MaxUint64)
)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical memory address pointed to by this Frame.
func (f Frame) Address() uintptr {
	return uintptr(f << PageShift)
}

// FrameFromAddress returns the Frame that contains the given physical
// address. Addresses that are not page-aligned are rounded down.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame((physAddr & ^(PageSize - 1)) >> PageShift)
}

// FrameAllocator is implemented by physical frame allocators. AllocFrame
// returns a frame that has never been handed out before or an error if no
// frames are left.
type FrameAllocator interface {
	AllocFrame() (Frame, *kernel.Error)
}

// Page describes a virtual memory page index.
type Page uintptr

// Address returns the virtual memory address pointed to by this Page.
func (p Page) Address() uintptr {
	return uintptr(p << PageShift)
}

// PageFromAddress returns the Page that contains the given virtual address.
// Addresses that are not page-aligned are rounded down.
func PageFromAddress(virtAddr uintptr) Page {
	return Page((virtAddr & ^(PageSize - 1)) >> PageShift)
}

// PageRange returns the first and last (inclusive) pages that cover the
// size bytes starting at virtAddr. size must be greater than zero.
func PageRange(virtAddr uintptr, size Size) (Page, Page) {
	return PageFromAddress(virtAddr), PageFromAddress(virtAddr + uintptr(size) - 1)
}
