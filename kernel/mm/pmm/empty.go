package pmm

import (
	"github.com/nearsyh/near-os/kernel"
	"github.com/nearsyh/near-os/kernel/mm"
)

// EmptyFrameAllocator is a frame allocator that has no frames to give out.
type EmptyFrameAllocator struct{}

// AllocFrame always returns ErrFrameExhausted.
func (EmptyFrameAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	return mm.InvalidFrame, ErrFrameExhausted
}
