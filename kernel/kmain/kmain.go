// Package kmain sequences the bring-up of the kernel memory subsystem.
package kmain

import (
	"github.com/nearsyh/near-os/kernel"
	"github.com/nearsyh/near-os/kernel/bootinfo"
	"github.com/nearsyh/near-os/kernel/cpu"
	"github.com/nearsyh/near-os/kernel/heap"
	"github.com/nearsyh/near-os/kernel/kfmt"
	"github.com/nearsyh/near-os/kernel/mm"
	"github.com/nearsyh/near-os/kernel/mm/pmm"
	"github.com/nearsyh/near-os/kernel/mm/vmm"
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	panicFn = kfmt.Panic
	haltFn  = cpu.Halt

	errMissingBootInfo = &kernel.Error{Module: "kmain", Message: "no boot information supplied"}

	frameAllocator pmm.BootMemAllocator
	services       Services
)

// Services holds the memory management capabilities produced by Boot.
type Services struct {
	// Mapper manipulates the active page table.
	Mapper *vmm.Mapper

	// Frames hands out physical frames.
	Frames *pmm.BootMemAllocator

	// Heap serves dynamic allocations.
	Heap *heap.LockedHeap
}

// Boot initializes the frame allocator from the boot memory map, takes
// ownership of the active page table and maps the kernel heap. Boot must be
// called exactly once.
func Boot(info *bootinfo.Info) (*Services, *kernel.Error) {
	if info == nil {
		return nil, errMissingBootInfo
	}

	frameAllocator.Init(&info.MemoryMap)
	frameAllocator.PrintMemoryMap()

	kfmt.Printf("[kmain] physical memory offset: 0x%16x\n", info.PhysicalMemoryOffset)
	mapper, err := vmm.Init(uintptr(info.PhysicalMemoryOffset))
	if err != nil {
		return nil, err
	}

	lockedHeap, err := heap.Init(mapper, &frameAllocator)
	if err != nil {
		return nil, err
	}

	services = Services{
		Mapper: mapper,
		Frames: &frameAllocator,
		Heap:   lockedHeap,
	}

	kfmt.Printf("[kmain] boot complete; %d frames (%dKb) in use\n", frameAllocator.AllocatedFrames(), frameAllocator.AllocatedFrames()*uint64(mm.PageSize)/uint64(mm.Kb))
	return &services, nil
}

// Kmain is the kernel's Go entrypoint. It is invoked by the rt0 code with the
// boot information collected by the boot loader.
//
// Kmain is not expected to return. Boot failures and runtime panics are
// reported through kfmt.Panic which halts the CPU; otherwise the CPU is
// halted once the memory subsystem is up.
//
//go:noinline
func Kmain(info *bootinfo.Info) {
	defer func() {
		if r := recover(); r != nil {
			panicFn(r)
		}
	}()

	// The memory subsystem must be brought up before any interrupt
	// handler can run.
	cpu.DisableInterrupts()

	if _, err := Boot(info); err != nil {
		panic(err)
	}

	haltFn()
}
