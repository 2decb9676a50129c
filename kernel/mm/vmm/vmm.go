// Package vmm manipulates the amd64 four-level page tables of the active
// address space.
//
// All physical memory is expected to be mapped at a fixed virtual offset
// supplied by the boot loader. Page tables are reached by adding that offset
// to their physical address.
package vmm

import (
	"github.com/nearsyh/near-os/kernel"
	"github.com/nearsyh/near-os/kernel/cpu"
)

var (
	// activePDTFn is used by tests to override calls to activePDT which
	// will cause a fault if called in user-mode.
	activePDTFn = cpu.ActivePDT

	// flushTLBEntryFn is used by tests to override calls to flushTLBEntry
	// which will cause a fault if called in user-mode.
	flushTLBEntryFn = cpu.FlushTLBEntry

	// ErrInvalidMapping is returned when trying to lookup a virtual memory address that is not yet mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}

	// ErrAlreadyMapped is returned when trying to map a virtual page that is already mapped.
	ErrAlreadyMapped = &kernel.Error{Module: "vmm", Message: "virtual page is already mapped"}

	// ErrUnsupportedHugePage is returned when a page walk runs into a huge page entry.
	ErrUnsupportedHugePage = &kernel.Error{Module: "vmm", Message: "huge pages are not supported"}

	// ErrIntermediateAllocFailed is returned when no frame can be allocated for a missing page table.
	ErrIntermediateAllocFailed = &kernel.Error{Module: "vmm", Message: "unable to allocate frame for intermediate page table"}

	// ErrActiveTableAcquired is returned when the active page table is acquired more than once.
	ErrActiveTableAcquired = &kernel.Error{Module: "vmm", Message: "active page table already acquired"}

	// kernelMapper is the mapper returned by Init.
	kernelMapper Mapper
)

// Init acquires the active page table and returns a Mapper for it. It must be
// called exactly once; physOffset is the virtual address at which the boot
// loader mapped all of physical memory.
func Init(physOffset uintptr) (*Mapper, *kernel.Error) {
	table, err := AcquireActiveTable(physOffset)
	if err != nil {
		return nil, err
	}

	kernelMapper = Mapper{table: table}
	return &kernelMapper, nil
}
