package vmm

import (
	"github.com/nearsyh/near-os/kernel"
	"github.com/nearsyh/near-os/kernel/mm"
)

// Mapper creates and removes page mappings in the active page table. Page
// tables are accessed through the physical memory mapping of the table it was
// built from.
type Mapper struct {
	table *ActiveTable
}

// ActiveTable returns the page table handle used by the mapper.
func (m *Mapper) ActiveTable() *ActiveTable {
	return m.table
}

// PhysToVirt returns the virtual address at which physAddr is accessible.
func (m *Mapper) PhysToVirt(physAddr uintptr) uintptr {
	return physAddr + m.table.physOffset
}

// MapTo establishes a mapping between a virtual page and a physical memory
// frame using the supplied flags. Missing page tables at each paging level are
// allocated from frames, zeroed and installed as present and writable.
//
// MapTo never replaces an existing mapping; ErrAlreadyMapped is returned
// instead. The returned TLBFlush must be flushed before the mapping is used.
func (m *Mapper) MapTo(page mm.Page, frame mm.Frame, flags PageTableEntryFlag, frames mm.FrameAllocator) (TLBFlush, *kernel.Error) {
	var err *kernel.Error

	walk(m.table.tableAddr(), m.table.physOffset, page.Address(), func(pteLevel uint8, pte *pageTableEntry) bool {
		// If we reached the last level all we need to do is to map the
		// frame in place
		if pteLevel == pageLevels-1 {
			if pte.HasFlags(FlagPresent) {
				err = ErrAlreadyMapped
				return false
			}

			*pte = 0
			pte.SetFrame(frame)
			pte.SetFlags(flags)
			return true
		}

		if !pte.HasFlags(FlagPresent) {
			// Next table does not yet exist; we need to allocate a
			// physical frame for it and clear its contents.
			newTableFrame, allocErr := frames.AllocFrame()
			if allocErr != nil {
				err = ErrIntermediateAllocFailed
				return false
			}

			kernel.Memset(m.PhysToVirt(newTableFrame.Address()), 0, mm.PageSize)

			*pte = 0
			pte.SetFrame(newTableFrame)
			pte.SetFlags(FlagPresent | FlagRW)
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			err = ErrUnsupportedHugePage
			return false
		}

		return true
	})

	if err != nil {
		return TLBFlush{}, err
	}

	return TLBFlush{page: page}, nil
}

// Unmap removes the mapping for page and returns the frame that backed it.
// ErrInvalidMapping is returned if the page is not mapped.
func (m *Mapper) Unmap(page mm.Page) (mm.Frame, TLBFlush, *kernel.Error) {
	var (
		err   *kernel.Error
		frame = mm.InvalidFrame
	)

	walk(m.table.tableAddr(), m.table.physOffset, page.Address(), func(pteLevel uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			err = ErrInvalidMapping
			return false
		}

		if pteLevel == pageLevels-1 {
			frame = pte.Frame()
			*pte = 0
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			err = ErrUnsupportedHugePage
			return false
		}

		return true
	})

	if err != nil {
		return mm.InvalidFrame, TLBFlush{}, err
	}

	return frame, TLBFlush{page: page}, nil
}

// Translate returns the physical address that corresponds to the supplied
// virtual address or ErrInvalidMapping if the virtual address does not
// correspond to a mapped physical address. Unlike the package-level
// Translate, huge pages are reported as ErrUnsupportedHugePage.
func (m *Mapper) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	return translate(m.table.tableAddr(), m.table.physOffset, virtAddr, false)
}
