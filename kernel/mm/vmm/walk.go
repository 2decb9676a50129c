package vmm

import (
	"unsafe"

	"github.com/nearsyh/near-os/kernel/mm"
)

// pageTableWalker is a function that can be passed to the walk method. The
// function receives the current page level and page table entry as its
// arguments. If the function returns false, then the page walk is aborted.
type pageTableWalker func(pteLevel uint8, pte *pageTableEntry) bool

// walk performs a page table walk for the given virtual address. It calls the
// supplied walkFn with the page table entry that corresponds to each page
// table level. If walkFn returns false then the walk is aborted.
//
// Page tables are not accessed through a recursive mapping. Instead, all of
// physical memory is expected to be mapped at physOffset so the table backing
// frame f lives at virtual address f.Address()+physOffset. The walk starts at
// the level 4 table found at tableAddr. walkFn may install a new table in an
// empty entry; the next level is only resolved after walkFn returns.
func walk(tableAddr, physOffset, virtAddr uintptr, walkFn pageTableWalker) {
	var (
		level                 uint8
		entryAddr, entryIndex uintptr
		pte                   *pageTableEntry
	)

	for level = 0; level < pageLevels; level++ {
		// Extract the bits from virtual address that correspond to the
		// index in this level's page table
		entryIndex = (virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)
		entryAddr = tableAddr + (entryIndex << mm.PointerShift)
		pte = (*pageTableEntry)(unsafe.Pointer(entryAddr))

		if !walkFn(level, pte) {
			return
		}

		tableAddr = pte.Frame().Address() + physOffset
	}
}

// PageOffset returns the offset within the page specified by a virtual
// address.
func PageOffset(virtAddr uintptr) uintptr {
	return (virtAddr & ((1 << pageLevelShifts[pageLevels-1]) - 1))
}
