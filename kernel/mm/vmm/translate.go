package vmm

import (
	"github.com/nearsyh/near-os/kernel"
	"github.com/nearsyh/near-os/kernel/mm"
)

// Translate returns the physical address that corresponds to the supplied
// virtual address by walking the page table that is currently loaded in the
// CPU. It returns ErrInvalidMapping if the virtual address is not mapped.
//
// Huge pages are not supported; Translate panics with ErrUnsupportedHugePage
// if the walk reaches one.
func Translate(virtAddr, physOffset uintptr) (uintptr, *kernel.Error) {
	rootFrame := mm.FrameFromAddress(activePDTFn() & ptePhysPageMask)
	return translate(rootFrame.Address()+physOffset, physOffset, virtAddr, true)
}

func translate(tableAddr, physOffset, virtAddr uintptr, panicOnHugePage bool) (uintptr, *kernel.Error) {
	var (
		err   *kernel.Error
		frame mm.Frame
	)

	walk(tableAddr, physOffset, virtAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			err = ErrInvalidMapping
			return false
		}

		if pteLevel != pageLevels-1 && pte.HasFlags(FlagHugePage) {
			if panicOnHugePage {
				panic(ErrUnsupportedHugePage)
			}
			err = ErrUnsupportedHugePage
			return false
		}

		frame = pte.Frame()
		return true
	})

	if err != nil {
		return 0, err
	}

	// Calculate the physical address by taking the physical frame address and
	// appending the offset from the virtual address
	return frame.Address() + PageOffset(virtAddr), nil
}
