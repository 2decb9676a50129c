package vmm

import (
	"unsafe"

	"github.com/nearsyh/near-os/kernel"
	"github.com/nearsyh/near-os/kernel/mm"
)

var (
	activeTable         ActiveTable
	activeTableAcquired bool
)

// noCopy may be embedded into structs which must not be copied after first
// use. It is detected by the copylocks check of go vet.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// ActiveTable is the only handle to the level 4 page table loaded in the CPU.
// It is obtained once via AcquireActiveTable and must be passed by pointer.
type ActiveTable struct {
	noCopy noCopy

	rootFrame  mm.Frame
	physOffset uintptr
}

// AcquireActiveTable locates the currently loaded level 4 page table and
// returns a handle to it. The handle can only be acquired once; further calls
// return ErrActiveTableAcquired.
func AcquireActiveTable(physOffset uintptr) (*ActiveTable, *kernel.Error) {
	if activeTableAcquired {
		return nil, ErrActiveTableAcquired
	}
	activeTableAcquired = true

	activeTable.rootFrame = mm.FrameFromAddress(activePDTFn() & ptePhysPageMask)
	activeTable.physOffset = physOffset
	return &activeTable, nil
}

// RootFrame returns the physical frame holding the level 4 table.
func (t *ActiveTable) RootFrame() mm.Frame {
	return t.rootFrame
}

// Table returns a pointer to the level 4 table through the physical memory
// mapping.
func (t *ActiveTable) Table() *PageTable {
	return (*PageTable)(unsafe.Pointer(t.tableAddr()))
}

func (t *ActiveTable) tableAddr() uintptr {
	return t.rootFrame.Address() + t.physOffset
}
