// Package simboot assembles a simulated machine on top of simram: a boot
// memory map, an empty level 4 page table loaded in the hosted CPU and a TLB
// that keeps reserved host windows in sync with the simulated page tables.
package simboot

import (
	"github.com/pkg/errors"

	"github.com/nearsyh/near-os/internal/simram"
	"github.com/nearsyh/near-os/kernel/bootinfo"
	"github.com/nearsyh/near-os/kernel/cpu"
	"github.com/nearsyh/near-os/kernel/mm"
	"github.com/nearsyh/near-os/kernel/mm/vmm"
)

// RootTableFrame is the frame holding the level 4 page table loaded at boot.
const RootTableFrame = mm.Frame(0)

// Machine is a simulated computer whose physical memory is mapped at
// RAM.Offset(). Pages are only accessible through their virtual address
// after they have been mapped and their TLB entry has been flushed, and only
// inside windows reserved via RAM.ReserveWindow.
type Machine struct {
	RAM  *simram.RAM
	Info bootinfo.Info

	flushed []uintptr
	syncErr error
}

// New creates a machine with ramSize bytes of RAM. If no regions are given,
// every frame except RootTableFrame is reported as usable. The machine
// installs itself as the hosted CPU's page table and TLB; only one machine
// may exist at a time.
func New(ramSize uintptr, regions ...bootinfo.MemoryRegion) (*Machine, error) {
	ram, err := simram.New(ramSize)
	if err != nil {
		return nil, err
	}

	m := &Machine{RAM: ram}
	m.Info.PhysicalMemoryOffset = uint64(ram.Offset())

	if len(regions) == 0 {
		regions = []bootinfo.MemoryRegion{
			{Start: 0, End: uint64(mm.PageSize), Type: bootinfo.RegionReserved},
			{Start: uint64(mm.PageSize), End: uint64(ram.Size()), Type: bootinfo.RegionUsable},
		}
	}

	for _, region := range regions {
		if region.End > uint64(ram.Size()) && region.Usable() {
			_ = ram.Close()
			return nil, errors.Errorf("usable region [0x%x - 0x%x) exceeds the simulated RAM size 0x%x", region.Start, region.End, ram.Size())
		}

		if kErr := m.Info.MemoryMap.Add(region); kErr != nil {
			_ = ram.Close()
			return nil, errors.Wrapf(kErr, "adding region [0x%x - 0x%x)", region.Start, region.End)
		}
	}

	cpu.SwitchPDT(RootTableFrame.Address())
	cpu.SetTLBFlushHook(m.flushTLBEntry)
	return m, nil
}

// flushTLBEntry mirrors the current translation of virtAddr into the host
// address space.
func (m *Machine) flushTLBEntry(virtAddr uintptr) {
	m.flushed = append(m.flushed, virtAddr)

	if !m.RAM.InWindow(virtAddr) {
		return
	}

	var err error
	if physAddr, kErr := vmm.Translate(virtAddr, m.RAM.Offset()); kErr != nil {
		err = m.RAM.Unmirror(virtAddr)
	} else {
		err = m.RAM.Mirror(virtAddr, physAddr)
	}

	if err != nil && m.syncErr == nil {
		m.syncErr = err
	}
}

// Flushed returns the virtual addresses of all TLB flushes so far.
func (m *Machine) Flushed() []uintptr {
	return m.flushed
}

// Err returns the first error encountered while syncing a window with the
// simulated page tables.
func (m *Machine) Err() error {
	return m.syncErr
}

// Close detaches the machine from the hosted CPU and releases its RAM.
func (m *Machine) Close() error {
	cpu.SetTLBFlushHook(nil)
	return m.RAM.Close()
}
