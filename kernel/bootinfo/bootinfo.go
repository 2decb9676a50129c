// Package bootinfo models the information handed to the kernel by the boot
// loader: the physical memory map and the virtual offset at which all of
// physical memory is mapped.
package bootinfo

import "github.com/nearsyh/near-os/kernel"

// MaxRegions is the maximum number of regions a MemoryMap can hold. The map
// uses fixed storage because it is populated before any allocator exists.
const MaxRegions = 64

var (
	errMemoryMapFull = &kernel.Error{Module: "bootinfo", Message: "memory map cannot hold more regions"}
	errInvalidRegion = &kernel.Error{Module: "bootinfo", Message: "memory region ends before it starts"}
)

// RegionType classifies a physical memory region.
type RegionType uint32

const (
	// RegionUsable marks memory that is free for the kernel to use.
	RegionUsable RegionType = iota + 1

	// RegionReserved marks memory that must not be used.
	RegionReserved

	// RegionAcpiReclaimable marks memory holding ACPI tables that can be
	// reused once the tables have been parsed.
	RegionAcpiReclaimable

	// RegionAcpiNvs marks memory that must be preserved across sleep states.
	RegionAcpiNvs

	// RegionBadMemory marks defective RAM.
	RegionBadMemory
)

// String implements fmt.Stringer for RegionType.
func (t RegionType) String() string {
	switch t {
	case RegionUsable:
		return "usable"
	case RegionReserved:
		return "reserved"
	case RegionAcpiReclaimable:
		return "ACPI (reclaimable)"
	case RegionAcpiNvs:
		return "ACPI NVS"
	case RegionBadMemory:
		return "bad memory"
	default:
		return "unknown"
	}
}

// MemoryRegion describes the physical address range [Start, End) and its
// classification.
type MemoryRegion struct {
	Start uint64
	End   uint64
	Type  RegionType
}

// Length returns the size of the region in bytes.
func (r MemoryRegion) Length() uint64 {
	return r.End - r.Start
}

// Usable returns true if the kernel may allocate frames from this region.
func (r MemoryRegion) Usable() bool {
	return r.Type == RegionUsable
}

// RegionVisitor is invoked by MemoryMap.Visit for each region. Returning
// false aborts the scan.
type RegionVisitor func(*MemoryRegion) bool

// MemoryMap is an ordered list of physical memory regions.
type MemoryMap struct {
	entries [MaxRegions]MemoryRegion
	count   int
}

// Add appends a region to the map. Region order is preserved.
func (m *MemoryMap) Add(region MemoryRegion) *kernel.Error {
	if region.End < region.Start {
		return errInvalidRegion
	}

	if m.count == MaxRegions {
		return errMemoryMapFull
	}

	m.entries[m.count] = region
	m.count++
	return nil
}

// Len returns the number of regions in the map.
func (m *MemoryMap) Len() int {
	return m.count
}

// Regions returns the map contents in descriptor order. The returned slice
// aliases the map's storage.
func (m *MemoryMap) Regions() []MemoryRegion {
	return m.entries[:m.count]
}

// Visit invokes visitor for each region in descriptor order.
func (m *MemoryMap) Visit(visitor RegionVisitor) {
	for i := 0; i < m.count; i++ {
		if !visitor(&m.entries[i]) {
			return
		}
	}
}

// Info is the boot information block passed to the kernel entry point.
type Info struct {
	// MemoryMap lists the physical memory regions reported by the boot
	// loader.
	MemoryMap MemoryMap

	// PhysicalMemoryOffset is the virtual address at which the boot loader
	// mapped physical address 0. All of physical memory is accessible at
	// PhysicalMemoryOffset + physAddr.
	PhysicalMemoryOffset uint64
}
