package bootinfo

import (
	"unsafe"

	"github.com/nearsyh/near-os/kernel"
)

var errNoMemoryMapTag = &kernel.Error{Module: "bootinfo", Message: "multiboot info does not contain a memory map"}

type tagType uint32

const (
	tagMbSectionEnd tagType = iota
	tagBootCmdLine
	tagBootLoaderName
	tagModules
	tagBasicMemoryInfo
	tagBiosBootDevice
	tagMemoryMap
)

// Multiboot2 memory entry types.
const (
	mbMemAvailable       = 1
	mbMemReserved        = 2
	mbMemAcpiReclaimable = 3
	mbMemNvs             = 4
	mbMemBad             = 5
)

// info describes the multiboot info section header.
type info struct {
	// Total size of multiboot info section.
	totalSize uint32

	// Always set to zero; reserved for future use
	reserved uint32
}

// tagHeader is placed at the beginning of each multiboot tag.
type tagHeader struct {
	tagType tagType

	// The size of the tag including the header but *not* including any
	// padding. Tags are aligned at 8-byte boundaries.
	size uint32
}

// mmapHeader precedes the memory map entries.
type mmapHeader struct {
	entrySize    uint32
	entryVersion uint32
}

// mmapEntry is the raw layout of a multiboot2 memory map entry.
type mmapEntry struct {
	physAddress uint64
	length      uint64
	entryType   uint32
	reserved    uint32
}

// ParseMultiboot decodes the memory map tag of the multiboot2 information
// block at infoPtr and appends its regions to m. Unknown entry types are
// classified as reserved.
func ParseMultiboot(infoPtr uintptr, m *MemoryMap) *kernel.Error {
	curPtr, size := findTag(infoPtr, tagMemoryMap)
	if size == 0 {
		return errNoMemoryMapTag
	}

	hdr := (*mmapHeader)(unsafe.Pointer(curPtr))
	endPtr := curPtr + uintptr(size)

	for curPtr += unsafe.Sizeof(mmapHeader{}); curPtr+uintptr(hdr.entrySize) <= endPtr; curPtr += uintptr(hdr.entrySize) {
		entry := (*mmapEntry)(unsafe.Pointer(curPtr))

		if err := m.Add(MemoryRegion{
			Start: entry.physAddress,
			End:   entry.physAddress + entry.length,
			Type:  regionTypeFor(entry.entryType),
		}); err != nil {
			return err
		}
	}

	return nil
}

func regionTypeFor(mbType uint32) RegionType {
	switch mbType {
	case mbMemAvailable:
		return RegionUsable
	case mbMemAcpiReclaimable:
		return RegionAcpiReclaimable
	case mbMemNvs:
		return RegionAcpiNvs
	case mbMemBad:
		return RegionBadMemory
	default:
		return RegionReserved
	}
}

// findTag scans the multiboot info block for the first tag of the given
// type. It returns a pointer to the tag contents (just after its header) and
// the content size, or (0, 0) if the tag is not present. Scanning stops at a
// tag whose size cannot hold its own header.
func findTag(infoPtr uintptr, wanted tagType) (uintptr, uint32) {
	var (
		mbInfo = (*info)(unsafe.Pointer(infoPtr))
		curPtr = infoPtr + unsafe.Sizeof(info{})
		endPtr = infoPtr + uintptr(mbInfo.totalSize)
		hdr    *tagHeader
	)

	for curPtr < endPtr {
		hdr = (*tagHeader)(unsafe.Pointer(curPtr))
		if hdr.tagType == tagMbSectionEnd || hdr.size < uint32(unsafe.Sizeof(tagHeader{})) {
			break
		}

		if hdr.tagType == wanted {
			return curPtr + unsafe.Sizeof(tagHeader{}), hdr.size - uint32(unsafe.Sizeof(tagHeader{}))
		}

		// Tags are aligned at 8-byte boundaries
		curPtr += uintptr((hdr.size + 7) & ^uint32(7))
	}

	return 0, 0
}
