package bootinfo

import (
	"encoding/binary"
	"testing"
	"unsafe"
)

func TestParseMultibootQemuDump(t *testing.T) {
	var m MemoryMap
	if err := ParseMultiboot(uintptr(unsafe.Pointer(&multibootMemoryMap[0])), &m); err != nil {
		t.Fatal(err)
	}

	exp := []MemoryRegion{
		{Start: 0x0, End: 0x9fc00, Type: RegionUsable},
		{Start: 0x9fc00, End: 0xa0000, Type: RegionReserved},
		{Start: 0xf0000, End: 0x100000, Type: RegionReserved},
		{Start: 0x100000, End: 0x7fe0000, Type: RegionUsable},
		{Start: 0x7fe0000, End: 0x8000000, Type: RegionReserved},
		{Start: 0xfffc0000, End: 0x100000000, Type: RegionReserved},
	}

	if m.Len() != len(exp) {
		t.Fatalf("expected %d regions; got %d", len(exp), m.Len())
	}

	for i, region := range m.Regions() {
		if region != exp[i] {
			t.Errorf("[region %d] expected %+v; got %+v", i, exp[i], region)
		}
	}
}

func TestParseMultibootTagScan(t *testing.T) {
	t.Run("memory map after other tags", func(t *testing.T) {
		blob := newMultibootBlob().
			tag(uint32(tagBootCmdLine), []byte("consoleFont=terminus\x00")).
			memoryMap(
				[3]uint64{0x0, 0x1000, 1},
				[3]uint64{0x1000, 0x1000, 7},
				[3]uint64{0x2000, 0x3000, 3},
				[3]uint64{0x5000, 0x1000, 4},
				[3]uint64{0x6000, 0x1000, 5},
			).
			end()

		var m MemoryMap
		if err := ParseMultiboot(uintptr(unsafe.Pointer(&blob[0])), &m); err != nil {
			t.Fatal(err)
		}

		expTypes := []RegionType{RegionUsable, RegionReserved, RegionAcpiReclaimable, RegionAcpiNvs, RegionBadMemory}
		if m.Len() != len(expTypes) {
			t.Fatalf("expected %d regions; got %d", len(expTypes), m.Len())
		}

		for i, region := range m.Regions() {
			if region.Type != expTypes[i] {
				t.Errorf("[region %d] expected type %s; got %s", i, expTypes[i], region.Type)
			}
		}

		if exp, got := uint64(0x5000), m.Regions()[2].End; got != exp {
			t.Errorf("expected region 2 to end at 0x%x; got 0x%x", exp, got)
		}
	})

	t.Run("missing memory map", func(t *testing.T) {
		blob := newMultibootBlob().
			tag(uint32(tagBootLoaderName), []byte("GRUB 2.06\x00")).
			end()

		var m MemoryMap
		if err := ParseMultiboot(uintptr(unsafe.Pointer(&blob[0])), &m); err != errNoMemoryMapTag {
			t.Fatalf("expected errNoMemoryMapTag; got %v", err)
		}
	})

	t.Run("tag size smaller than its header", func(t *testing.T) {
		for _, size := range []uint32{0, 4} {
			blob := newMultibootBlob().
				tag(uint32(tagBootCmdLine), []byte("console\x00")).
				memoryMap([3]uint64{0x0, 0x1000, 1}).
				end()

			// the first tag header follows the 8-byte info header
			binary.LittleEndian.PutUint32(blob[12:], size)

			var m MemoryMap
			if err := ParseMultiboot(uintptr(unsafe.Pointer(&blob[0])), &m); err != errNoMemoryMapTag {
				t.Errorf("[size %d] expected errNoMemoryMapTag; got %v", size, err)
			}
		}
	})
}

// multibootBlob assembles a multiboot2 information block for tests.
type multibootBlob []byte

func newMultibootBlob() multibootBlob {
	return make(multibootBlob, 8)
}

func (b multibootBlob) tag(tagType uint32, payload []byte) multibootBlob {
	hdr := make([]byte, 8)
	binary.LittleEndian.PutUint32(hdr[0:], tagType)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(8+len(payload)))
	b = append(b, hdr...)
	b = append(b, payload...)
	for len(b)%8 != 0 {
		b = append(b, 0)
	}
	return b
}

// memoryMap appends a memory map tag; each entry is {addr, length, type}.
func (b multibootBlob) memoryMap(entries ...[3]uint64) multibootBlob {
	payload := make([]byte, 8+24*len(entries))
	binary.LittleEndian.PutUint32(payload[0:], 24)
	for i, entry := range entries {
		off := 8 + 24*i
		binary.LittleEndian.PutUint64(payload[off:], entry[0])
		binary.LittleEndian.PutUint64(payload[off+8:], entry[1])
		binary.LittleEndian.PutUint32(payload[off+16:], uint32(entry[2]))
	}
	return b.tag(uint32(tagMemoryMap), payload)
}

func (b multibootBlob) end() []byte {
	b = b.tag(uint32(tagMbSectionEnd), nil)
	binary.LittleEndian.PutUint32(b[0:], uint32(len(b)))

	// copy into 8-byte aligned storage
	backing := make([]uint64, (len(b)+7)/8)
	out := unsafe.Slice((*byte)(unsafe.Pointer(&backing[0])), len(backing)*8)
	copy(out, b)
	return out
}

var (
	// A dump of multiboot data when running under qemu containing only the
	// memory region tag.  The dump encodes the following available memory
	// regions:
	// [     0 -   9fc00] length:    654336
	// [100000 - 7fe0000] length: 133038080
	multibootMemoryMap = []byte{
		72, 5, 0, 0, 0, 0, 0, 0,
		6, 0, 0, 0, 160, 0, 0, 0, 24, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 252, 9, 0, 0, 0, 0, 0,
		1, 0, 0, 0, 0, 0, 0, 0, 0, 252, 9, 0, 0, 0, 0, 0,
		0, 4, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 15, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 16, 0, 0, 0, 0, 0,
		0, 0, 238, 7, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 254, 7, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 252, 255, 0, 0, 0, 0,
		0, 0, 4, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0,
		9, 0, 0, 0, 212, 3, 0, 0, 24, 0, 0, 0, 40, 0, 0, 0,
		21, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 27, 0, 0, 0,
		1, 0, 0, 0, 2, 0, 0, 0, 0, 0, 16, 0, 0, 16, 0, 0,
		24, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)
