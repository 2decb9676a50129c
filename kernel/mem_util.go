package kernel

import "unsafe"

// byteSlice overlays a byte slice on top of the size bytes starting at addr.
func byteSlice(addr, size uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}

// Memset sets size bytes at the given address to the supplied value. Instead
// of a byte-by-byte loop it performs log2(size) copy calls, each one doubling
// the initialized prefix; page table and heap addresses are always aligned so
// the copies stay fast.
func Memset(addr uintptr, value byte, size uintptr) {
	if size == 0 {
		return
	}

	target := byteSlice(addr, size)
	target[0] = value
	for filled := uintptr(1); filled < size; filled *= 2 {
		copy(target[filled:], target[:filled])
	}
}

// Memcopy copies size bytes from src to dst.
func Memcopy(src, dst uintptr, size uintptr) {
	if size == 0 {
		return
	}

	copy(byteSlice(dst, size), byteSlice(src, size))
}
