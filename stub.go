package main

import (
	"github.com/nearsyh/near-os/kernel/bootinfo"
	"github.com/nearsyh/near-os/kernel/kfmt"
	"github.com/nearsyh/near-os/kernel/kmain"
)

var (
	// multibootInfoPtr and physMemOffset are populated by the rt0 code
	// before main is invoked. physMemOffset is the virtual address at
	// which rt0 mapped all of physical memory.
	multibootInfoPtr uintptr
	physMemOffset    uintptr

	bootInfo bootinfo.Info
)

// main makes a dummy call to the actual kernel main entrypoint function. It
// is intentionally defined to prevent the Go compiler from optimizing away the
// real kernel code.
//
// Global variables are used to pass the boot information to Kmain to prevent
// the compiler from inlining the actual call and removing Kmain from the
// generated .o file.
func main() {
	if err := bootinfo.ParseMultiboot(multibootInfoPtr, &bootInfo.MemoryMap); err != nil {
		kfmt.Panic(err)
	}
	bootInfo.PhysicalMemoryOffset = uint64(physMemOffset)

	kmain.Kmain(&bootInfo)
}
