// Command vmsim boots the kernel memory subsystem on simulated RAM and
// reports the resulting memory layout.
package main

import (
	"flag"
	"fmt"
	"os"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/nearsyh/near-os/internal/simboot"
	"github.com/nearsyh/near-os/kernel/bootinfo"
	"github.com/nearsyh/near-os/kernel/heap"
	"github.com/nearsyh/near-os/kernel/kfmt"
	"github.com/nearsyh/near-os/kernel/kmain"
	"github.com/nearsyh/near-os/kernel/mm"
	"github.com/nearsyh/near-os/kernel/mm/vmm"
)

var (
	ramFlag     = flag.String("ram", "4M", "amount of simulated RAM (accepts K, M and G suffixes)")
	regionsFlag = flag.String("regions", "", "memory map as a comma separated list of start-end:type entries where type is one of usable, reserved, acpi, nvs or bad (default: all RAM except frame 0 is usable)")
	allocsFlag  = flag.String("allocs", "64,1K:16,4K:4K", "heap allocations to perform as a comma separated list of size[:align] entries")
)

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[vmsim] error: %s\n", err.Error())
	os.Exit(1)
}

func main() {
	flag.Parse()

	ramSize, err := parseSize(*ramFlag)
	if err != nil {
		exit(errors.Wrap(err, "-ram"))
	}

	regions, err := parseRegions(*regionsFlag)
	if err != nil {
		exit(errors.Wrap(err, "-regions"))
	}

	allocs, err := parseAllocs(*allocsFlag)
	if err != nil {
		exit(errors.Wrap(err, "-allocs"))
	}

	if err = run(uintptr(ramSize), regions, allocs); err != nil {
		exit(err)
	}
}

func run(ramSize uintptr, regions []bootinfo.MemoryRegion, allocs []allocRequest) error {
	machine, err := simboot.New(ramSize, regions...)
	if err != nil {
		return errors.Wrap(err, "creating simulated machine")
	}
	defer func() { _ = machine.Close() }()

	if err = machine.RAM.ReserveWindow(heap.Start, uintptr(heap.Size)); err != nil {
		return errors.Wrap(err, "reserving heap window")
	}

	kfmt.SetOutputSink(&kfmt.PrefixWriter{Sink: os.Stdout, Prefix: []byte("[vmsim] ")})

	services, kErr := kmain.Boot(&machine.Info)
	if kErr != nil {
		// halts the simulated CPU which exits the process
		kfmt.Panic(kErr)
	}

	if err = machine.Err(); err != nil {
		return errors.Wrap(err, "syncing heap window")
	}

	fmt.Printf("\ntranslations:\n")
	lastHeapAddr := heap.Start + uintptr(heap.Size) - 1
	for _, virtAddr := range []uintptr{heap.Start, heap.Start + 0x1234, lastHeapAddr, lastHeapAddr + 1} {
		physAddr, kErr := vmm.Translate(virtAddr, machine.RAM.Offset())
		if kErr != nil {
			fmt.Printf("  0x%016x -> %s\n", virtAddr, kErr.Error())
			continue
		}
		fmt.Printf("  0x%016x -> 0x%09x\n", virtAddr, physAddr)
	}

	fmt.Printf("\nheap allocations:\n")
	type block struct {
		addr uintptr
		req  allocRequest
	}
	var blocks []block
	for _, req := range allocs {
		addr, kErr := services.Heap.Alloc(req.size, req.align)
		if kErr != nil {
			fmt.Printf("  alloc(%d, %d): %s\n", req.size, req.align, kErr.Error())
			continue
		}

		// touch the block so that unmapped heap pages fault
		*(*byte)(unsafe.Pointer(addr)) = 0xaa
		blocks = append(blocks, block{addr: addr, req: req})
		fmt.Printf("  alloc(%d, %d) = 0x%x\n", req.size, req.align, addr)
	}
	printStats(services.Heap)

	for i := len(blocks) - 1; i >= 0; i-- {
		if kErr := services.Heap.Free(blocks[i].addr, blocks[i].req.size, blocks[i].req.align); kErr != nil {
			return errors.Wrapf(kErr, "freeing block at 0x%x", blocks[i].addr)
		}
	}
	printStats(services.Heap)

	fmt.Printf("\nframes in use: %d (%dKb)\n", services.Frames.AllocatedFrames(), services.Frames.AllocatedFrames()*uint64(mm.PageSize)/uint64(mm.Kb))
	return nil
}

func printStats(h *heap.LockedHeap) {
	used, free := h.Stats()
	fmt.Printf("  heap: %d bytes used, %d bytes free\n", used, free)
}
