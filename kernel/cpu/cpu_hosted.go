//go:build !kernel

package cpu

import (
	"os"
	"sync/atomic"
)

// haltExitCode is the process exit status used when a hosted CPU halts.
const haltExitCode = 1

var (
	// cr3 emulates the page directory base register.
	cr3 uintptr

	interruptsEnabled uint32

	// tlbFlushHook receives every TLB invalidation request.
	tlbFlushHook func(virtAddr uintptr)

	exitFn = os.Exit
)

// EnableInterrupts enables interrupt handling.
func EnableInterrupts() { atomic.StoreUint32(&interruptsEnabled, 1) }

// DisableInterrupts disables interrupt handling.
func DisableInterrupts() { atomic.StoreUint32(&interruptsEnabled, 0) }

// InterruptsEnabled reports whether interrupt handling is currently enabled.
func InterruptsEnabled() bool { return atomic.LoadUint32(&interruptsEnabled) == 1 }

// Halt stops instruction execution. A halted hosted CPU never resumes so the
// process exits.
func Halt() {
	DisableInterrupts()
	exitFn(haltExitCode)
}

// FlushTLBEntry flushes a TLB entry for a particular virtual address by
// forwarding the request to the hook installed via SetTLBFlushHook.
func FlushTLBEntry(virtAddr uintptr) {
	if tlbFlushHook != nil {
		tlbFlushHook(virtAddr)
	}
}

// SetTLBFlushHook registers a function that is invoked for each TLB entry
// invalidation. Passing nil removes the hook.
func SetTLBFlushHook(hook func(virtAddr uintptr)) {
	tlbFlushHook = hook
}

// SwitchPDT sets the root page table directory to point to the specified
// physical address.
func SwitchPDT(pdtPhysAddr uintptr) {
	cr3 = pdtPhysAddr
}

// ActivePDT returns the physical address of the currently active page table.
func ActivePDT() uintptr {
	return cr3
}
