//go:build !kernel

package cpu

import (
	"os"
	"testing"
)

func TestHostedPDT(t *testing.T) {
	defer func(orig uintptr) { cr3 = orig }(cr3)

	SwitchPDT(0x7000)
	if got := ActivePDT(); got != 0x7000 {
		t.Fatalf("expected active PDT to be 0x7000; got 0x%x", got)
	}
}

func TestHostedTLBFlushHook(t *testing.T) {
	defer SetTLBFlushHook(nil)

	// no hook installed; this should be a no-op
	FlushTLBEntry(0x1000)

	var flushed []uintptr
	SetTLBFlushHook(func(virtAddr uintptr) {
		flushed = append(flushed, virtAddr)
	})

	FlushTLBEntry(0x1000)
	FlushTLBEntry(0x444444440000)

	if len(flushed) != 2 || flushed[0] != 0x1000 || flushed[1] != 0x444444440000 {
		t.Fatalf("unexpected flush requests: %x", flushed)
	}
}

func TestHostedHalt(t *testing.T) {
	defer func() { exitFn = os.Exit }()

	var exitCode = -1
	exitFn = func(code int) { exitCode = code }

	EnableInterrupts()
	if !InterruptsEnabled() {
		t.Fatal("expected interrupts to be enabled")
	}

	Halt()

	if exitCode != haltExitCode {
		t.Fatalf("expected Halt to exit with code %d; got %d", haltExitCode, exitCode)
	}

	if InterruptsEnabled() {
		t.Fatal("expected Halt to disable interrupts")
	}
}
