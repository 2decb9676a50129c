// Package cpu exposes the CPU primitives used by the memory subsystem:
// reading and switching the active page directory table, invalidating TLB
// entries, toggling interrupts and halting.
//
// Kernel images are built with the "kernel" build tag which selects the
// amd64 assembly implementation. Without the tag, a hosted implementation
// is compiled in; it keeps CR3 in a software register and forwards TLB
// invalidations to a registered hook so the page table code can run inside
// a regular process.
package cpu
