package vmm

import "github.com/nearsyh/near-os/kernel/mm"

// TLBFlush is returned by operations that change a page mapping. The
// change is not guaranteed to be visible until Flush is called; callers that
// know the stale entry cannot be cached may call Ignore instead.
type TLBFlush struct {
	page mm.Page
}

// Page returns the page whose translation changed.
func (f TLBFlush) Page() mm.Page {
	return f.page
}

// Flush invalidates the TLB entry for the changed page.
func (f TLBFlush) Flush() {
	flushTLBEntryFn(f.page.Address())
}

// Ignore discards the flush obligation without touching the TLB.
func (f TLBFlush) Ignore() {}
