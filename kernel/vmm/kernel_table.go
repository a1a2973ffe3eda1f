package vmm

import "rvpart/kernel/sync"

var (
	kernMu    sync.Spinlock
	kernTable *PageTable

	// activateFn writes the table's root frame into satp and flushes the
	// TLB. It is overridden by kernel/vmminit for the real arch-specific
	// write and left as a no-op in tests, mirroring switchPDTFn in the
	// teacher.
	activateFn = func(*PageTable) {}
)

// SetKernelTable installs the master kernel page table (KERN) that every
// other table's SyncWithKernel call synchronizes its upper half against.
func SetKernelTable(pt *PageTable) {
	kernMu.Acquire()
	defer kernMu.Release()
	kernTable = pt
}

// KernelTable returns the currently installed master kernel page table, or
// nil if none has been installed yet.
func KernelTable() *PageTable {
	kernMu.Acquire()
	defer kernMu.Release()
	return kernTable
}

// SetActivateFunc overrides the arch-specific satp write used by Activate.
func SetActivateFunc(fn func(*PageTable)) { activateFn = fn }

// Activate switches the running CPU to this page table.
func (pt *PageTable) Activate() { activateFn(pt) }
