package vmm

import (
	"unsafe"

	"rvpart/kernel/addr"
)

// ptrFn resolves a physical address holding a page table to an accessible
// pointer. As a package-level function variable it follows the teacher's
// mapTemporaryFn/activePDTFn indirection idiom (kernel/mm/vmm/pdt.go) so
// tests can point page-table pages at ordinary Go-allocated memory instead
// of a direct-mapped physical alias that only exists on real hardware.
var ptrFn = directMapPtr

func directMapPtr(pa addr.PhysAddr) unsafe.Pointer {
	return unsafe.Pointer(pa.ToVirt().AsUintptr()) //nolint:govet
}

// SetPointerFunc overrides the physical-address-to-pointer resolver used for
// page table pages. Exported so other packages' tests (e.g. kernel/partition)
// can share the same host-backed buffer used for pmm.SetPhysPointerFunc.
func SetPointerFunc(fn func(addr.PhysAddr) unsafe.Pointer) { ptrFn = fn }
