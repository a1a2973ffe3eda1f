package pmm

import (
	"unsafe"

	"rvpart/kernel/addr"
	"rvpart/kernel/config"
)

// physPointerFn resolves a physical address to an accessible pointer. It is
// a package-level function variable - following the teacher's
// mapTemporaryFn/activePDTFn indirection idiom in kernel/mm/vmm/pdt.go - so
// that tests can substitute a real, heap-backed byte array for the
// direct-mapped alias a freestanding build would use.
var physPointerFn = directMapPointer

// directMapPointer returns an unsafe.Pointer to the direct-mapped virtual
// alias of a physical address.
func directMapPointer(p addr.PhysAddr) unsafe.Pointer {
	return unsafe.Pointer(p.ToVirt().AsUintptr()) //nolint:govet
}

func physPointer(p addr.PhysAddr) unsafe.Pointer {
	return physPointerFn(p)
}

// SetPhysPointerFunc overrides the physical-address-to-pointer resolver
// used by AllocFrame's zero-fill step. Exported so other packages' tests
// (e.g. kernel/vmm) can point pmm-allocated frames at the same host-backed
// buffer their own indirection functions use.
func SetPhysPointerFunc(fn func(addr.PhysAddr) unsafe.Pointer) { physPointerFn = fn }

// FrameBytes returns a page-sized byte slice backed by f's direct-mapped
// physical alias, for callers (e.g. kernel/partition's ELF loader) that
// need to populate a freshly mapped page's contents directly.
func FrameBytes(f Frame) []byte {
	return (*[config.PageSize]byte)(physPointer(f.Address()))[:]
}
