// Package vmm implements the page-table engine: a PageTable type backed by
// a frame map and a generation counter, rv32 (Sv32, 2-level) / rv64 (Sv39,
// 3-level) walks, and the lazy kernel-half synchronization protocol shared
// by every partition's address space.
//
// The walk/map/unmap/lookup surface follows the shape of the teacher's
// kernel/mm/vmm package (pdt.go, map.go, vmm.go): a dedicated page-table
// entry type with flag accessors, a level-driven walker, and
// function-variable indirection (see unsafe.go) so tests can substitute a
// host-backed memory region for the direct-mapped physical alias. The
// concrete bit layout, the BTreeMap-of-frames bookkeeping, and the
// generation-based pt_sync protocol are grounded on original_source's
// paging/src/{common.rs,arch/riscv/mod.rs} and a653/src/partition.rs
// (pt_sync).
package vmm

import "fmt"

// PagePerm is the set of permission/status bits carried by a page table
// entry.
type PagePerm uintptr

// Permission bits, matching the Sv32/Sv39 PTE layout: V(alid), R(ead),
// W(rite), eXecute, U(ser), G(lobal), plus the hardware-managed A(ccess)
// and D(irty) bits.
const (
	PermV PagePerm = 1 << iota
	PermR
	PermW
	PermX
	PermU
	PermG
	permA
	permD
)

// HasAll reports whether perm contains every bit in flags.
func (perm PagePerm) HasAll(flags PagePerm) bool { return perm&flags == flags }

// HasAny reports whether perm contains at least one bit in flags.
func (perm PagePerm) HasAny(flags PagePerm) bool { return perm&flags != 0 }

// String renders perm as a fixed-width "VRWXUG" string, matching the
// original's Display impl for PagePerm.
func (perm PagePerm) String() string {
	letters := "VRWXUG"
	out := []byte("------")
	for i := 0; i < 6; i++ {
		if perm&(1<<uint(i)) != 0 {
			out[i] = letters[i]
		}
	}
	return string(out)
}

var _ fmt.Stringer = PagePerm(0)
