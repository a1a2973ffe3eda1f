package vmm

import (
	"rvpart/kernel/addr"
	"rvpart/kernel/config"
)

// pageTableEntry is a single Sv32/Sv39 page table entry: bits [63:10] (or
// [31:10] on rv32) hold the physical page number, the low bits hold the
// permission flags. Grounded on paging/src/arch/riscv/mod.rs's
// PageTableEntry::{set,clr} and its (PhysAddr, PagePerm) conversion.
type pageTableEntry uintptr

func makePTE(phys addr.PhysAddr, perm PagePerm) pageTableEntry {
	var pte pageTableEntry
	pte.set(phys, perm)
	return pte
}

// set installs phys/perm into the entry. Readable entries pick up the
// access bit, writable entries the dirty bit - the teacher's Rust
// counterpart sets these eagerly since this kernel never implements
// hardware-managed A/D bit emulation.
func (pte *pageTableEntry) set(phys addr.PhysAddr, perm PagePerm) {
	if perm.HasAny(PermR) {
		perm |= permA
	}
	if perm.HasAny(PermW) {
		perm |= permD
	}
	*pte = pageTableEntry((phys.AlignPageDown().AsUintptr() >> 2) | uintptr(perm))
}

// clr invalidates the entry.
func (pte *pageTableEntry) clr() { *pte = 0 }

// valid reports whether the V bit is set.
func (pte pageTableEntry) valid() bool { return uintptr(pte)&uintptr(PermV) != 0 }

// decode splits the entry back into its physical address and permission
// bits.
func (pte pageTableEntry) decode() (addr.PhysAddr, PagePerm) {
	phys := addr.PhysAddr((uintptr(pte) << 2) &^ (config.PageSize - 1))
	perm := PagePerm(uintptr(pte) & (config.PageSize - 1))
	return phys, perm
}
