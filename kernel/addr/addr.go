// Package addr defines the physical and virtual address newtypes shared by
// every memory-management package in the kernel.
package addr

import (
	"rvpart/kernel/config"
)

// PhysAddr is a physical memory address.
type PhysAddr uintptr

// VirtAddr is a virtual memory address.
type VirtAddr uintptr

// NewPhysAddr wraps a raw physical address value.
func NewPhysAddr(a uintptr) PhysAddr { return PhysAddr(a) }

// NewVirtAddr wraps a raw virtual address value.
func NewVirtAddr(a uintptr) VirtAddr { return VirtAddr(a) }

// AsUintptr returns the raw address value.
func (a PhysAddr) AsUintptr() uintptr { return uintptr(a) }

// AsUintptr returns the raw address value.
func (a VirtAddr) AsUintptr() uintptr { return uintptr(a) }

// AlignPageDown rounds a down to the start of its containing page.
func (a PhysAddr) AlignPageDown() PhysAddr {
	return PhysAddr(uintptr(a) &^ (config.PageSize - 1))
}

// AlignPageUp rounds a up to the start of the next page (or itself, if
// already aligned).
func (a PhysAddr) AlignPageUp() PhysAddr {
	return PhysAddr((uintptr(a) + config.PageSize - 1) &^ (config.PageSize - 1))
}

// AlignPageDown rounds a down to the start of its containing page.
func (a VirtAddr) AlignPageDown() VirtAddr {
	return VirtAddr(uintptr(a) &^ (config.PageSize - 1))
}

// AlignPageUp rounds a up to the start of the next page (or itself, if
// already aligned).
func (a VirtAddr) AlignPageUp() VirtAddr {
	return VirtAddr((uintptr(a) + config.PageSize - 1) &^ (config.PageSize - 1))
}

// PageOffset returns the offset of a within its containing page.
func (a VirtAddr) PageOffset() uintptr {
	return uintptr(a) & (config.PageSize - 1)
}

// PageOffset returns the offset of a within its containing page.
func (a PhysAddr) PageOffset() uintptr {
	return uintptr(a) & (config.PageSize - 1)
}

// Indexes2 returns the two page-table indexes used to walk an rv32 (Sv32)
// two-level page table for this address: [vpn1, vpn0].
func (a VirtAddr) Indexes2() [2]uintptr {
	v := uintptr(a)
	return [2]uintptr{
		(v >> 22) & 0x3ff,
		(v >> 12) & 0x3ff,
	}
}

// Indexes3 returns the three page-table indexes used to walk an rv64 (Sv39)
// three-level page table for this address: [vpn2, vpn1, vpn0].
func (a VirtAddr) Indexes3() [3]uintptr {
	v := uintptr(a)
	return [3]uintptr{
		(v >> 30) & 0x1ff,
		(v >> 21) & 0x1ff,
		(v >> 12) & 0x1ff,
	}
}

// Add returns a+delta.
func (a PhysAddr) Add(delta uintptr) PhysAddr { return PhysAddr(uintptr(a) + delta) }

// Add returns a+delta.
func (a VirtAddr) Add(delta uintptr) VirtAddr { return VirtAddr(uintptr(a) + delta) }

// Sub returns the byte distance between a and b (a-b).
func (a VirtAddr) Sub(b VirtAddr) uintptr { return uintptr(a) - uintptr(b) }

// Sub returns the byte distance between a and b (a-b).
func (a PhysAddr) Sub(b PhysAddr) uintptr { return uintptr(a) - uintptr(b) }

// ToVirt returns the kernel's direct-mapped virtual alias of a physical
// address.
func (a PhysAddr) ToVirt() VirtAddr {
	return VirtAddr(uintptr(a) + config.DirectMapOffset)
}

// ToPhys returns the physical address backing a direct-mapped kernel
// virtual address.
func (a VirtAddr) ToPhys() PhysAddr {
	return PhysAddr(uintptr(a) - config.DirectMapOffset)
}
