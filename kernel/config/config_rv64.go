//go:build !rv32

package config

// PageLevels is the number of page-table levels walked to resolve a virtual
// address: 3 on rv64 (Sv39). This is the default build.
const PageLevels = 3

// SatpMode is the satp CSR MODE field value selecting Sv39 paging.
const SatpMode = 8

// SatpModeShift is the bit position of satp's MODE field on rv64.
const SatpModeShift = 60

// PhysMemBase/PhysMemLimit bound the physical RAM window identity-remapped
// into the kernel's address space.
const (
	PhysMemBase  = 0x8000_0000
	PhysMemLimit = 0x20_0000_0000
)

// ExecutorStackRegion is the virtual window the executor stack allocator
// carves kernel stacks out of.
var ExecutorStackRegion = VirtMemRegion{Addr: 0xFFFF_FFE0_0000_0000, Len: 0xFFFF_FFFF_0000_0000 - 0xFFFF_FFE0_0000_0000}

// UprogStackRegion is the virtual window user-process stacks are allocated
// from within a partition's address space.
var UprogStackRegion = VirtMemRegion{Addr: 0x20_0000_0000, Len: 0x30_0000_0000 - 0x20_0000_0000}

// DirectMapOffset is added to a physical address to obtain the kernel's
// direct-mapped virtual alias of that physical page.
const DirectMapOffset = 0xFFFF_FFC0_0000_0000

// DirectMapSize is how much of [PhysMemBase, PhysMemBase+DirectMapSize)
// the KERN master table maps eagerly at boot. The original covers the
// entire PhysMemBase..PhysMemLimit window (~127 GiB on rv64) in one shot
// using Sv39 1 GiB gigapages (REMAP_HUGE_PAGE_SIZE); this repo's page
// table only installs base-page leaf mappings, so DirectMapSize caps the
// eager boot mapping instead of looping over the full window one 4 KiB
// page at a time. Pages beyond it are mapped on demand rather than
// through KERN directly.
const DirectMapSize = 16 * 1024 * 1024

