//go:build rv32

package config

// PageLevels is the number of page-table levels walked to resolve a virtual
// address: 2 on rv32 (Sv32).
const PageLevels = 2

// SatpMode is the satp CSR MODE field value selecting Sv32 paging.
const SatpMode = 1

// SatpModeShift is the bit position of satp's MODE field on rv32.
const SatpModeShift = 31

// PhysMemBase/PhysMemLimit bound the physical RAM window identity-remapped
// into the kernel's address space.
const (
	PhysMemBase  = 0x8000_0000
	PhysMemLimit = 0xC000_0000
)

// ExecutorStackRegion is the virtual window the executor stack allocator
// carves kernel stacks out of.
var ExecutorStackRegion = VirtMemRegion{Addr: 0xE000_0000, Len: 0xF000_0000 - 0xE000_0000}

// UprogStackRegion is the virtual window user-process stacks are allocated
// from within a partition's address space.
var UprogStackRegion = VirtMemRegion{Addr: 0x5000_0000, Len: 0x7000_0000 - 0x5000_0000}

// DirectMapOffset is added to a physical address to obtain the kernel's
// identity-remapped virtual alias of that physical page. On rv32 physical
// RAM is mapped 1:1, so the offset is zero.
const DirectMapOffset = 0

// DirectMapSize is how much of [PhysMemBase, PhysMemBase+DirectMapSize)
// the KERN master table maps eagerly at boot. The original maps the whole
// PhysMemBase..PhysMemLimit window in one shot using Sv32 4 MiB megapages
// (REMAP_HUGE_PAGE_SIZE); this repo's page table only installs base-page
// leaf mappings, so eagerly covering the full window would mean millions
// of Map calls during boot. DirectMapSize caps the eager boot mapping to a
// size a base-page loop can build in a bounded number of steps; pages
// beyond it are mapped into kernel address space on demand the same way a
// partition's page table is, rather than through KERN directly.
const DirectMapSize = 16 * 1024 * 1024

