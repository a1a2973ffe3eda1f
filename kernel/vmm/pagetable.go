package vmm

import (
	"unsafe"

	"rvpart/kernel"
	"rvpart/kernel/addr"
	"rvpart/kernel/config"
	"rvpart/kernel/pmm"
	"rvpart/kernel/sync"
)

var (
	// ErrInvalidVirtAddr is returned when a lookup/translate/unmap targets
	// a virtual address with no corresponding mapping.
	ErrInvalidVirtAddr = &kernel.Error{Module: "vmm", Message: "virtual address is not mapped"}
)

const ptesPerPage = config.PageSize / int(unsafe.Sizeof(pageTableEntry(0)))

// PageTable is a single address space's page table: a root physical frame,
// the set of physical frames backing every installed mapping (so they stay
// alive and can be released together), and a generation counter used by
// SyncWithKernel to detect a stale kernel half.
type PageTable struct {
	mu sync.Spinlock

	root       addr.PhysAddr
	frames     map[addr.VirtAddr]pmm.Frame
	generation uint64
}

// New allocates a fresh page table and seeds its kernel half from the
// currently active master kernel table (KERN), mirroring
// PageTable::new()'s BootPageTable.clone_kernel_into call.
func New() (*PageTable, *kernel.Error) {
	pt, err := newEmpty()
	if err != nil {
		return nil, err
	}
	if kern := KernelTable(); kern != nil {
		pt.sync(kern)
		pt.generation = kern.generation
	}
	return pt, nil
}

// NewFromKernel allocates a table identical to New but is named to mirror
// Partition construction ("creates a new PageTable cloned from KERN").
func NewFromKernel() (*PageTable, *kernel.Error) { return New() }

func newEmpty() (*PageTable, *kernel.Error) {
	frame, err := pmm.AllocFrame()
	if err != nil {
		return nil, err
	}
	root := frame.Address()
	pt := &PageTable{
		root:   root,
		frames: map[addr.VirtAddr]pmm.Frame{addr.VirtAddr(root.AsUintptr()): frame},
	}
	return pt, nil
}

// Generation returns the table's current generation counter.
func (pt *PageTable) Generation() uint64 {
	pt.mu.Acquire()
	defer pt.mu.Release()
	return pt.generation
}

// Root returns the physical address of the table's root page.
func (pt *PageTable) Root() addr.PhysAddr { return pt.root }

// Mapping is one virtual-to-physical installed mapping, as reported by
// Mappings for host-side inspection.
type Mapping struct {
	Virt addr.VirtAddr
	Phys addr.PhysAddr
}

// Mappings returns every frame this table owns: leaf frames keyed by the
// page virtual address they are mapped at, interior table frames by their
// physical address. This is a debug accessor only: a live kernel never needs
// the full set at once, but a host tool decoding a JSON-encoded dump of it
// (cmd/xtask's trace subcommand) does.
func (pt *PageTable) Mappings() []Mapping {
	pt.mu.Acquire()
	defer pt.mu.Release()
	out := make([]Mapping, 0, len(pt.frames))
	for va, frame := range pt.frames {
		out = append(out, Mapping{Virt: va, Phys: frame.Address()})
	}
	return out
}

// entries returns the slice of page table entries stored in the page at
// physical address pa.
func entriesAt(pa addr.PhysAddr) []pageTableEntry {
	base := ptrFn(pa)
	return unsafe.Slice((*pageTableEntry)(base), ptesPerPage)
}

// find walks the table down to the final-level entry for addr, without
// creating any missing interior tables.
func (pt *PageTable) find(va addr.VirtAddr) (*pageTableEntry, *kernel.Error) {
	idx := indexesFor(va)
	pa := pt.root
	for i, ix := range idx {
		pte := &entriesAt(pa)[ix]
		if i == len(idx)-1 {
			return pte, nil
		}
		if !pte.valid() {
			return nil, ErrInvalidVirtAddr
		}
		pa, _ = pte.decode()
	}
	return nil, ErrInvalidVirtAddr
}

// findOrCreate behaves like find but allocates and installs a fresh,
// zeroed interior frame whenever an intermediate level is missing.
func (pt *PageTable) findOrCreate(va addr.VirtAddr) (*pageTableEntry, *kernel.Error) {
	idx := indexesFor(va)
	pa := pt.root
	for i, ix := range idx {
		pte := &entriesAt(pa)[ix]
		if i == len(idx)-1 {
			return pte, nil
		}
		if !pte.valid() {
			frame, err := pmm.AllocFrame()
			if err != nil {
				return nil, err
			}
			childAddr := frame.Address()
			pte.set(childAddr, PermV)
			pt.frames[addr.VirtAddr(childAddr.AsUintptr())] = frame
		}
		pa, _ = pte.decode()
	}
	return nil, ErrInvalidVirtAddr
}

// indexesFor returns the per-level page-table indices for va, picking the
// 2-level (rv32) or 3-level (rv64) split based on config.PageLevels.
func indexesFor(va addr.VirtAddr) []uintptr {
	if config.PageLevels == 2 {
		idx := va.Indexes2()
		return idx[:]
	}
	idx := va.Indexes3()
	return idx[:]
}

// Map installs a mapping from va to frame with the given permissions. The
// V bit is always implied, matching map()'s perm.union(PagePerm::V).
func (pt *PageTable) Map(va addr.VirtAddr, frame pmm.Frame, perm PagePerm) *kernel.Error {
	pt.mu.Acquire()
	defer pt.mu.Release()

	va = va.AlignPageDown()
	phys := frame.Address()
	pt.frames[va] = frame

	pte, err := pt.findOrCreate(va)
	if err != nil {
		return err
	}
	pte.set(phys, perm|PermV)
	pt.generation++
	return nil
}

// Unmap removes the mapping installed at va.
func (pt *PageTable) Unmap(va addr.VirtAddr) *kernel.Error {
	pt.mu.Acquire()
	defer pt.mu.Release()

	va = va.AlignPageDown()
	if _, ok := pt.frames[va]; !ok {
		return ErrInvalidVirtAddr
	}
	delete(pt.frames, va)

	pte, err := pt.find(va)
	if err != nil {
		return err
	}
	pte.clr()
	pt.generation++
	return nil
}

// Lookup returns the frame and permissions backing va.
func (pt *PageTable) Lookup(va addr.VirtAddr) (pmm.Frame, PagePerm, *kernel.Error) {
	pt.mu.Acquire()
	defer pt.mu.Release()

	va = va.AlignPageDown()
	pte, err := pt.find(va)
	if err != nil {
		return pmm.InvalidFrame, 0, err
	}
	if !pte.valid() {
		return pmm.InvalidFrame, 0, ErrInvalidVirtAddr
	}
	phys, perm := pte.decode()
	return pmm.FrameFromAddress(phys), perm, nil
}

// Translate resolves a full virtual address (including its in-page offset)
// to the corresponding physical address and permission set.
func (pt *PageTable) Translate(va addr.VirtAddr) (addr.PhysAddr, PagePerm, *kernel.Error) {
	frame, perm, err := pt.Lookup(va)
	if err != nil {
		return 0, 0, err
	}
	return frame.Address().Add(va.PageOffset()), perm, nil
}

// sync copies the kernel half of src's top-level table into pt, the way
// clone_kernel_into overwrites the upper half of the destination root page.
func (pt *PageTable) sync(src *PageTable) {
	dst := entriesAt(pt.root)
	srcEntries := entriesAt(src.root)
	half := ptesPerPage / 2
	copy(dst[half:], srcEntries[half:])
}

// SyncWithKernel implements the lazy pt_sync protocol: if the kernel
// table's generation has advanced since pt last synced, copy its kernel
// half across and adopt its generation number.
func (pt *PageTable) SyncWithKernel() {
	kern := KernelTable()
	if kern == nil {
		return
	}

	kern.mu.Acquire()
	kernGen := kern.generation
	kern.mu.Release()

	pt.mu.Acquire()
	defer pt.mu.Release()
	if pt.generation == kernGen {
		return
	}
	pt.sync(kern)
	pt.generation = kernGen
}
