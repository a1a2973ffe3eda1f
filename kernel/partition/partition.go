// Package partition implements partition lifecycle and the per-partition
// process table: Partition owns an address space, a process-stack
// allocator, a memory quota and an ARINC-653 operating mode; Process
// (process.go) owns a process's scheduling attributes and its Executor.
// Both modules live in one Go package because they are mutually
// referential in exactly the way original_source's a653 crate is (a
// partition looks up its processes by id/name; a process looks up its
// owning partition to allocate its stack) - splitting them into two Go
// packages would require an import cycle. Grounded on original_source's
// a653/src/{partition.rs,process.rs} plus apex/src/{partition.rs,
// process.rs} for the wire status types.
package partition

import (
	"bytes"
	"debug/elf"
	"io"
	"sync/atomic"

	"rvpart/kernel"
	"rvpart/kernel/addr"
	"rvpart/kernel/apex"
	"rvpart/kernel/config"
	"rvpart/kernel/errors"
	"rvpart/kernel/linalloc"
	"rvpart/kernel/pmm"
	"rvpart/kernel/sched"
	"rvpart/kernel/sync"
	"rvpart/kernel/task"
	"rvpart/kernel/vmm"
)

// ID identifies a partition across the whole module.
type ID = apex.PartitionID

var nextID uint64

func allocID() ID { return ID(atomic.AddUint64(&nextID, 1)) }

// EntryKind distinguishes a kernel-mode entry point (a Go function
// pointer, resolved once the kernel partition is bootstrapped directly)
// from a user-mode one (a raw vaddr resolved from an ELF image).
type EntryKind int

const (
	EntryUser EntryKind = iota
	EntryKern
)

// Entry is a partition or process's resolved entry point, mirroring the
// original's A653Entry enum.
type Entry struct {
	Kind EntryKind
	Addr uintptr
}

// Kind distinguishes a kernel partition from a user partition.
type Kind int

const (
	KindUser Kind = iota
	KindKernel
)

// Config is the configuration handed to New to create a partition.
type Config struct {
	Name     apex.Name
	Memory   uintptr
	Period   apex.SystemTime
	Duration apex.SystemTime
	NumCores apex.NumCores
	Kind     Kind

	// ELF is the raw ELF image to load; required when Kind is KindUser.
	ELF []byte
	// KernEntry is the partition's kernel-mode entry point; required when
	// Kind is KindKernel.
	KernEntry func()
}

// Partition is a single ARINC-653 partition: its own address space,
// process table, memory quota and operating mode.
type Partition struct {
	kernel bool
	id     ID
	name   apex.Name

	mem       *quota
	pageTable *vmm.PageTable

	preStartMu    sync.Spinlock
	preStartHooks []func()

	procMu     sync.Spinlock
	procByID   map[apex.ProcessID]*Process
	procByName map[apex.Name]apex.ProcessID

	stackAlloc *linalloc.StackAllocator
	nextIndex  uint64 // atomic

	entry          Entry
	period         apex.SystemTime
	duration       apex.SystemTime
	startCondition apex.StartCondition

	lockLevelMu sync.Spinlock
	lockLevel   apex.LockLevel

	modeMu        sync.Spinlock
	operatingMode apex.OperatingMode

	numAssignedCores apex.NumCores
	coresMu          sync.Spinlock
	assignedCores    []apex.ProcessorCore
}

var errELFRequired = &kernel.Error{Module: "partition", Message: "user partition requires an ELF image"}
var errKernEntryRequired = &kernel.Error{Module: "partition", Message: "kernel partition requires an entry point"}

var registry = struct {
	mu sync.Spinlock
	m  map[ID]*Partition
}{m: map[ID]*Partition{}}

// New creates a partition from config, installing a fresh address space
// cloned from the kernel's master table and, for a user partition, loading
// its ELF image. Grounded on Partition::new.
func New(cfg *Config) (*Partition, *kernel.Error) {
	pt, err := vmm.New()
	if err != nil {
		return nil, err
	}

	p := &Partition{
		kernel:           cfg.Kind == KindKernel,
		id:               allocID(),
		name:             cfg.Name,
		mem:              newQuota(cfg.Memory),
		pageTable:        pt,
		procByID:         map[apex.ProcessID]*Process{},
		procByName:       map[apex.Name]apex.ProcessID{},
		period:           cfg.Period,
		duration:         cfg.Duration,
		startCondition:   apex.NormalStart,
		numAssignedCores: cfg.NumCores,
	}
	p.stackAlloc = linalloc.NewStackAllocator(
		addr.NewVirtAddr(config.UprogStackRegion.Addr),
		config.UprogStackRegion.Len,
		config.PageSize,
		p.mapProcessStackPage,
		p.unmapProcessStackPage,
	)

	switch cfg.Kind {
	case KindUser:
		if cfg.ELF == nil {
			return nil, errELFRequired
		}
		entryAddr, lerr := p.loadProgram(cfg.ELF)
		if lerr != nil {
			return nil, lerr
		}
		p.entry = Entry{Kind: EntryUser, Addr: entryAddr}
	case KindKernel:
		if cfg.KernEntry == nil {
			return nil, errKernEntryRequired
		}
		p.entry = Entry{Kind: EntryKern, Addr: apex.SystemAddressOf(cfg.KernEntry).AsUintptr()}
	}

	registry.mu.Acquire()
	registry.m[p.id] = p
	registry.mu.Release()

	return p, nil
}

// FindByID looks up a live partition by id.
func FindByID(id ID) (*Partition, bool) {
	registry.mu.Acquire()
	defer registry.mu.Release()
	p, ok := registry.m[id]
	return p, ok
}

// FindByName looks up a live partition by name.
func FindByName(name apex.Name) (*Partition, bool) {
	registry.mu.Acquire()
	defer registry.mu.Release()
	for _, p := range registry.m {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// CurrentPartition returns the partition owning the currently-running
// Inspector, if any. Mirrors Partition::current's downcast through
// Inspector::ext.
func CurrentPartition() (*Partition, bool) {
	rt := sched.Current()
	if rt == nil {
		return nil, false
	}
	is, ok := rt.CurrentInspector()
	if !ok {
		return nil, false
	}
	p, ok := is.Ext().(*Partition)
	return p, ok
}

// Kernel reports whether this is the trusted kernel partition.
func (p *Partition) Kernel() bool { return p.kernel }

// ID returns the partition's identifier.
func (p *Partition) ID() ID { return p.id }

// Name returns the partition's name.
func (p *Partition) Name() apex.Name { return p.name }

// MemorySize returns the partition's total memory quota in bytes.
func (p *Partition) MemorySize() uintptr { return p.mem.Size() }

// MemoryFree returns the partition's remaining uncommitted memory quota.
func (p *Partition) MemoryFree() uintptr { return p.mem.Free() }

// Entry returns the partition's resolved entry point.
func (p *Partition) Entry() Entry { return p.entry }

// Period returns the partition's scheduling period.
func (p *Partition) Period() apex.SystemTime { return p.period }

// Duration returns the partition's per-period run duration.
func (p *Partition) Duration() apex.SystemTime { return p.duration }

// OperatingMode returns the partition's current operating mode.
func (p *Partition) OperatingMode() apex.OperatingMode {
	p.modeMu.Acquire()
	defer p.modeMu.Release()
	return p.operatingMode
}

// SetOperatingMode transitions the partition to mode.
func (p *Partition) SetOperatingMode(mode apex.OperatingMode) {
	p.modeMu.Acquire()
	defer p.modeMu.Release()
	p.operatingMode = mode
}

// LockLevel returns the partition's current preemption lock level.
func (p *Partition) LockLevel() apex.LockLevel {
	p.lockLevelMu.Acquire()
	defer p.lockLevelMu.Release()
	return p.lockLevel
}

// SetLockLevel sets the partition's preemption lock level.
func (p *Partition) SetLockLevel(level apex.LockLevel) {
	p.lockLevelMu.Acquire()
	defer p.lockLevelMu.Release()
	p.lockLevel = level
}

// AssignedCores returns the set of processor cores assigned to this
// partition.
func (p *Partition) AssignedCores() []apex.ProcessorCore {
	p.coresMu.Acquire()
	defer p.coresMu.Release()
	out := make([]apex.ProcessorCore, len(p.assignedCores))
	copy(out, p.assignedCores)
	return out
}

// AssignCore adds core to the partition's assigned-core set.
func (p *Partition) AssignCore(core apex.ProcessorCore) {
	p.coresMu.Acquire()
	defer p.coresMu.Release()
	p.assignedCores = append(p.assignedCores, core)
}

// AddPreStartHook queues hook to run once, in FIFO order, the next time
// RunPreStartHooks is called.
func (p *Partition) AddPreStartHook(hook func()) {
	p.preStartMu.Acquire()
	defer p.preStartMu.Release()
	p.preStartHooks = append(p.preStartHooks, hook)
}

// RunPreStartHooks drains and runs every queued pre-start hook.
func (p *Partition) RunPreStartHooks() {
	p.preStartMu.Acquire()
	hooks := p.preStartHooks
	p.preStartHooks = nil
	p.preStartMu.Release()

	for _, hook := range hooks {
		hook()
	}
}

// PageTable returns the partition's page table.
func (p *Partition) PageTable() *vmm.PageTable { return p.pageTable }

// PtSync lazily copies across the kernel master table's half of the
// address space if it has changed generation since the partition's table
// last synced. Mirrors Partition::pt_sync.
func (p *Partition) PtSync() { p.pageTable.SyncWithKernel() }

// Status returns the partition's current APEX status snapshot.
func (p *Partition) Status() apex.PartitionStatus {
	return apex.PartitionStatus{
		Period:           p.period,
		Duration:         p.duration,
		Identifier:       p.id,
		LockLevel:        p.LockLevel(),
		OperatingMode:    p.OperatingMode(),
		StartCondition:   p.startCondition,
		NumAssignedCores: p.numAssignedCores,
	}
}

// GenInspector wraps rootExecutor in a fresh Inspector carrying p as its
// extension value, so CurrentPartition can recover p from the
// currently-running Inspector. Mirrors Partition::gen_inspector.
func (p *Partition) GenInspector(rootExecutor *task.Executor) *sched.Inspector {
	return sched.NewInspectorWithExt(rootExecutor, p)
}

func (p *Partition) allocateStack(size uintptr) (addr.VirtAddr, *kernel.Error) {
	va, err := p.stackAlloc.Allocate(size)
	if err != nil {
		return 0, &kernel.Error{Module: "partition", Message: err.Error()}
	}
	return va, nil
}

func (p *Partition) deallocateStack(stackTop addr.VirtAddr) *kernel.Error {
	if err := p.stackAlloc.Deallocate(stackTop); err != nil {
		return &kernel.Error{Module: "partition", Message: err.Error()}
	}
	return nil
}

func (p *Partition) nextIndexVal() int {
	return int(atomic.AddUint64(&p.nextIndex, 1) - 1)
}

func (p *Partition) registerProcess(proc *Process) {
	p.procMu.Acquire()
	defer p.procMu.Release()
	p.procByID[proc.id] = proc
	p.procByName[proc.name] = proc.id
}

func (p *Partition) findProcessByID(id apex.ProcessID) (*Process, bool) {
	p.procMu.Acquire()
	defer p.procMu.Release()
	proc, ok := p.procByID[id]
	return proc, ok
}

func (p *Partition) findProcessByName(name apex.Name) (*Process, bool) {
	p.procMu.Acquire()
	defer p.procMu.Release()
	id, ok := p.procByName[name]
	if !ok {
		return nil, false
	}
	proc, ok := p.procByID[id]
	return proc, ok
}

func (p *Partition) mapProcessStackPage(va addr.VirtAddr) *errors.KernelError {
	if !p.mem.reserve(config.PageSize) {
		e := errors.KernelError("partition memory quota exceeded")
		return &e
	}
	frame, ferr := pmm.AllocFrame()
	if ferr != nil {
		p.mem.release(config.PageSize)
		e := errors.KernelError(ferr.Message)
		return &e
	}
	if merr := p.pageTable.Map(va, frame, vmm.PermU|vmm.PermR|vmm.PermW); merr != nil {
		p.mem.release(config.PageSize)
		pmm.ReleaseFrame(frame)
		e := errors.KernelError(merr.Message)
		return &e
	}
	return nil
}

func (p *Partition) unmapProcessStackPage(va addr.VirtAddr) *errors.KernelError {
	frame, _, lerr := p.pageTable.Lookup(va)
	if lerr == nil {
		pmm.ReleaseFrame(frame)
	}
	if merr := p.pageTable.Unmap(va); merr != nil {
		e := errors.KernelError(merr.Message)
		return &e
	}
	p.mem.release(config.PageSize)
	return nil
}

// loadProgram parses elfImage and maps every PT_LOAD segment into the
// partition's address space, returning the image's entry point. Grounded
// on original_source's loader/src/lib.rs (ElfLoader) as driven by
// a653/src/partition.rs::load_program.
func (p *Partition) loadProgram(elfImage []byte) (uintptr, *kernel.Error) {
	f, ferr := elf.NewFile(bytes.NewReader(elfImage))
	if ferr != nil {
		return 0, &kernel.Error{Module: "partition", Message: ferr.Error()}
	}
	defer f.Close()

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if err := p.loadSegment(prog); err != nil {
			return 0, err
		}
	}

	return uintptr(f.Entry), nil
}

// loadSegment maps and populates the pages backing a single PT_LOAD
// segment. The file image is copied in order: the head page (if the
// segment's vaddr is not page-aligned) receives the first bytes at the
// segment's in-page offset, and every following page receives the next
// page-sized chunk at in-page offset 0. Every page of the zero-filled tail
// up to p_memsz is then mapped without copying. This follows
// load_segment's region_to_load/region_to_zero split (see DESIGN.md's Open
// Question (b)).
func (p *Partition) loadSegment(prog *elf.Prog) *kernel.Error {
	segVAddr := addr.NewVirtAddr(uintptr(prog.Vaddr))
	offset := segVAddr.PageOffset()
	filesz := uintptr(prog.Filesz)
	memsz := uintptr(prog.Memsz)

	data := make([]byte, filesz)
	if filesz > 0 {
		if _, err := io.ReadFull(prog.Open(), data); err != nil {
			return &kernel.Error{Module: "partition", Message: err.Error()}
		}
	}

	perm := vmm.PermV | vmm.PermU
	if prog.Flags&elf.PF_R != 0 {
		perm |= vmm.PermR
	}
	if prog.Flags&elf.PF_W != 0 {
		perm |= vmm.PermW
	}
	if prog.Flags&elf.PF_X != 0 {
		perm |= vmm.PermX
	}

	var offsetLen uintptr
	if offset != 0 {
		offsetLen = filesz
		if rem := config.PageSize - offset; rem < offsetLen {
			offsetLen = rem
		}
		if err := p.loadPage(segVAddr, perm, data, 0, offsetLen); err != nil {
			return err
		}
	}

	for fileOff := offsetLen; fileOff < filesz; fileOff += config.PageSize {
		vaddr := segVAddr.Add(fileOff)
		n := filesz - fileOff
		if n > config.PageSize {
			n = config.PageSize
		}
		if err := p.loadPage(vaddr, perm, data, fileOff, n); err != nil {
			return err
		}
	}

	memEnd := segVAddr.Add(memsz)
	for vaddr := segVAddr.Add(filesz).AlignPageDown(); vaddr < memEnd; vaddr = vaddr.Add(config.PageSize) {
		if err := p.loadPage(vaddr, perm, data, 0, 0); err != nil {
			return err
		}
	}

	return nil
}

// loadPage maps the page backing vaddr (reusing and widening any existing
// mapping's permissions, the way load_program's closure does), then copies
// n bytes from data[srcOff:] into it at the vaddr's in-page offset.
func (p *Partition) loadPage(vaddr addr.VirtAddr, perm vmm.PagePerm, data []byte, srcOff, n uintptr) *kernel.Error {
	pageVA := vaddr.AlignPageDown()

	frame, oldPerm, lerr := p.pageTable.Lookup(pageVA)
	if lerr == nil {
		if !oldPerm.HasAll(perm) {
			if merr := p.pageTable.Map(pageVA, frame, perm|oldPerm); merr != nil {
				return merr
			}
		}
	} else {
		if !p.mem.reserve(config.PageSize) {
			return &kernel.Error{Module: "partition", Message: "partition memory quota exceeded"}
		}
		var ferr *kernel.Error
		frame, ferr = pmm.AllocFrame()
		if ferr != nil {
			p.mem.release(config.PageSize)
			return ferr
		}
		if merr := p.pageTable.Map(pageVA, frame, perm); merr != nil {
			p.mem.release(config.PageSize)
			return merr
		}
	}

	if n == 0 {
		return nil
	}

	dst := pmm.FrameBytes(frame)
	pageOff := vaddr.Sub(pageVA)
	copy(dst[pageOff:pageOff+n], data[srcOff:srcOff+n])
	return nil
}
