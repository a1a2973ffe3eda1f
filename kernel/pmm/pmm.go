// Package pmm manages physical memory frame allocation: a refcounted Frame
// handle, a boot-time bump allocator seeded from the platform's usable
// memory-region list, and a free-list allocator that takes over once the
// kernel is far enough along to track per-frame state.
//
// The boot allocator is grounded on the teacher's
// kernel/mem/pmm/allocator/bootmem.go, generalized away from the x86
// multiboot memory map to a plain slice of MemRegion values (RISC-V
// platforms report usable RAM via a flattened device tree, not multiboot).
// The refcounted Frame wrapper is grounded on original_source's
// phys-frame/src/lib.rs (Arc<PhysFrame>, alloc/drop).
package pmm

import (
	"math"
	"sync/atomic"

	"rvpart/kernel"
	"rvpart/kernel/addr"
	"rvpart/kernel/config"
	"rvpart/kernel/sync"
)

// Frame identifies a physical memory page by index.
type Frame uintptr

// InvalidFrame is returned by allocators when no more memory is available.
const InvalidFrame = Frame(math.MaxUint64)

// Valid reports whether f refers to a real frame.
func (f Frame) Valid() bool { return f != InvalidFrame }

// Address returns the physical address of the start of the frame.
func (f Frame) Address() addr.PhysAddr { return addr.PhysAddr(uintptr(f) << config.PageShift) }

// FrameFromAddress returns the Frame containing physAddr, rounding down.
func FrameFromAddress(physAddr addr.PhysAddr) Frame {
	return Frame(physAddr.AlignPageDown().AsUintptr() >> config.PageShift)
}

// MemRegion describes a range of usable physical memory reported by the
// boot loader / device tree.
type MemRegion struct {
	PhysAddress uintptr
	Length      uintptr
}

var (
	errOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of memory"}

	mu          sync.Spinlock
	usableMem   []MemRegion
	kernStart   uintptr
	kernEnd     uintptr
	bumpCursor  Frame
	bumpStarted bool
	freeList    []Frame
	refCounts   = map[Frame]*int32{}
)

// SetMemoryMap installs the usable memory regions detected at boot, and the
// [kernelStart, kernelEnd) range that must never be handed out.
func SetMemoryMap(regions []MemRegion, kernelStart, kernelEnd uintptr) {
	mu.Acquire()
	defer mu.Release()
	usableMem = regions
	kernStart = kernelStart
	kernEnd = kernelEnd
}

func inKernelRange(f Frame) bool {
	a := f.Address().AsUintptr()
	return a+config.PageSize > kernStart && a < kernEnd
}

// AllocFrame reserves a zero-initialized physical frame. Frames released via
// ReleaseFrame are recycled before the bump cursor advances further.
func AllocFrame() (Frame, *kernel.Error) {
	mu.Acquire()
	defer mu.Release()

	if n := len(freeList); n > 0 {
		f := freeList[n-1]
		freeList = freeList[:n-1]
		refCounts[f] = new(int32)
		*refCounts[f] = 1
		zero(f)
		return f, nil
	}

	for _, region := range usableMem {
		pageMask := uintptr(config.PageSize - 1)
		startFrame := Frame(((region.PhysAddress + pageMask) &^ pageMask) >> config.PageShift)
		endFrame := Frame(((region.PhysAddress+region.Length)&^pageMask)>>config.PageShift) - 1

		if !bumpStarted {
			bumpCursor = startFrame
			bumpStarted = true
		}
		if bumpCursor < startFrame {
			bumpCursor = startFrame
		}
		for bumpCursor <= endFrame {
			if inKernelRange(bumpCursor) {
				bumpCursor++
				continue
			}
			f := bumpCursor
			bumpCursor++
			refCounts[f] = new(int32)
			*refCounts[f] = 1
			zero(f)
			return f, nil
		}
	}

	return InvalidFrame, errOutOfMemory
}

// RetainFrame increments f's reference count, mirroring Arc::clone on the
// original's PhysFrame handle.
func RetainFrame(f Frame) {
	mu.Acquire()
	rc := refCounts[f]
	mu.Release()
	if rc != nil {
		atomic.AddInt32(rc, 1)
	}
}

// ReleaseFrame decrements f's reference count and, once it drops to zero,
// returns the frame to the free list.
func ReleaseFrame(f Frame) {
	mu.Acquire()
	defer mu.Release()
	rc := refCounts[f]
	if rc == nil {
		return
	}
	if atomic.AddInt32(rc, -1) <= 0 {
		delete(refCounts, f)
		freeList = append(freeList, f)
	}
}

// zero clears the contents of frame f via its identity-mapped physical
// alias, the way the teacher's vmm.reserveZeroedFrame does.
func zero(f Frame) {
	p := (*[config.PageSize]byte)(physPointer(f.Address()))
	for i := range p {
		p[i] = 0
	}
}
