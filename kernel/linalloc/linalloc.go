// Package linalloc implements the bump/recycle virtual-address allocators
// used to carve fixed-size slots - user program stacks, executor kernel
// stacks - out of a reserved virtual window, mapping and unmapping pages on
// demand through caller-supplied hooks. Grounded on original_source's
// linear-alloc/src/lib.rs (LinearAllocator, fixed-size slots with no guard
// gap beyond grd_size) and stack-alloc/src/lib.rs (StackAllocator,
// variable-size slots, with freed slots cached by size for reuse).
package linalloc

import (
	"rvpart/kernel/addr"
	"rvpart/kernel/config"
	"rvpart/kernel/errors"
	"rvpart/kernel/sync"
)

// MapFunc maps or unmaps the page(s) starting at va, as required by the
// allocator's bookkeeping.
type MapFunc func(va addr.VirtAddr) *errors.KernelError

var (
	errOutOfVirtSpace = errors.KernelError("virtual address region exhausted")
	errNotAllocated   = errors.KernelError("address was not allocated by this allocator")
)

// roundUpPage rounds size up to a page-size multiple.
func roundUpPage(size uintptr) uintptr {
	return (size + config.PageSize - 1) &^ (config.PageSize - 1)
}

// LinearAllocator hands out fixed-size virtual address slots from a
// reserved region, separated by a guard gap, recycling freed slots ahead
// of the bump cursor.
type LinearAllocator struct {
	region       addr.VirtAddr
	regionLen    uintptr
	eleSize      uintptr
	guardSize    uintptr
	mapFn        MapFunc
	unmapFn      MapFunc

	mu        sync.Spinlock
	next      uintptr
	allocated map[addr.VirtAddr]bool
	recycled  []addr.VirtAddr
}

// NewLinearAllocator creates an allocator over region, with a fixed per-slot
// size of eleSize bytes and a guardSize-byte unmapped gap after each slot.
func NewLinearAllocator(region addr.VirtAddr, regionLen, eleSize, guardSize uintptr, mapFn, unmapFn MapFunc) *LinearAllocator {
	return &LinearAllocator{
		region:    region,
		regionLen: regionLen,
		eleSize:   eleSize,
		guardSize: guardSize,
		mapFn:     mapFn,
		unmapFn:   unmapFn,
		next:      region.AsUintptr(),
		allocated: map[addr.VirtAddr]bool{},
	}
}

// Allocate reserves and maps a new slot, returning its base address.
func (a *LinearAllocator) Allocate() (addr.VirtAddr, *errors.KernelError) {
	a.mu.Acquire()
	var va addr.VirtAddr
	if n := len(a.recycled); n > 0 {
		va = a.recycled[n-1]
		a.recycled = a.recycled[:n-1]
	} else {
		if a.next+a.eleSize > a.region.AsUintptr()+a.regionLen {
			a.mu.Release()
			return 0, &errOutOfVirtSpace
		}
		va = addr.NewVirtAddr(a.next)
		a.next += a.eleSize + a.guardSize
	}
	a.allocated[va] = true
	a.mu.Release()

	if err := a.mapFn(va); err != nil {
		return 0, err
	}
	return va, nil
}

// Deallocate unmaps and recycles the slot at va.
func (a *LinearAllocator) Deallocate(va addr.VirtAddr) *errors.KernelError {
	a.mu.Acquire()
	if !a.allocated[va] {
		a.mu.Release()
		return &errNotAllocated
	}
	delete(a.allocated, va)
	a.recycled = append(a.recycled, va)
	a.mu.Release()

	return a.unmapFn(va)
}

// StackAllocator hands out variable-size stacks from a reserved region,
// each followed by a guard gap, caching freed stacks by size for reuse.
type StackAllocator struct {
	region    addr.VirtAddr
	regionLen uintptr
	guardSize uintptr
	mapFn     MapFunc
	unmapFn   MapFunc

	mu        sync.Spinlock
	next      uintptr
	allocated map[addr.VirtAddr]uintptr
	cached    map[uintptr][]addr.VirtAddr
}

// NewStackAllocator creates a stack allocator over region, rounding
// guardSize up to a whole number of pages.
func NewStackAllocator(region addr.VirtAddr, regionLen, guardSize uintptr, mapFn, unmapFn MapFunc) *StackAllocator {
	guardSize = roundUpPage(guardSize)
	return &StackAllocator{
		region:    region,
		regionLen: regionLen,
		guardSize: guardSize,
		mapFn:     mapFn,
		unmapFn:   unmapFn,
		next:      region.AsUintptr() - guardSize,
		allocated: map[addr.VirtAddr]uintptr{},
		cached:    map[uintptr][]addr.VirtAddr{},
	}
}

// Allocate reserves, maps and returns the top-of-stack address for a
// stack of the given size (rounded up to a page multiple).
func (a *StackAllocator) Allocate(size uintptr) (addr.VirtAddr, *errors.KernelError) {
	size = roundUpPage(size)

	a.mu.Acquire()
	var va addr.VirtAddr
	if cache := a.cached[size]; len(cache) > 0 {
		va = cache[0]
		a.cached[size] = cache[1:]
	} else {
		if a.next+size > a.region.AsUintptr()+a.regionLen {
			a.mu.Release()
			return 0, &errOutOfVirtSpace
		}
		va = addr.NewVirtAddr(a.next)
		a.next += size + a.guardSize
	}
	stackTop := va.Add(size + a.guardSize)
	a.allocated[stackTop] = size
	a.mu.Release()

	for off := uintptr(0); off < size; off += config.PageSize {
		if err := a.mapFn(va.Add(a.guardSize + off)); err != nil {
			return 0, err
		}
	}
	return stackTop, nil
}

// Deallocate unmaps and recycles the stack whose top-of-stack address is
// stackTop.
func (a *StackAllocator) Deallocate(stackTop addr.VirtAddr) *errors.KernelError {
	a.mu.Acquire()
	size, ok := a.allocated[stackTop]
	if !ok {
		a.mu.Release()
		return &errNotAllocated
	}
	delete(a.allocated, stackTop)
	va := addr.NewVirtAddr(stackTop.AsUintptr() - size - a.guardSize)
	a.cached[size] = append([]addr.VirtAddr{va}, a.cached[size]...)
	a.mu.Release()

	for off := uintptr(0); off < size; off += config.PageSize {
		if err := a.unmapFn(va.Add(a.guardSize + off)); err != nil {
			return err
		}
	}
	return nil
}
