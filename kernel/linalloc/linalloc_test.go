package linalloc

import (
	"testing"

	"rvpart/kernel/addr"
	"rvpart/kernel/config"
	"rvpart/kernel/errors"
)

func trackingHooks() (mapFn, unmapFn MapFunc, mapped map[addr.VirtAddr]bool) {
	mapped = map[addr.VirtAddr]bool{}
	mapFn = func(va addr.VirtAddr) *errors.KernelError {
		mapped[va] = true
		return nil
	}
	unmapFn = func(va addr.VirtAddr) *errors.KernelError {
		delete(mapped, va)
		return nil
	}
	return
}

func TestLinearAllocatorRecyclesBeforeBumping(t *testing.T) {
	mapFn, unmapFn, mapped := trackingHooks()
	a := NewLinearAllocator(addr.NewVirtAddr(0x1000_0000), 16*config.PageSize, config.PageSize, config.PageSize, mapFn, unmapFn)

	first, err := a.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mapped[first] {
		t.Fatal("expected slot to be mapped")
	}

	second, err := a.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second == first {
		t.Fatal("expected distinct slots")
	}

	if err := a.Deallocate(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mapped[first] {
		t.Fatal("expected slot to be unmapped after deallocate")
	}

	third, err := a.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third != first {
		t.Fatalf("expected recycled slot %v; got %v", first, third)
	}
}

func TestLinearAllocatorExhaustion(t *testing.T) {
	mapFn, unmapFn, _ := trackingHooks()
	a := NewLinearAllocator(addr.NewVirtAddr(0x2000_0000), config.PageSize, config.PageSize, 0, mapFn, unmapFn)

	if _, err := a.Allocate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := a.Allocate(); err == nil {
		t.Fatal("expected exhaustion error")
	}
}

func TestLinearAllocatorDeallocateUnknown(t *testing.T) {
	mapFn, unmapFn, _ := trackingHooks()
	a := NewLinearAllocator(addr.NewVirtAddr(0x3000_0000), 4*config.PageSize, config.PageSize, 0, mapFn, unmapFn)
	if err := a.Deallocate(addr.NewVirtAddr(0xdead_0000)); err == nil {
		t.Fatal("expected error deallocating an address never allocated")
	}
}

func TestStackAllocatorMapsOnlyStackPagesNotGuard(t *testing.T) {
	mapFn, unmapFn, mapped := trackingHooks()
	region := addr.NewVirtAddr(0x4000_0000)
	a := NewStackAllocator(region, 64*config.PageSize, config.PageSize, mapFn, unmapFn)

	top, err := a.Allocate(2 * config.PageSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mapped) != 2 {
		t.Fatalf("expected 2 mapped pages; got %d", len(mapped))
	}

	guardPage := addr.NewVirtAddr(top.AsUintptr() - 2*config.PageSize - config.PageSize)
	if mapped[guardPage] {
		t.Fatal("guard page must not be mapped")
	}

	if err := a.Deallocate(top); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mapped) != 0 {
		t.Fatalf("expected all stack pages unmapped; got %d remaining", len(mapped))
	}
}

func TestStackAllocatorRecyclesBySize(t *testing.T) {
	mapFn, unmapFn, _ := trackingHooks()
	region := addr.NewVirtAddr(0x5000_0000)
	a := NewStackAllocator(region, 64*config.PageSize, config.PageSize, mapFn, unmapFn)

	top1, err := a.Allocate(config.PageSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Deallocate(top1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	top2, err := a.Allocate(config.PageSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if top2 != top1 {
		t.Fatalf("expected recycled stack at %v; got %v", top1, top2)
	}
}

func TestStackAllocatorExhaustion(t *testing.T) {
	mapFn, unmapFn, _ := trackingHooks()
	region := addr.NewVirtAddr(0x6000_0000)
	a := NewStackAllocator(region, 2*config.PageSize, config.PageSize, mapFn, unmapFn)

	if _, err := a.Allocate(4 * config.PageSize); err == nil {
		t.Fatal("expected exhaustion error when stack + guard exceeds region")
	}
}
