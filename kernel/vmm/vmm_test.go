package vmm

import (
	"testing"
	"unsafe"

	"rvpart/kernel/addr"
	"rvpart/kernel/pmm"
)

const testPages = 64

func withHostBackedMemory(t *testing.T) {
	t.Helper()

	buf := make([]byte, testPages*4096)
	ptrOf := func(pa addr.PhysAddr) unsafe.Pointer {
		off := pa.AsUintptr()
		return unsafe.Pointer(&buf[off])
	}

	origVmmPtr := ptrFn
	ptrFn = ptrOf
	pmm.SetPhysPointerFunc(ptrOf)

	pmm.SetMemoryMap([]pmm.MemRegion{{PhysAddress: 0, Length: uintptr(len(buf))}}, 0, 0)

	t.Cleanup(func() {
		ptrFn = origVmmPtr
	})
}

func TestMapLookupUnmap(t *testing.T) {
	withHostBackedMemory(t)

	pt, err := newEmpty()
	if err != nil {
		t.Fatalf("newEmpty: %v", err)
	}

	dataFrame, err := pmm.AllocFrame()
	if err != nil {
		t.Fatalf("AllocFrame: %v", err)
	}

	va := addr.NewVirtAddr(0x1000)
	if err := pt.Map(va, dataFrame, PermR|PermW); err != nil {
		t.Fatalf("Map: %v", err)
	}

	gotFrame, perm, err := pt.Lookup(va)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if gotFrame != dataFrame {
		t.Fatalf("expected frame %v; got %v", dataFrame, gotFrame)
	}
	if !perm.HasAll(PermR | PermW | PermV) {
		t.Fatalf("expected R|W|V permissions; got %v", perm)
	}

	if err := pt.Unmap(va); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if _, _, err := pt.Lookup(va); err != ErrInvalidVirtAddr {
		t.Fatalf("expected ErrInvalidVirtAddr after unmap; got %v", err)
	}
}

func TestLookupUnmapped(t *testing.T) {
	withHostBackedMemory(t)

	pt, err := newEmpty()
	if err != nil {
		t.Fatalf("newEmpty: %v", err)
	}

	if _, _, err := pt.Lookup(addr.NewVirtAddr(0x2000)); err != ErrInvalidVirtAddr {
		t.Fatalf("expected ErrInvalidVirtAddr; got %v", err)
	}
}

func TestTranslateAppliesPageOffset(t *testing.T) {
	withHostBackedMemory(t)

	pt, err := newEmpty()
	if err != nil {
		t.Fatalf("newEmpty: %v", err)
	}
	frame, err := pmm.AllocFrame()
	if err != nil {
		t.Fatalf("AllocFrame: %v", err)
	}
	va := addr.NewVirtAddr(0x3000)
	if err := pt.Map(va, frame, PermR); err != nil {
		t.Fatalf("Map: %v", err)
	}

	phys, _, err := pt.Translate(addr.NewVirtAddr(0x3048))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if exp := frame.Address().Add(0x48); phys != exp {
		t.Fatalf("expected %v; got %v", exp, phys)
	}
}

func TestGenerationAdvancesOnMapAndUnmap(t *testing.T) {
	withHostBackedMemory(t)

	pt, err := newEmpty()
	if err != nil {
		t.Fatalf("newEmpty: %v", err)
	}
	startGen := pt.Generation()

	frame, err := pmm.AllocFrame()
	if err != nil {
		t.Fatalf("AllocFrame: %v", err)
	}
	va := addr.NewVirtAddr(0x4000)
	if err := pt.Map(va, frame, PermR); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if pt.Generation() <= startGen {
		t.Fatal("expected generation to advance after Map")
	}

	genAfterMap := pt.Generation()
	if err := pt.Unmap(va); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if pt.Generation() <= genAfterMap {
		t.Fatal("expected generation to advance after Unmap")
	}
}

func TestSyncWithKernelCopiesUpperHalfOnce(t *testing.T) {
	withHostBackedMemory(t)

	kern, err := newEmpty()
	if err != nil {
		t.Fatalf("newEmpty (kern): %v", err)
	}
	SetKernelTable(kern)
	t.Cleanup(func() { SetKernelTable(nil) })

	kframe, err := pmm.AllocFrame()
	if err != nil {
		t.Fatalf("AllocFrame: %v", err)
	}
	// A kernel-half address: top bit of the index range.
	kernVA := addr.NewVirtAddr(^uintptr(0) &^ 0xfff)
	if err := kern.Map(kernVA, kframe, PermR|PermG); err != nil {
		t.Fatalf("kernel Map: %v", err)
	}

	child, err := newEmpty()
	if err != nil {
		t.Fatalf("newEmpty (child): %v", err)
	}
	child.SyncWithKernel()

	if _, _, err := child.Lookup(kernVA); err != nil {
		t.Fatalf("expected kernel half mapping visible after sync: %v", err)
	}

	genAfterSync := child.Generation()
	child.SyncWithKernel()
	if child.Generation() != genAfterSync {
		t.Fatal("expected a second SyncWithKernel with no kernel changes to be a no-op")
	}
}
