// Package vmminit builds and activates the KERN master page table: the
// process-wide table every partition's PageTable clones its kernel half
// from and periodically re-syncs against (pt_sync). Grounded on
// original_source's paging/src/arch/riscv/boot.rs (BootPageTable::init/
// start) and the teacher's kernel/mm/vmm/pdt.go setupPDTForKernel, which
// plays the same "allocate a fresh root, map the kernel's required
// regions, install it as the active table" role for amd64.
//
// The original builds BootPageTable directly out of a static asm-reserved
// page and switches to it with a bare satp write before any Go-level (Rust,
// there) allocator exists. This repo's boot handoff already has pmm
// initialized by the time vmminit runs (see cmd/kernel's init order), so
// Init builds KERN the same way any other kernel/vmm.PageTable is built:
// through pmm.AllocFrame + PageTable.Map.
package vmminit

import (
	"rvpart/kernel"
	"rvpart/kernel/addr"
	"rvpart/kernel/config"
	"rvpart/kernel/cpu"
	"rvpart/kernel/pmm"
	"rvpart/kernel/vmm"
)

func encodeSatp(root uintptr) uintptr {
	return (config.SatpMode << config.SatpModeShift) | (root >> config.PageShift)
}

func init() {
	vmm.SetActivateFunc(func(pt *vmm.PageTable) {
		cpu.WriteSatp(encodeSatp(pt.Root().AsUintptr()))
	})
}

// Init builds the KERN master table, direct-mapping
// [config.PhysMemBase, config.PhysMemBase+config.DirectMapSize) into the
// kernel's virtual direct-map window, installs it as the active kernel
// table, and activates it on the calling CPU. Must run after pmm's memory
// map is known and before any partition's PageTable is created, matching
// spec.md §9's "... → VMM → per-CPU VMM enable → ...".
func Init() *kernel.Error {
	pt, err := vmm.New()
	if err != nil {
		return err
	}

	for off := uintptr(0); off < config.DirectMapSize; off += config.PageSize {
		pa := addr.NewPhysAddr(config.PhysMemBase + off)
		va := addr.NewVirtAddr(pa.ToVirt().AsUintptr())
		frame := pmm.FrameFromAddress(pa)
		if err := pt.Map(va, frame, vmm.PermR|vmm.PermW); err != nil {
			return err
		}
	}

	vmm.SetKernelTable(pt)
	pt.Activate()
	return nil
}

// EnableOnThisCPU re-activates the installed KERN table on the calling
// CPU. Called once per secondary hart after it comes up, mirroring
// spec.md §9's "per-CPU VMM enable" step - every hart must load the same
// satp value before it can run kernel code that depends on KERN's
// mappings.
func EnableOnThisCPU() *kernel.Error {
	pt := vmm.KernelTable()
	if pt == nil {
		return &kernel.Error{Module: "vmminit", Message: "KERN not initialized"}
	}
	pt.Activate()
	return nil
}
