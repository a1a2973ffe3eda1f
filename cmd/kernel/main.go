// Command kernel is the freestanding entry point: the single Go symbol an
// out-of-scope boot shim (spec.md §1's "early assembly boot shim") calls
// once it has dropped into supervisor mode on a single hart with a valid
// stack. Grounded on the teacher's kernel/kmain.go Kmain, which plays the
// same role for amd64/multiboot - adapted here from a multiboot info
// pointer to a RISC-V BootInfo value, since this module has no multiboot
// dependency.
package main

import (
	"rvpart/kernel"
	"rvpart/kernel/apex"
	"rvpart/kernel/cpu"
	"rvpart/kernel/driver/bootargs"
	"rvpart/kernel/intercpu"
	"rvpart/kernel/kfmt"
	"rvpart/kernel/partition"
	"rvpart/kernel/percpu"
	"rvpart/kernel/pmm"
	"rvpart/kernel/sched"
	"rvpart/kernel/syscall"
	"rvpart/kernel/task"
	"rvpart/kernel/vmminit"
)

// BootInfo is the boot-time platform description the shim hands to Kmain:
// the usable RAM regions, the kernel image's own footprint (so the frame
// allocator never hands out pages the kernel is resident in), and the
// number of harts booted into SMP mode. Discovering these values (parsing
// a flattened device tree, a handoff struct from an earlier-stage
// bootloader, etc.) is the boot shim's job and out of scope here, per
// spec.md §1.
type BootInfo struct {
	MemRegions  []pmm.MemRegion
	KernelStart uintptr
	KernelEnd   uintptr
	NumCPUs     int

	// BootArgs is the raw kernel command line, if the shim recovered one
	// (from a device tree chosen/bootargs node or similar). Parsed by
	// kernel/driver/bootargs during the driver-probe step below.
	BootArgs string
}

// Kmain brings up the process-wide kernel state in spec.md §9's order
// (heap → logging → per-CPU area → driver probe → VMM → per-CPU VMM
// enable → Runtime init → Runtime start) and never returns. kfmt's early
// ring-buffered console already covers logging before any TTY driver
// exists. Driver probe proper (device-tree walking, out of scope per
// spec.md §1) is a no-op; the only thing that step does here is dispatch
// the boot argument line via kernel/driver/bootargs.
//
//go:noinline
func Kmain(info *BootInfo) {
	pmm.SetMemoryMap(info.MemRegions, info.KernelStart, info.KernelEnd)
	kfmt.Printf("rvpart: %d usable memory region(s)\n", len(info.MemRegions))

	percpu.Init(info.NumCPUs)

	if err := intercpu.Init(); err != nil {
		kfmt.Printf("rvpart: intercpu init failed: %s\n", err.Error())
		cpu.Halt()
	}

	// Driver probe: device-tree walking and driver registration are out of
	// scope (spec.md §1), but the boot argument line the shim recovered
	// still gets parsed and dispatched here.
	bootargs.Set(info.BootArgs)
	bootargs.Execute()

	if err := vmminit.Init(); err != nil {
		kfmt.Printf("rvpart: VMM init failed: %s\n", err.Error())
		cpu.Halt()
	}

	if err := sched.InitRuntimes(); err != nil {
		kfmt.Printf("rvpart: runtime init failed: %s\n", err.Error())
		cpu.Halt()
	}

	syscall.Halt = cpu.Halt
	syscall.Install()

	kernelPartition, err := bootKernelPartition()
	if err != nil {
		kfmt.Printf("rvpart: kernel partition init failed: %s\n", err.Error())
		cpu.Halt()
	}

	kernelPartition.rt.Start()

	// Runtime.Start only returns once every Inspector it owns has fully
	// drained; on the boot hart that means the kernel partition's init
	// process ran to completion with nothing else scheduled.
	for {
		cpu.Halt()
	}
}

type bootPartition struct {
	rt *sched.Runtime
}

// bootKernelPartition creates the trusted kernel partition (APEX's
// implicit always-running system partition), its init process, and wires
// both into a fresh per-CPU Runtime. Grounded on a653/src/partition.rs's
// own bootstrap path, which performs the analogous "partition 0 is the
// kernel, scheduled like any other" setup before entering the Runtime
// loop.
func bootKernelPartition() (*bootPartition, *kernel.Error) {
	name, ok := apex.NewName("KERN")
	if !ok {
		return nil, &kernel.Error{Module: "cmd/kernel", Message: "partition name too long"}
	}

	entry := func() {
		kfmt.Printf("rvpart: kernel partition running\n")
	}

	p, err := partition.New(&partition.Config{
		Name:      name,
		NumCores:  1,
		Kind:      partition.KindKernel,
		KernEntry: entry,
	})
	if err != nil {
		return nil, err
	}

	proc, err := partition.NewInitProcess(p.ID())
	if err != nil {
		return nil, err
	}

	root, err := proc.GenExecutor(func(w *task.Waker) bool {
		entry()
		return true
	})
	if err != nil {
		return nil, err
	}

	is := p.GenInspector(root)
	rt := sched.NewRuntime(is)
	return &bootPartition{rt: rt}, nil
}

func main() {
	// Unreachable under a real freestanding boot: the linker script
	// points the hardware reset vector at the boot shim, which calls
	// Kmain directly and never returns through a Go main goroutine.
	// Defined so `cmd/kernel` is a valid, buildable Go command.
	for {
		cpu.Halt()
	}
}
