package task

import (
	"rvpart/kernel/addr"
	"rvpart/kernel/config"
	"rvpart/kernel/errors"
	"rvpart/kernel/linalloc"
	"rvpart/kernel/pmm"
	"rvpart/kernel/vmm"
)

// stackGuardSize is the size of the unmapped guard gap below each Executor
// kernel stack, large enough to reliably trap a stack overflow on first
// touch.
const stackGuardSize = config.PageSize

func noopMap(addr.VirtAddr) *errors.KernelError   { return nil }
func noopUnmap(addr.VirtAddr) *errors.KernelError { return nil }

// executorStacks carves Executor kernel stacks out of config.ExecutorStackRegion.
// It starts as a no-op allocator so Executors can run in host unit tests
// without a real kernel page table; SetExecutorStackAllocator installs the
// page-table-backed version once one is available.
var executorStacks = linalloc.NewStackAllocator(
	addr.NewVirtAddr(config.ExecutorStackRegion.Addr),
	config.ExecutorStackRegion.Len,
	stackGuardSize,
	noopMap,
	noopUnmap,
)

// SetExecutorStackAllocator replaces the Executor stack allocator with one
// backed by pt, allocating and mapping real kernel stack pages on demand.
func SetExecutorStackAllocator(pt *vmm.PageTable) {
	executorStacks = linalloc.NewStackAllocator(
		addr.NewVirtAddr(config.ExecutorStackRegion.Addr),
		config.ExecutorStackRegion.Len,
		stackGuardSize,
		func(va addr.VirtAddr) *errors.KernelError {
			frame, ferr := pmm.AllocFrame()
			if ferr != nil {
				e := errors.KernelError(ferr.Message)
				return &e
			}
			if kerr := pt.Map(va, frame, vmm.PermR|vmm.PermW); kerr != nil {
				e := errors.KernelError(kerr.Message)
				return &e
			}
			return nil
		},
		func(va addr.VirtAddr) *errors.KernelError {
			if kerr := pt.Unmap(va); kerr != nil {
				e := errors.KernelError(kerr.Message)
				return &e
			}
			return nil
		},
	)
}
