// Package percpu provides per-CPU storage cells. The original kernel
// replicates a `.percpu` linker-script template into one contiguous area
// per core (see original_source's percpu/src/lib.rs: global_area_base,
// local_area_size, init). Go has no equivalent linker-section template, so
// this package reproduces the same "one independent copy per core"
// contract with a generic slice-backed Cell, following the teacher's
// kernel/goruntime/bootstrap.go convention of keeping arch bring-up state
// in a small set of package-level vars guarded by explicit Init calls.
package percpu

import "rvpart/kernel"

var (
	errNotInitialized = &kernel.Error{Module: "percpu", Message: "percpu area not initialized"}
	errBadCPU         = &kernel.Error{Module: "percpu", Message: "cpu id out of range"}

	nproc int

	// currentCPUFn resolves the executing CPU's id. Overridden by the
	// scheduler bring-up code with the arch-specific hart-id read, and
	// left at a single-CPU default for tests.
	currentCPUFn = func() int { return 0 }
)

// Init installs the number of CPUs the kernel is bringing up. Every Cell
// created afterwards replicates its zero (or constructor-built) value once
// per CPU, mirroring percpu::init's copy_nonoverlapping loop.
func Init(numCPUs int) { nproc = numCPUs }

// NumCPU returns the number of CPUs percpu was initialized for.
func NumCPU() int { return nproc }

// SetCurrentCPUFunc overrides the hart-id resolver used by Cell.Current.
func SetCurrentCPUFunc(fn func() int) { currentCPUFn = fn }

// CurrentCPU returns the id of the CPU executing this call.
func CurrentCPU() int { return currentCPUFn() }

// Cell is a per-CPU storage slot for a value of type T.
type Cell[T any] struct {
	values []T
}

// NewCell allocates one T per CPU, each initialized by calling newFn(cpuID).
func NewCell[T any](newFn func(cpuID int) T) (*Cell[T], *kernel.Error) {
	if nproc == 0 {
		return nil, errNotInitialized
	}
	c := &Cell[T]{values: make([]T, nproc)}
	for i := range c.values {
		c.values[i] = newFn(i)
	}
	return c, nil
}

// At returns a pointer to the slot belonging to the given CPU.
func (c *Cell[T]) At(cpuID int) (*T, *kernel.Error) {
	if cpuID < 0 || cpuID >= len(c.values) {
		return nil, errBadCPU
	}
	return &c.values[cpuID], nil
}

// Current returns a pointer to the slot belonging to the executing CPU.
func (c *Cell[T]) Current() *T {
	v, err := c.At(CurrentCPU())
	if err != nil {
		panic(err)
	}
	return v
}
