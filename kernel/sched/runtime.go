package sched

import (
	"rvpart/kernel"
	"rvpart/kernel/percpu"
	"rvpart/kernel/sync"
)

// RuntimeStatusKind distinguishes the phases of RuntimeStatus.
type RuntimeStatusKind int

const (
	// RuntimeInit means the Runtime has not yet started dispatching.
	RuntimeInit RuntimeStatusKind = iota
	// RuntimeIdle means the Runtime has no Inspector currently switched in.
	RuntimeIdle
	// RuntimeRunning means the named Inspector is currently switched in.
	RuntimeRunning
)

// RuntimeStatus is a Runtime's current dispatch state.
type RuntimeStatus struct {
	Kind        RuntimeStatusKind
	InspectorID InspectorID
}

var (
	errDuplicateInspectorID = &kernel.Error{Module: "sched", Message: "duplicate inspector id"}
	errInvalidInspectorID   = &kernel.Error{Module: "sched", Message: "unknown inspector id"}
	errRuntimeNotRunning    = &kernel.Error{Module: "sched", Message: "runtime has no inspector currently running"}
)

// Runtime is the per-CPU top level of the scheduler: it multiplexes a
// round-robin set of Inspectors, each of which multiplexes a set of
// Executors. Grounded on original_source's multitask/src/runtime.rs; one
// Runtime exists per hart, mirroring the #[percpu] static there.
type Runtime struct {
	mu     sync.Spinlock
	status RuntimeStatus

	registry map[InspectorID]*Inspector
	queue    []InspectorID
}

var runtimes *percpu.Cell[*Runtime]

// InitRuntimes allocates one (uninitialized) Runtime slot per CPU. Must be
// called after percpu.Init.
func InitRuntimes() *kernel.Error {
	c, err := percpu.NewCell(func(int) *Runtime { return nil })
	if err != nil {
		return err
	}
	runtimes = c
	return nil
}

// NewRuntime creates a Runtime carrying rootInspector and installs it as
// the current CPU's runtime.
func NewRuntime(rootInspector *Inspector) *Runtime {
	rt := &Runtime{
		status:   RuntimeStatus{Kind: RuntimeInit},
		registry: map[InspectorID]*Inspector{},
	}
	_ = rt.RegisterInspector(rootInspector)
	*runtimes.Current() = rt
	return rt
}

// Current returns the current CPU's Runtime, or nil if none was installed.
func Current() *Runtime {
	return *runtimes.Current()
}

// CurrentInspector returns the Inspector currently switched in, if any.
func (rt *Runtime) CurrentInspector() (*Inspector, bool) {
	rt.mu.Acquire()
	running := rt.status.Kind == RuntimeRunning
	id := rt.status.InspectorID
	rt.mu.Release()
	if !running {
		return nil, false
	}

	rt.mu.Acquire()
	defer rt.mu.Release()
	is, ok := rt.registry[id]
	return is, ok
}

// RegisterInspector adds is to the Runtime's round-robin set.
func (rt *Runtime) RegisterInspector(is *Inspector) *kernel.Error {
	rt.mu.Acquire()
	defer rt.mu.Release()

	if _, exists := rt.registry[is.ID()]; exists {
		return errDuplicateInspectorID
	}
	rt.registry[is.ID()] = is
	rt.queue = append(rt.queue, is.ID())
	return nil
}

// UnregisterInspector removes an Inspector from the Runtime.
func (rt *Runtime) UnregisterInspector(id InspectorID) *kernel.Error {
	rt.mu.Acquire()
	defer rt.mu.Release()

	if _, exists := rt.registry[id]; !exists {
		return errInvalidInspectorID
	}
	delete(rt.registry, id)
	return nil
}

// SetInspectorSwitchPending marks the currently-running Inspector as
// pending, so its Run loop yields back after the in-flight Executor turn.
func (rt *Runtime) SetInspectorSwitchPending() *kernel.Error {
	rt.mu.Acquire()
	if rt.status.Kind != RuntimeRunning {
		rt.mu.Release()
		return errRuntimeNotRunning
	}
	id := rt.status.InspectorID
	is := rt.registry[id]
	rt.mu.Release()

	return is.MarkPending()
}

func (rt *Runtime) popInspector() (InspectorID, bool) {
	rt.mu.Acquire()
	defer rt.mu.Release()

	if len(rt.queue) == 0 {
		var zero InspectorID
		return zero, false
	}
	id := rt.queue[0]
	rt.queue = rt.queue[1:]
	return id, true
}

func (rt *Runtime) pushInspector(id InspectorID) *kernel.Error {
	rt.mu.Acquire()
	defer rt.mu.Release()

	if _, exists := rt.registry[id]; !exists {
		return errInvalidInspectorID
	}
	rt.queue = append(rt.queue, id)
	return nil
}

func (rt *Runtime) setCurrentInspector(id *InspectorID) {
	rt.mu.Acquire()
	defer rt.mu.Release()

	if id != nil {
		rt.status = RuntimeStatus{Kind: RuntimeRunning, InspectorID: *id}
	} else {
		rt.status = RuntimeStatus{Kind: RuntimeIdle}
	}
}

// Status returns the Runtime's current dispatch state.
func (rt *Runtime) Status() RuntimeStatus {
	rt.mu.Acquire()
	defer rt.mu.Release()
	return rt.status
}

// Start dispatches every registered Inspector in round-robin turns until
// all of them have fully drained. It never returns in the original (the
// hart halts instead); here it returns once the registry is empty, leaving
// any halt/idle decision to the caller.
func (rt *Runtime) Start() {
	for {
		id, ok := rt.popInspector()
		if !ok {
			break
		}

		rt.setCurrentInspector(&id)

		rt.mu.Acquire()
		is := rt.registry[id]
		rt.mu.Release()

		finished := is.Run()

		rt.setCurrentInspector(nil)

		if finished {
			_ = rt.UnregisterInspector(id)
		} else {
			_ = rt.pushInspector(id)
		}
	}
}
