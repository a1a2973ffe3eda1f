// Package sched implements the Inspector and Runtime scheduling levels:
// Inspectors multiplex a set of Executors, and the per-CPU Runtime
// multiplexes a set of Inspectors. Grounded on original_source's
// multitask/src/{inspector.rs,runtime.rs}.
//
// The original dispatches by switching the hardware stack pointer between
// dedicated Runtime/Inspector/Executor stacks (arch::switch), so that an
// Executor's run loop can itself block mid-poll and hand control back up
// without unwinding its call stack. kernel/task already removed that need
// one level down, by turning a Task's unit of work into a plain poll
// closure instead of a pinned Future; the same substitution applies here.
// An Inspector's "switch into executor" step is simply a direct call to
// Executor.Run, which already returns control as soon as its task queue
// has nothing left to do right now - there is no call-stack state that
// needs preserving across the switch.
package sched

import (
	"sync/atomic"

	"rvpart/kernel"
	"rvpart/kernel/sync"
	"rvpart/kernel/task"
	"rvpart/kernel/task/fastpq"
)

// InspectorID identifies an Inspector within its owning Runtime.
type InspectorID = task.ID

// InspectorStatusKind distinguishes the phases of InspectorStatus.
type InspectorStatusKind int

const (
	// InspectorIdle means the Inspector has no Executor currently
	// switched in.
	InspectorIdle InspectorStatusKind = iota
	// InspectorRunning means the named Executor is currently switched in.
	InspectorRunning
	// InspectorPending means a higher-priority event asked the Inspector
	// to yield back to the Runtime after its current Executor turn ends.
	InspectorPending
)

// InspectorStatus is an Inspector's current dispatch state.
type InspectorStatus struct {
	Kind       InspectorStatusKind
	ExecutorID task.ID
}

var (
	errInvalidInspectorStatus = &kernel.Error{Module: "sched", Message: "invalid inspector status for this operation"}
	errDuplicateExecutorID    = &kernel.Error{Module: "sched", Message: "duplicate executor id"}
	errInvalidExecutorID      = &kernel.Error{Module: "sched", Message: "unknown executor id"}
)

// Inspector owns a priority-ordered set of Executors and dispatches them
// one at a time.
type Inspector struct {
	id InspectorID

	mu     sync.Spinlock
	status InspectorStatus

	schedMu  sync.Spinlock
	registry map[task.ID]*task.Executor
	queue    fastpq.LockedQueue[task.ID]

	ext any
}

// NewInspector creates an Inspector already carrying rootExecutor.
func NewInspector(rootExecutor *task.Executor) *Inspector {
	is := &Inspector{
		id:       task.ID(allocInspectorID()),
		registry: map[task.ID]*task.Executor{},
	}
	_ = is.Register(rootExecutor)
	return is
}

// NewInspectorWithExt behaves like NewInspector but attaches ext (see
// SetExt) before returning, mirroring the original's
// Inspector::new_with_ext.
func NewInspectorWithExt(rootExecutor *task.Executor, ext any) *Inspector {
	is := NewInspector(rootExecutor)
	is.SetExt(ext)
	return is
}

// ID returns the Inspector's identifier.
func (is *Inspector) ID() InspectorID { return is.id }

// Ext returns the extension value attached via SetExt, or nil if none was
// set. Partition code uses this to recover "the partition running on this
// Inspector" without the scheduler needing to know about partitions.
func (is *Inspector) Ext() any { return is.ext }

// SetExt attaches an arbitrary extension value to the Inspector.
func (is *Inspector) SetExt(v any) { is.ext = v }

// CurrentExecutor returns the Executor currently switched in, if any.
func (is *Inspector) CurrentExecutor() (*task.Executor, bool) {
	status := is.Status()
	if status.Kind != InspectorRunning && status.Kind != InspectorPending {
		return nil, false
	}

	is.schedMu.Acquire()
	defer is.schedMu.Release()
	ex, ok := is.registry[status.ExecutorID]
	return ex, ok
}

// Status returns the Inspector's current dispatch state.
func (is *Inspector) Status() InspectorStatus {
	is.mu.Acquire()
	defer is.mu.Release()
	return is.status
}

// IsEmpty reports whether the Inspector has no registered Executors left.
func (is *Inspector) IsEmpty() bool {
	is.schedMu.Acquire()
	defer is.schedMu.Release()
	return len(is.registry) == 0
}

// MarkPending asks a currently-running Inspector to yield back to its
// Runtime once the in-flight Executor turn completes.
func (is *Inspector) MarkPending() *kernel.Error {
	is.mu.Acquire()
	defer is.mu.Release()

	if is.status.Kind == InspectorIdle {
		return errInvalidInspectorStatus
	}
	if is.status.Kind == InspectorRunning {
		is.status.Kind = InspectorPending
	}
	return nil
}

// Register adds executor to the Inspector's dispatch set.
func (is *Inspector) Register(executor *task.Executor) *kernel.Error {
	is.schedMu.Acquire()
	defer is.schedMu.Release()

	if _, exists := is.registry[executor.ID()]; exists {
		return errDuplicateExecutorID
	}
	is.registry[executor.ID()] = executor
	is.queue.Enqueue(executor.Priority(), executor.ID())
	return nil
}

// Unregister removes an Executor from the dispatch set.
func (is *Inspector) Unregister(id task.ID) *kernel.Error {
	is.schedMu.Acquire()
	defer is.schedMu.Release()

	if _, exists := is.registry[id]; !exists {
		return errInvalidExecutorID
	}
	delete(is.registry, id)
	return nil
}

func (is *Inspector) dequeue() (task.ID, bool) {
	_, id, ok := is.queue.Dequeue()
	return id, ok
}

func (is *Inspector) enqueue(id task.ID) *kernel.Error {
	is.schedMu.Acquire()
	ex, exists := is.registry[id]
	is.schedMu.Release()
	if !exists {
		return errInvalidExecutorID
	}
	is.queue.Enqueue(ex.Priority(), id)
	return nil
}

func (is *Inspector) setCurrent(id *task.ID) {
	is.mu.Acquire()
	defer is.mu.Release()

	if id != nil {
		is.status = InspectorStatus{Kind: InspectorRunning, ExecutorID: *id}
	} else if is.status.Kind == InspectorRunning || is.status.Kind == InspectorPending {
		is.status = InspectorStatus{Kind: InspectorIdle}
	}
}

// Run dispatches registered Executors until the queue is empty or a
// pending request asks the Inspector to yield back to the Runtime. It
// reports whether the Inspector's own registry has fully drained.
// Executors left with parked tasks stay registered and are re-enqueued
// once this pass returns, ready for the next Run after a waker fires.
func (is *Inspector) Run() (finished bool) {
	var parked []task.ID
	defer func() {
		for _, id := range parked {
			_ = is.enqueue(id)
		}
	}()
	for {
		id, ok := is.dequeue()
		if !ok {
			return is.IsEmpty()
		}

		is.setCurrent(&id)

		is.schedMu.Acquire()
		executor := is.registry[id]
		is.schedMu.Release()

		executor.Run()

		is.setCurrent(nil)

		stillHasWork := executor.HasPendingTasks()

		if !stillHasWork {
			_ = is.Unregister(id)
		} else {
			parked = append(parked, id)
		}

		if is.Status().Kind == InspectorPending {
			return is.IsEmpty()
		}
	}
}

var nextInspectorID uint64

func allocInspectorID() uint64 {
	return atomic.AddUint64(&nextInspectorID, 1)
}
