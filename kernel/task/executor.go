package task

import (
	"rvpart/kernel"
	"rvpart/kernel/addr"
	"rvpart/kernel/config"
	"rvpart/kernel/errors"
	"rvpart/kernel/task/fastpq"
)

// Status reflects whether an Executor still has runnable tasks.
type Status int

const (
	// StatusRunnable means the Executor's task queue may still contain
	// work.
	StatusRunnable Status = iota
	// StatusFinished means run() drained the task queue completely.
	StatusFinished
)

// Executor owns a priority-ordered task queue and cooperatively polls its
// tasks to completion. It is the bottom level of the three-level
// scheduler; Inspectors dispatch Executors, Runtimes dispatch Inspectors.
type Executor struct {
	id       ID
	priority Priority
	status   Status
	stackTop addr.VirtAddr

	registry map[ID]*Task
	queue    fastpq.LockedQueue[ID]
	wakers   map[ID]*Waker

	ext any
}

var errDuplicateTask = errors.KernelError("duplicate task id")

// NewExecutor creates an Executor already carrying rootTask, allocating it
// a dedicated kernel stack from the package's Executor stack allocator.
func NewExecutor(priority Priority, rootTask *Task) (*Executor, *kernel.Error) {
	stackTop, serr := executorStacks.Allocate(config.ExecutorStackSize)
	if serr != nil {
		return nil, &kernel.Error{Module: "task", Message: serr.Error()}
	}

	ex := &Executor{
		id:       allocID(),
		priority: priority,
		status:   StatusRunnable,
		stackTop: stackTop,
		registry: map[ID]*Task{},
		wakers:   map[ID]*Waker{},
	}
	_ = ex.Spawn(rootTask)
	return ex, nil
}

// NewExecutorWithExt behaves like NewExecutor but attaches ext (see SetExt)
// before returning, mirroring the original's Executor::new_with_ext.
func NewExecutorWithExt(priority Priority, rootTask *Task, ext any) (*Executor, *kernel.Error) {
	ex, err := NewExecutor(priority, rootTask)
	if err != nil {
		return nil, err
	}
	ex.SetExt(ext)
	return ex, nil
}

// StackTop returns the top-of-stack address of the Executor's kernel stack,
// used by the scheduling level to perform the context switch into it.
func (ex *Executor) StackTop() addr.VirtAddr { return ex.stackTop }

// Release returns the Executor's kernel stack to the allocator. Callers
// must ensure the Executor is no longer scheduled before calling this.
func (ex *Executor) Release() *kernel.Error {
	if err := executorStacks.Deallocate(ex.stackTop); err != nil {
		return &kernel.Error{Module: "task", Message: err.Error()}
	}
	return nil
}

// ID returns the Executor's identifier.
func (ex *Executor) ID() ID { return ex.id }

// Priority returns the Executor's scheduling priority.
func (ex *Executor) Priority() Priority { return ex.priority }

// Status reports whether the Executor's task queue has drained.
func (ex *Executor) Status() Status { return ex.status }

// Ext returns the extension value attached via SetExt, or nil if none was
// set. Partition/process code uses this to recover "the process running
// on this Executor" without the scheduler needing to know about them.
func (ex *Executor) Ext() any { return ex.ext }

// SetExt attaches an arbitrary extension value to the Executor.
func (ex *Executor) SetExt(v any) { ex.ext = v }

// HasPendingTasks reports whether the Executor still has tasks parked
// waiting on a Waker, even though its run queue is currently empty.
func (ex *Executor) HasPendingTasks() bool { return len(ex.registry) > 0 }

// Spawn registers a new task and enqueues it for its first poll.
func (ex *Executor) Spawn(t *Task) *kernel.Error {
	if _, exists := ex.registry[t.id]; exists {
		return &kernel.Error{Module: "task", Message: errDuplicateTask.Error()}
	}
	ex.registry[t.id] = t
	ex.queue.Enqueue(t.priority, t.id)
	return nil
}

// Run drains the task queue: for each dequeued (priority, task-id), it
// resolves the task, creates or reuses its waker, and polls the future. A
// task that returns Ready is removed from the registry and waker map; a
// Pending task is left in place, to be re-enqueued by its own waker.
func (ex *Executor) Run() {
	for {
		_, id, ok := ex.queue.Dequeue()
		if !ok {
			break
		}
		t, exists := ex.registry[id]
		if !exists {
			continue
		}

		w, exists := ex.wakers[id]
		if !exists {
			w = &Waker{enqueue: ex.queue.Enqueue, id: id, pri: t.priority}
			ex.wakers[id] = w
		}

		if ready := t.poll(w); ready {
			delete(ex.registry, id)
			delete(ex.wakers, id)
		}
	}
	ex.status = StatusFinished
}
