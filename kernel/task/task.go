// Package task implements the Executor scheduling level: tasks are
// cooperatively polled units of work dispatched from a 64-level priority
// queue, each with a Waker that re-enqueues it when it becomes
// runnable again. Grounded on original_source's multitask/src/{lib.rs,
// executor.rs}. Go has no analogue of Rust's pinned, poll-based Future, so
// a Task here wraps a plain poll closure that returns true once it has
// reached completion - the cooperative, priority-ordered dispatch contract
// the spec describes is unchanged.
package task

import (
	"sync/atomic"

	"rvpart/kernel/task/fastpq"
)

// ID identifies a task within its owning Executor.
type ID uint64

var nextID uint64

func allocID() ID { return ID(atomic.AddUint64(&nextID, 1)) }

// Priority is a task's scheduling priority (0 lowest, 63 highest).
type Priority = fastpq.Priority

// PollFunc is polled by the Executor's run loop. It returns true once the
// task has completed; a task that returns false must arrange for its Waker
// to be woken once it becomes runnable again, or it will never be polled
// again.
type PollFunc func(w *Waker) bool

// Task is a single schedulable unit of work.
type Task struct {
	id       ID
	priority Priority
	poll     PollFunc
}

// NewTask wraps poll as a schedulable Task at the given priority.
func NewTask(poll PollFunc, priority Priority) *Task {
	return &Task{id: allocID(), priority: priority, poll: poll}
}

// ID returns the task's identifier.
func (t *Task) ID() ID { return t.id }

// Waker re-enqueues its owning task into its Executor's run queue. It must
// be safe to call from any CPU (e.g. an interrupt handler completing I/O
// for another core's task).
type Waker struct {
	enqueue func(Priority, ID)
	id      ID
	pri     Priority
}

// Wake enqueues the owning task for another poll.
func (w *Waker) Wake() { w.enqueue(w.pri, w.id) }
