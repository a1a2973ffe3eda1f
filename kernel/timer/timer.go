// Package timer implements the per-CPU timed-event tracker: a registry of
// outstanding events plus a min-heap keyed on (deadline, id), used to back
// ARINC-653 deadlines and process time budgets. Grounded on
// original_source's timed-event/src/lib.rs (TimedEvent, TimedEventTracker,
// TimedEventQueue, the peek_outdated/update_timer contract, and the
// exactly-once retirement invariant).
package timer

import (
	"container/heap"
	"sync"
	"time"

	"rvpart/kernel/errors"
	percpu "rvpart/kernel/percpu"
)

// Handler bundles the closures fired on timeout or cancellation.
type Handler struct {
	Timeout func()
	Cancel  func()
}

type status int

const (
	statusPending status = iota
	statusTimeout
	statusCancelled
)

// Tracker is a handle to a single scheduled event.
type Tracker struct {
	id       uint64
	cpuID    int
	deadline time.Duration

	mu      sync.Mutex
	st      status
	handler Handler
}

// Retired reports whether the event has already fired or been cancelled.
func (t *Tracker) Retired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st != statusPending
}

func (t *Tracker) invoke(target status) *errors.KernelError {
	t.mu.Lock()
	if t.st != statusPending {
		t.mu.Unlock()
		return &errInvalidStatus
	}
	t.st = target
	h := t.handler
	t.mu.Unlock()

	if target == statusTimeout && h.Timeout != nil {
		h.Timeout()
	} else if target == statusCancelled && h.Cancel != nil {
		h.Cancel()
	}
	return nil
}

var errInvalidStatus = errors.KernelError("timed event already retired")

// Timeout removes the tracker from its owning queue and fires its timeout
// handler. Calling Timeout twice, or after cancellation, is an error.
func (t *Tracker) Timeout() *errors.KernelError {
	queueFor(t.cpuID).remove(t)
	return t.invoke(statusTimeout)
}

// Cancel removes the event from its owning queue and fires its cancel
// handler. Calling Cancel twice, or after the event has timed out, is an
// error.
func (t *Tracker) Cancel() *errors.KernelError {
	queueFor(t.cpuID).remove(t)
	return t.invoke(statusCancelled)
}

type item struct {
	deadline time.Duration
	id       uint64
}

type minHeap []item

func (h minHeap) Len() int { return len(h) }
func (h minHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].id < h[j].id
}
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(item)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// Queue is the per-CPU registry + deadline heap.
type Queue struct {
	mu       sync.Mutex
	registry map[uint64]*Tracker
	heap     minHeap

	// programTimerFn is called whenever the earliest deadline changes, so
	// the arch layer can reprogram the hardware timer. It is installed
	// with SetProgramTimerFunc; while it is nil (nothing in this tree
	// installs one) updateTimer does nothing. Mirrors update_timer's
	// hal!().cpu().set_timer call.
	programTimerFn func(time.Duration)
}

var (
	nextID uint64
	idMu   sync.Mutex

	queues *percpu.Cell[Queue]
)

// Init installs the per-CPU queues. Must be called after percpu.Init.
func Init() {
	queues, _ = percpu.NewCell(func(int) Queue {
		return Queue{registry: map[uint64]*Tracker{}}
	})
}

func queueFor(cpuID int) *Queue {
	q, err := queues.At(cpuID)
	if err != nil {
		panic(err)
	}
	return q
}

// SetProgramTimerFunc overrides the hardware-timer reprogramming hook for
// the given CPU's queue.
func (q *Queue) SetProgramTimerFunc(fn func(time.Duration)) { q.programTimerFn = fn }

func allocID() uint64 {
	idMu.Lock()
	defer idMu.Unlock()
	nextID++
	return nextID
}

// Create schedules a new event at the given absolute deadline on the
// current CPU, installing handler to be invoked on timeout or cancel.
func Create(deadline time.Duration, handler Handler) *Tracker {
	cpuID := percpu.CurrentCPU()
	t := &Tracker{id: allocID(), cpuID: cpuID, deadline: deadline, handler: handler}
	q := queueFor(cpuID)
	q.add(t)
	return t
}

func (q *Queue) add(t *Tracker) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.registry[t.id] = t
	heap.Push(&q.heap, item{deadline: t.deadline, id: t.id})
	q.updateTimer()
}

func (q *Queue) remove(t *Tracker) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.registry[t.id]; !ok {
		return
	}
	delete(q.registry, t.id)
	for i, it := range q.heap {
		if it.id == t.id {
			heap.Remove(&q.heap, i)
			break
		}
	}
	q.updateTimer()
}

// peek returns the tracker with the earliest deadline, without removing it.
func (q *Queue) peek() *Tracker {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return nil
	}
	return q.registry[q.heap[0].id]
}

// PeekOutdated returns the earliest-deadline tracker if its deadline has
// already elapsed relative to now, or nil otherwise.
func (q *Queue) PeekOutdated(now time.Duration) *Tracker {
	t := q.peek()
	if t == nil || t.deadline > now {
		return nil
	}
	return t
}

func (q *Queue) updateTimer() {
	if q.programTimerFn == nil {
		return
	}
	if len(q.heap) == 0 {
		q.programTimerFn(time.Duration(1<<63 - 1))
		return
	}
	q.programTimerFn(q.heap[0].deadline)
}

// QueueForCurrentCPU returns the timer queue owned by the calling CPU.
func QueueForCurrentCPU() *Queue { return queueFor(percpu.CurrentCPU()) }

// FireExpired is the timer-interrupt handler's driving loop: it repeatedly
// retires the earliest-deadline event whose deadline has elapsed, until
// none remain.
func FireExpired(now time.Duration) {
	q := QueueForCurrentCPU()
	for {
		t := q.PeekOutdated(now)
		if t == nil {
			return
		}
		_ = t.Timeout()
	}
}
