// Package intercpu implements a per-CPU queue of deferred handlers used to
// run a closure on another hart: Create enqueues the handler on the target
// CPU's queue and rings its doorbell (a software interrupt, serviced by
// kernel/trap's HandleSoftwareInterrupt); the target later drains its
// queue and fires each handler in turn. Grounded on original_source's
// intercpu-event/src/lib.rs.
package intercpu

import (
	"rvpart/kernel"
	"rvpart/kernel/percpu"
	"rvpart/kernel/sync"
)

// Event is a single handler deferred to run on a specific CPU.
type Event struct {
	handler func()
}

// Fire invokes the deferred handler.
func (e Event) Fire() { e.handler() }

// Queue is a per-CPU FIFO of deferred events.
type Queue struct {
	mu    sync.Spinlock
	items []Event
}

func (q *Queue) add(e Event) {
	q.mu.Acquire()
	defer q.mu.Release()
	q.items = append(q.items, e)
}

// Pop removes and returns the oldest queued event, if any.
func (q *Queue) Pop() (Event, bool) {
	q.mu.Acquire()
	defer q.mu.Release()

	if len(q.items) == 0 {
		return Event{}, false
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e, true
}

var queues *percpu.Cell[Queue]

// Init allocates one event queue per CPU. Must be called after percpu.Init.
func Init() *kernel.Error {
	c, err := percpu.NewCell(func(int) Queue { return Queue{} })
	if err != nil {
		return err
	}
	queues = c
	return nil
}

// QueueForCurrentCPU returns the event queue owned by the calling CPU.
func QueueForCurrentCPU() *Queue { return queues.Current() }

func queueFor(cpuID int) (*Queue, *kernel.Error) { return queues.At(cpuID) }

// sendIPIFn rings the target CPU's doorbell (a software interrupt).
// Overridden with the real SBI/CLINT call once arch bring-up runs; left a
// no-op for tests, which observe delivery by draining the queue directly.
var sendIPIFn = func(cpuID int) {}

// SetSendIPIFunc overrides the inter-processor-interrupt sender used by
// Create.
func SetSendIPIFunc(fn func(cpuID int)) { sendIPIFn = fn }

// currentCPUIDFn resolves the id of the CPU running Create, so a same-CPU
// request can run its handler inline instead of round-tripping an IPI.
var currentCPUIDFn = percpu.CurrentCPU

// Create arranges for handler to run on the given CPU. If cpuID is the
// calling CPU, handler runs synchronously; otherwise it is queued on the
// target CPU and an IPI is sent to wake it.
func Create(cpuID int, handler func()) *kernel.Error {
	if cpuID == currentCPUIDFn() {
		handler()
		return nil
	}

	q, err := queueFor(cpuID)
	if err != nil {
		return err
	}
	q.add(Event{handler: handler})
	sendIPIFn(cpuID)
	return nil
}
