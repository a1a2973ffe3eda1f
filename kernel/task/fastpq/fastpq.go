// Package fastpq implements the 64-level bitmap-indexed priority queue
// shared by the Executor, Inspector and Runtime scheduling levels: a
// 64-bit occupancy bitmap over an array of FIFOs, giving O(1) enqueue and
// highest-priority dequeue. Grounded on original_source's
// util/src/fastpq.rs (FastPriority, FastPriorityQueue,
// FastPriorityQueueWithLock).
package fastpq

import "rvpart/kernel/sync"

// NumLevels is the number of distinct priority levels.
const NumLevels = 64

// MaxPriority is the highest valid priority value.
const MaxPriority = NumLevels - 1

// Priority is one of the 64 discrete scheduling priorities. 0 is lowest,
// 63 is highest.
type Priority uint8

// Queue is a priority-ordered FIFO-of-FIFOs keyed by a bitmap of occupied
// levels. Item is left generic so Executors, Inspectors and the Runtime can
// each queue their own identifier type.
type Queue[I any] struct {
	bits  uint64
	fifos [NumLevels][]I
}

// Enqueue appends item to the FIFO for the given priority and marks that
// level occupied.
func (q *Queue[I]) Enqueue(priority Priority, item I) {
	q.bits |= 1 << uint(priority)
	q.fifos[priority] = append(q.fifos[priority], item)
}

// Dequeue removes and returns the front item of the highest occupied
// priority level. The second return value is false if the queue is empty.
func (q *Queue[I]) Dequeue() (Priority, I, bool) {
	var zero I
	if q.bits == 0 {
		return 0, zero, false
	}
	highest := Priority(63 - leadingZeros64(q.bits))
	fifo := q.fifos[highest]
	item := fifo[0]
	q.fifos[highest] = fifo[1:]
	if len(q.fifos[highest]) == 0 {
		q.bits &^= 1 << uint(highest)
	}
	return highest, item, true
}

// Empty reports whether the queue currently holds no items.
func (q *Queue[I]) Empty() bool { return q.bits == 0 }

func leadingZeros64(x uint64) uint8 {
	var n uint8
	for i := 63; i >= 0; i-- {
		if x&(1<<uint(i)) != 0 {
			break
		}
		n++
	}
	return n
}

// LockedQueue wraps Queue with a spinlock for use from concurrent wakers.
type LockedQueue[I any] struct {
	mu sync.Spinlock
	q  Queue[I]
}

// Enqueue is the locked equivalent of Queue.Enqueue.
func (l *LockedQueue[I]) Enqueue(priority Priority, item I) {
	l.mu.Acquire()
	defer l.mu.Release()
	l.q.Enqueue(priority, item)
}

// Dequeue is the locked equivalent of Queue.Dequeue.
func (l *LockedQueue[I]) Dequeue() (Priority, I, bool) {
	l.mu.Acquire()
	defer l.mu.Release()
	return l.q.Dequeue()
}
