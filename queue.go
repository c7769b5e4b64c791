// ©Veyron Labs 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// queueNode's value is only ever observed through the predecessor's
// next pointer, never on the node currently serving as the dummy head —
// that node's value was already consumed when it was promoted from
// "first real" to "dummy" during the predecessor's Dequeue.
type queueNode[T any] struct {
	next  atomic.Pointer[queueNode[T]]
	value T
}

// Queue is a Michael-Scott lock-free FIFO: a dummy-head linked list with
// cooperative tail advancement, coordinated by a private hazard-pointer
// domain using two slots per identity (one for the node under
// examination, one for its successor).
//
// Queue is safe for concurrent use by any number of producer and
// consumer goroutines.
type Queue[T any] struct {
	head    atomic.Pointer[queueNode[T]]
	tail    atomic.Pointer[queueNode[T]]
	size    atomix.Int64
	hazards *hazardDomain[queueNode[T]]
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	dummy := &queueNode[T]{}
	q := &Queue[T]{hazards: newHazardDomain[queueNode[T]](MaxHazardIdentities, queueHazardSlots)}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// Enqueue appends value to the back of the queue.
func (q *Queue[T]) Enqueue(value T) {
	q.linkNode(&queueNode[T]{value: value})
}

// Emplace constructs a value via build outside of any lock and enqueues
// it.
func (q *Queue[T]) Emplace(build func() T) {
	q.linkNode(&queueNode[T]{value: build()})
}

// EnqueueAll enqueues each value in order.
func (q *Queue[T]) EnqueueAll(values []T) {
	for _, v := range values {
		q.Enqueue(v)
	}
}

func (q *Queue[T]) linkNode(n *queueNode[T]) {
	base := q.hazards.acquireGroup()
	defer q.hazards.releasePin()
	rec := q.hazards.record(base, 0)
	defer rec.pointer.Store(nil)

	for {
		tail := protect(rec, q.tail.Load)
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}

		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				q.tail.CompareAndSwap(tail, n)
				q.size.AddAcqRel(1)
				return
			}
			continue
		}

		// Tail is mid-advance from a stalled enqueuer; help it along.
		q.tail.CompareAndSwap(tail, next)
	}
}

// Dequeue removes and returns the value at the front of the queue. ok
// is false if the queue was observed empty.
func (q *Queue[T]) Dequeue() (value T, ok bool) {
	base := q.hazards.acquireGroup()
	defer q.hazards.releasePin()
	recHead := q.hazards.record(base, 0)
	recNext := q.hazards.record(base, 1)
	defer recHead.pointer.Store(nil)
	defer recNext.pointer.Store(nil)

	for {
		head := protect(recHead, q.head.Load)
		next := protect(recNext, head.next.Load)
		if head != q.head.Load() {
			continue
		}

		if next == nil {
			return value, false
		}

		tail := q.tail.Load()
		if head == tail {
			// Tail lags behind head->next; help advance it and retry.
			q.tail.CompareAndSwap(tail, next)
			continue
		}

		if q.head.CompareAndSwap(head, next) {
			q.size.AddAcqRel(-1)
			value = next.value
			var zero T
			next.value = zero // consumed; next is the new dummy
			q.hazards.retire(base, head)
			return value, true
		}
	}
}

// Front returns the value at the front of the queue without removing
// it.
func (q *Queue[T]) Front() (value T, ok bool) {
	base := q.hazards.acquireGroup()
	defer q.hazards.releasePin()
	recHead := q.hazards.record(base, 0)
	recNext := q.hazards.record(base, 1)
	defer recHead.pointer.Store(nil)
	defer recNext.pointer.Store(nil)

	for {
		head := protect(recHead, q.head.Load)
		next := protect(recNext, head.next.Load)
		if head != q.head.Load() {
			continue
		}
		if next == nil {
			return value, false
		}
		v := next.value
		if head != q.head.Load() {
			// next was dequeued during the copy; Dequeue may have zeroed it.
			continue
		}
		return v, true
	}
}

// Back returns the value most recently enqueued. Unlike Front, this
// walks the list from head to tail under hazard protection and is
// O(n); it is provided for completeness, not for hot-path use.
func (q *Queue[T]) Back() (value T, ok bool) {
	base := q.hazards.acquireGroup()
	defer q.hazards.releasePin()
	recCurr := q.hazards.record(base, 0)
	recNext := q.hazards.record(base, 1)
	defer recCurr.pointer.Store(nil)
	defer recNext.pointer.Store(nil)

	for {
		head := protect(recCurr, q.head.Load)
		curr := protect(recNext, head.next.Load)
		if head != q.head.Load() {
			continue
		}
		if curr == nil {
			return value, false
		}

		recCurr.pointer.Store(curr)
		recNext.pointer.Store(nil)

		for {
			next := curr.next.Load()
			if next == nil {
				return curr.value, true
			}
			recNext.pointer.Store(next)
			if curr.next.Load() != next {
				continue
			}
			curr = next
			recCurr.pointer.Store(curr)
			recNext.pointer.Store(nil)
		}
	}
}

// Empty reports whether the advisory size counter reads zero; like Size,
// it is not linearizable with concurrent Enqueue/Dequeue.
func (q *Queue[T]) Empty() bool {
	return q.size.LoadRelaxed() == 0
}

// Size returns an advisory element count; it is not linearizable with
// concurrent Enqueue/Dequeue.
func (q *Queue[T]) Size() int {
	return int(q.size.LoadRelaxed())
}

// Leave releases hazard slots and retired-node references owned by the
// calling goroutine's current processor affinity in this queue. Call it
// before a long-lived worker goroutine that used this queue exits.
func (q *Queue[T]) Leave() {
	q.hazards.leaveCurrent()
}
