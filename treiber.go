// ©Veyron Labs 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// stackNode is immutable once linked: next is set before publication
// and never mutated again, so a hazard-protected reader may always
// follow it without additional synchronization.
type stackNode[T any] struct {
	value T
	next  *stackNode[T]
}

// Stack is a lock-free LIFO of linked nodes, coordinated by a private
// hazard-pointer domain (see hazard.go). It is the secondary container
// this package exposes — AdaptiveStack, which starts as a contiguous
// array and migrates to a Stack under contention, is the default choice
// for most callers.
//
// Stack is safe for concurrent use by any number of goroutines.
type Stack[T any] struct {
	head    atomic.Pointer[stackNode[T]]
	size    atomix.Int64
	hazards *hazardDomain[stackNode[T]]
}

// NewStack creates an empty Treiber stack.
func NewStack[T any]() *Stack[T] {
	return &Stack[T]{hazards: newHazardDomain[stackNode[T]](MaxHazardIdentities, stackHazardSlots)}
}

// Push adds value to the top of the stack.
func (s *Stack[T]) Push(value T) {
	s.linkNode(&stackNode[T]{value: value})
}

// Emplace constructs a value via build outside of any lock and pushes
// it, mirroring the source design's rule that value construction never
// happens while holding a lock.
func (s *Stack[T]) Emplace(build func() T) {
	s.linkNode(&stackNode[T]{value: build()})
}

func (s *Stack[T]) linkNode(n *stackNode[T]) {
	for {
		old := s.head.Load()
		n.next = old
		if s.head.CompareAndSwap(old, n) {
			s.size.AddAcqRel(1)
			return
		}
	}
}

// Pop removes and returns the top value. ok is false if the stack was
// observed empty.
func (s *Stack[T]) Pop() (value T, ok bool) {
	base := s.hazards.acquireGroup()
	defer s.hazards.releasePin()
	rec := s.hazards.record(base, 0)

	for {
		old := protect(rec, s.head.Load)
		if old == nil {
			return value, false
		}

		next := old.next
		if s.head.CompareAndSwap(old, next) {
			rec.pointer.Store(nil)
			s.size.AddAcqRel(-1)
			value = old.value
			s.hazards.retire(base, old)
			return value, true
		}
	}
}

// Top returns the value at the top of the stack without removing it.
func (s *Stack[T]) Top() (value T, ok bool) {
	base := s.hazards.acquireGroup()
	defer s.hazards.releasePin()
	rec := s.hazards.record(base, 0)
	defer rec.pointer.Store(nil)

	old := protect(rec, s.head.Load)
	if old == nil {
		return value, false
	}
	return old.value, true
}

// Empty reports whether the stack held no elements at some instant
// strictly preceding the call.
func (s *Stack[T]) Empty() bool {
	return s.head.Load() == nil
}

// Size returns an advisory element count; it is not linearizable with
// concurrent Push/Pop.
func (s *Stack[T]) Size() int {
	return int(s.size.LoadRelaxed())
}

// Leave releases hazard slots and retired-node references owned by the
// calling goroutine's current processor affinity in this stack. Call it
// before a long-lived worker goroutine that used this stack exits.
func (s *Stack[T]) Leave() {
	s.hazards.leaveCurrent()
}
