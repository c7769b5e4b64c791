// ©Veyron Labs 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"sync"

	"code.hybscloud.com/atomix"
)

const (
	// defaultThreadThreshold is the concurrent-active-operation count
	// that starts counting toward promotion (§4.E THREAD_THRESHOLD).
	defaultThreadThreshold = 3
	// defaultStreakThreshold is the number of consecutive
	// threshold-crossing observations that latch a promotion request
	// (§4.E STREAK_THRESHOLD).
	defaultStreakThreshold = 64

	minThreadThreshold = 2
	minStreakThreshold = 1
)

// AdaptiveStack is a LIFO that starts as a cache-friendly, spinlock-
// guarded contiguous buffer and, upon detecting sustained contention,
// migrates once and irreversibly into a lock-free Stack. It is the
// default container this package exposes; Stack remains available
// directly for callers who always want the linked representation.
//
// The migration ("promotion") is triggered heuristically from
// concurrent-operation counts observed on entry to every mutating
// call, and is guarded end-to-end by an exclusive mode lock so no
// other operation ever observes a half-migrated state.
//
// AdaptiveStack is safe for concurrent use by any number of goroutines.
type AdaptiveStack[T any] struct {
	modeLock sync.RWMutex

	arrayLock Spinlock
	arrayData []T

	linked *Stack[T]

	usingCAS atomix.Bool

	activeOps          atomix.Int64
	contentionStreak   atomix.Int64
	promotionRequested atomix.Bool

	threadThreshold int64
	streakThreshold int64
}

// NewAdaptiveStack creates an adaptive stack with default contention
// tuning and no reserved array capacity.
func NewAdaptiveStack[T any]() *AdaptiveStack[T] {
	return newAdaptiveStack[T](0, defaultThreadThreshold, defaultStreakThreshold)
}

// NewAdaptiveStackWithReserve creates an adaptive stack whose array-mode
// buffer starts with capacity for reserveHint elements.
func NewAdaptiveStackWithReserve[T any](reserveHint int) *AdaptiveStack[T] {
	return newAdaptiveStack[T](reserveHint, defaultThreadThreshold, defaultStreakThreshold)
}

// NewAdaptiveStackTuned creates an adaptive stack with explicit
// contention tuning. threadThreshold is clamped to at least 2;
// streakThreshold is clamped to at least 1.
func NewAdaptiveStackTuned[T any](reserveHint, threadThreshold, streakThreshold int) *AdaptiveStack[T] {
	return newAdaptiveStack[T](reserveHint, threadThreshold, streakThreshold)
}

func newAdaptiveStack[T any](reserveHint, threadThreshold, streakThreshold int) *AdaptiveStack[T] {
	if threadThreshold < minThreadThreshold {
		threadThreshold = minThreadThreshold
	}
	if streakThreshold < minStreakThreshold {
		streakThreshold = minStreakThreshold
	}

	s := &AdaptiveStack[T]{
		linked:          NewStack[T](),
		threadThreshold: int64(threadThreshold),
		streakThreshold: int64(streakThreshold),
	}
	if reserveHint > 0 {
		s.arrayData = make([]T, 0, reserveHint)
	}
	return s
}

// activeOperationScope tracks one in-flight mutating operation for
// contention observation. Callers must defer end() immediately after
// obtaining a scope.
type activeOperationScope[T any] struct {
	stack *AdaptiveStack[T]
}

func beginOperation[T any](s *AdaptiveStack[T]) activeOperationScope[T] {
	active := s.activeOps.AddAcqRel(1)
	s.observeContention(active)
	return activeOperationScope[T]{stack: s}
}

func (o activeOperationScope[T]) end() {
	o.stack.activeOps.AddAcqRel(-1)
}

// observeContention updates the contention streak from the current
// active-operation count and latches promotionRequested once the
// streak reaches streakThreshold. Concurrent callers race on the
// streak counter without extra synchronization — the heuristic only
// needs to be directionally correct, and promotion is one-way, so a
// spurious extra increment or reset changes only how soon promotion
// fires, never correctness.
func (s *AdaptiveStack[T]) observeContention(active int64) {
	if s.usingCAS.LoadRelaxed() {
		return
	}

	if active >= s.threadThreshold {
		streak := s.contentionStreak.AddAcqRel(1)
		if streak >= s.streakThreshold {
			s.promotionRequested.StoreRelaxed(true)
		}
	} else {
		s.contentionStreak.StoreRelaxed(0)
	}
}

// maybePromote performs the one-way array-to-linked migration if a
// promotion has been requested and the stack has not already migrated.
// It double-checks usingCAS after taking the exclusive mode lock, so at
// most one goroutine ever performs the migration.
func (s *AdaptiveStack[T]) maybePromote() {
	if s.usingCAS.LoadAcquire() || !s.promotionRequested.LoadRelaxed() {
		return
	}

	s.modeLock.Lock()
	defer s.modeLock.Unlock()

	if s.usingCAS.LoadRelaxed() {
		return
	}

	s.arrayLock.Lock()
	transfer := s.arrayData
	s.arrayData = nil
	s.arrayLock.Unlock()

	// Array bottom (index 0) becomes link-stack bottom: pushing in
	// front-to-back order re-emplaces the array's top element last, so
	// it ends up on top of the linked stack too.
	for _, value := range transfer {
		s.linked.Push(value)
	}

	s.usingCAS.StoreRelease(true)
}

// Push adds value to the top of the stack.
func (s *AdaptiveStack[T]) Push(value T) {
	scope := beginOperation(s)
	defer scope.end()
	s.maybePromote()

	s.modeLock.RLock()
	defer s.modeLock.RUnlock()

	if s.usingCAS.LoadAcquire() {
		s.linked.Push(value)
		return
	}

	s.arrayLock.Lock()
	defer s.arrayLock.Unlock()
	s.arrayData = append(s.arrayData, value)
}

// Emplace constructs a value via build outside of any lock — matching
// the array path, where holding the spinlock across a potentially slow
// constructor would defeat the point of a short critical section — and
// pushes it.
func (s *AdaptiveStack[T]) Emplace(build func() T) {
	scope := beginOperation(s)
	defer scope.end()
	s.maybePromote()

	value := build()

	s.modeLock.RLock()
	defer s.modeLock.RUnlock()

	if s.usingCAS.LoadAcquire() {
		s.linked.Push(value)
		return
	}

	s.arrayLock.Lock()
	defer s.arrayLock.Unlock()
	s.arrayData = append(s.arrayData, value)
}

// Pop removes and returns the top value. ok is false if the stack was
// observed empty.
func (s *AdaptiveStack[T]) Pop() (value T, ok bool) {
	scope := beginOperation(s)
	defer scope.end()
	s.maybePromote()

	s.modeLock.RLock()
	defer s.modeLock.RUnlock()

	if s.usingCAS.LoadAcquire() {
		return s.linked.Pop()
	}

	s.arrayLock.Lock()
	defer s.arrayLock.Unlock()

	if len(s.arrayData) == 0 {
		return value, false
	}

	last := len(s.arrayData) - 1
	value = s.arrayData[last]
	var zero T
	s.arrayData[last] = zero
	s.arrayData = s.arrayData[:last]
	return value, true
}

// Top returns the value at the top of the stack without removing it.
// Top does not itself count toward contention observation or trigger
// promotion — only the mutating operations (Push, Emplace, Pop,
// Reserve) do.
func (s *AdaptiveStack[T]) Top() (value T, ok bool) {
	s.modeLock.RLock()
	defer s.modeLock.RUnlock()

	if s.usingCAS.LoadAcquire() {
		return s.linked.Top()
	}

	s.arrayLock.Lock()
	defer s.arrayLock.Unlock()

	if len(s.arrayData) == 0 {
		return value, false
	}
	return s.arrayData[len(s.arrayData)-1], true
}

// Empty reports whether the stack held no elements at some instant
// strictly preceding the call.
func (s *AdaptiveStack[T]) Empty() bool {
	s.modeLock.RLock()
	defer s.modeLock.RUnlock()

	if s.usingCAS.LoadAcquire() {
		return s.linked.Empty()
	}

	s.arrayLock.Lock()
	defer s.arrayLock.Unlock()
	return len(s.arrayData) == 0
}

// Size returns an advisory element count; it is not linearizable with
// concurrent Push/Pop.
func (s *AdaptiveStack[T]) Size() int {
	s.modeLock.RLock()
	defer s.modeLock.RUnlock()

	if s.usingCAS.LoadAcquire() {
		return s.linked.Size()
	}

	s.arrayLock.Lock()
	defer s.arrayLock.Unlock()
	return len(s.arrayData)
}

// Reserve grows the array-mode buffer's capacity to at least n. It is a
// no-op once the stack has migrated to the linked representation.
func (s *AdaptiveStack[T]) Reserve(n int) {
	scope := beginOperation(s)
	defer scope.end()
	s.maybePromote()

	s.modeLock.RLock()
	defer s.modeLock.RUnlock()

	if s.usingCAS.LoadAcquire() {
		return
	}

	s.arrayLock.Lock()
	defer s.arrayLock.Unlock()

	if cap(s.arrayData) >= n {
		return
	}
	grown := make([]T, len(s.arrayData), n)
	copy(grown, s.arrayData)
	s.arrayData = grown
}

// IsUsingCAS reports whether the stack has promoted to the lock-free
// linked representation. Once true, it remains true forever — there is
// no demotion.
func (s *AdaptiveStack[T]) IsUsingCAS() bool {
	return s.usingCAS.LoadAcquire()
}

// Leave releases hazard slots and retired-node references owned by the
// calling goroutine's current processor affinity, in the underlying
// linked stack. Safe to call whether or not the stack has promoted.
func (s *AdaptiveStack[T]) Leave() {
	s.linked.Leave()
}
