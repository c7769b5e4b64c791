// ©Veyron Labs 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc_test

import (
	"sort"
	"sync"
	"testing"

	"code.hybscloud.com/atomix"
	"github.com/veyronlabs/lfc"
)

func TestStackEmptyReadsOnFreshStack(t *testing.T) {
	s := lfc.NewStack[int]()

	if _, ok := s.Pop(); ok {
		t.Fatal("Pop on a fresh stack should report absence")
	}
	if _, ok := s.Top(); ok {
		t.Fatal("Top on a fresh stack should report absence")
	}
	if !s.Empty() {
		t.Fatal("fresh stack should be Empty")
	}
	if got := s.Size(); got != 0 {
		t.Fatalf("Size() = %d, want 0", got)
	}
}

// Scenario 1: push 1, push 2, push 3 -> top=3, size=3, pop 3,2,1, then absent.
func TestStackPushPopSequence(t *testing.T) {
	s := lfc.NewStack[int]()

	s.Push(1)
	s.Push(2)
	s.Push(3)

	if v, ok := s.Top(); !ok || v != 3 {
		t.Fatalf("Top() = (%v, %v), want (3, true)", v, ok)
	}
	if got := s.Size(); got != 3 {
		t.Fatalf("Size() = %d, want 3", got)
	}

	for _, want := range []int{3, 2, 1} {
		v, ok := s.Pop()
		if !ok || v != want {
			t.Fatalf("Pop() = (%v, %v), want (%d, true)", v, ok, want)
		}
	}
	if _, ok := s.Pop(); ok {
		t.Fatal("Pop() after draining the stack should report absence")
	}
}

func TestStackEmplaceConstructsOutsideCriticalSection(t *testing.T) {
	s := lfc.NewStack[string]()

	calls := 0
	s.Emplace(func() string {
		calls++
		return "built"
	})

	if calls != 1 {
		t.Fatalf("build was called %d times, want 1", calls)
	}
	if v, ok := s.Pop(); !ok || v != "built" {
		t.Fatalf("Pop() = (%q, %v), want (\"built\", true)", v, ok)
	}
}

func TestStackSingleThreadedPushOrderReversedOnPop(t *testing.T) {
	const n = 500
	s := lfc.NewStack[int]()
	for i := 0; i < n; i++ {
		s.Push(i)
	}
	for i := n - 1; i >= 0; i-- {
		v, ok := s.Pop()
		if !ok || v != i {
			t.Fatalf("Pop() = (%v, %v), want (%d, true)", v, ok, i)
		}
	}
}

// Scenario 6 (adapted to the pure Treiber stack): one producer pushes
// 1..N while a concurrent consumer pops; the consumer's observed values
// form a strictly decreasing subsequence of 1..N.
func TestStackConcurrentProducerConsumerOrdering(t *testing.T) {
	if lfc.RaceEnabled {
		t.Skip("skip: relies on ordering the race detector cannot observe")
	}

	const n = 20000
	s := lfc.NewStack[int]()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.Leave()
		for i := 1; i <= n; i++ {
			s.Push(i)
		}
	}()

	var consumed atomix.Int64
	seen := make([]int, 0, n)
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.Leave()
		for consumed.Load() < int64(n) {
			if v, ok := s.Pop(); ok {
				mu.Lock()
				seen = append(seen, v)
				mu.Unlock()
				consumed.Add(1)
			}
		}
	}()

	wg.Wait()

	for i := 1; i < len(seen); i++ {
		if seen[i] >= seen[i-1] {
			t.Fatalf("observed non-decreasing pair at index %d: %d then %d", i, seen[i-1], seen[i])
		}
	}
	if !sort.SliceIsSorted(seen, func(i, j int) bool { return seen[i] > seen[j] }) {
		t.Fatal("consumer's view is not strictly decreasing")
	}
}

func TestStackConcurrentPushNoLostUpdates(t *testing.T) {
	if lfc.RaceEnabled {
		t.Skip("skip: relies on ordering the race detector cannot observe")
	}

	const goroutines = 50
	const perGoroutine = 400
	s := lfc.NewStack[int]()

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.Leave()
			for j := 0; j < perGoroutine; j++ {
				s.Push(j)
			}
		}()
	}
	wg.Wait()

	count := 0
	for {
		if _, ok := s.Pop(); !ok {
			break
		}
		count++
	}
	if want := goroutines * perGoroutine; count != want {
		t.Fatalf("drained %d values, want %d", count, want)
	}
}
