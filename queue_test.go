// ©Veyron Labs 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/veyronlabs/lfc"
)

func TestQueueEmptyReadsOnFreshQueue(t *testing.T) {
	q := lfc.NewQueue[int]()

	if _, ok := q.Dequeue(); ok {
		t.Fatal("Dequeue on a fresh queue should report absence")
	}
	if _, ok := q.Front(); ok {
		t.Fatal("Front on a fresh queue should report absence")
	}
	if _, ok := q.Back(); ok {
		t.Fatal("Back on a fresh queue should report absence")
	}
	if !q.Empty() {
		t.Fatal("fresh queue should be Empty")
	}
}

// Scenario 2: enqueue 10, 20, 30 -> front=10, back=30, size=3, then FIFO
// drain to absent.
func TestQueueEnqueueDequeueSequence(t *testing.T) {
	q := lfc.NewQueue[int]()

	q.Enqueue(10)
	q.Enqueue(20)
	q.Enqueue(30)

	if v, ok := q.Front(); !ok || v != 10 {
		t.Fatalf("Front() = (%v, %v), want (10, true)", v, ok)
	}
	if v, ok := q.Back(); !ok || v != 30 {
		t.Fatalf("Back() = (%v, %v), want (30, true)", v, ok)
	}
	if got := q.Size(); got != 3 {
		t.Fatalf("Size() = %d, want 3", got)
	}

	for _, want := range []int{10, 20, 30} {
		v, ok := q.Dequeue()
		if !ok || v != want {
			t.Fatalf("Dequeue() = (%v, %v), want (%d, true)", v, ok, want)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatal("Dequeue() after draining the queue should report absence")
	}
}

func TestQueueEmplaceConstructsOutsideCriticalSection(t *testing.T) {
	q := lfc.NewQueue[string]()

	calls := 0
	q.Emplace(func() string {
		calls++
		return "built"
	})

	if calls != 1 {
		t.Fatalf("build was called %d times, want 1", calls)
	}
	if v, ok := q.Dequeue(); !ok || v != "built" {
		t.Fatalf("Dequeue() = (%q, %v), want (\"built\", true)", v, ok)
	}
}

func TestQueueSingleThreadedFIFOOrder(t *testing.T) {
	const n = 500
	q := lfc.NewQueue[int]()
	values := make([]int, n)
	for i := range values {
		values[i] = i
	}
	q.EnqueueAll(values)

	for i := 0; i < n; i++ {
		v, ok := q.Dequeue()
		if !ok || v != i {
			t.Fatalf("Dequeue() = (%v, %v), want (%d, true)", v, ok, i)
		}
	}
}

// Scenario 5: two producers x 10000, two consumers x 10000; after join,
// size is 0 and the multiset of dequeued values equals the union of
// produced multisets.
func TestQueueMultiProducerMultiConsumerLinearizability(t *testing.T) {
	if lfc.RaceEnabled {
		t.Skip("skip: relies on ordering the race detector cannot observe")
	}

	const producers = 2
	const consumers = 2
	const perProducer = 10000
	const total = producers * perProducer

	q := lfc.NewQueue[int]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer q.Leave()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(id*perProducer + i)
			}
		}(p)
	}

	seen := make([]atomix.Int32, total)
	var consumedCount atomix.Int64
	var stop atomix.Bool

	for c := 0; c < consumers; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer q.Leave()
			backoff := iox.Backoff{}
			for {
				v, ok := q.Dequeue()
				if !ok {
					if stop.Load() {
						return
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()
				seen[v].Add(1)
				consumedCount.Add(1)
			}
		}()
	}

	deadline := time.Now().Add(30 * time.Second)
	backoff := iox.Backoff{}
	for consumedCount.Load() < int64(total) {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d dequeues, got %d", total, consumedCount.Load())
		}
		backoff.Wait()
	}
	stop.Store(true)
	wg.Wait()

	if got := q.Size(); got != 0 {
		t.Fatalf("Size() after drain = %d, want 0", got)
	}
	for i := range seen {
		if seen[i].Load() != 1 {
			t.Fatalf("value %d observed %d times, want exactly 1", i, seen[i].Load())
		}
	}
}

func TestQueueBackWalksToNewestNode(t *testing.T) {
	q := lfc.NewQueue[int]()
	for i := 0; i < 10; i++ {
		q.Enqueue(i)
		v, ok := q.Back()
		if !ok || v != i {
			t.Fatalf("Back() after enqueueing %d = (%v, %v), want (%d, true)", i, v, ok, i)
		}
	}
}
