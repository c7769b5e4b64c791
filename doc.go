// ©Veyron Labs 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfc provides unbounded, thread-safe LIFO and FIFO container
// primitives for building concurrent systems.
//
// Three container types are exported:
//
//   - AdaptiveStack: the default LIFO. It starts as a spinlock-guarded
//     contiguous array and, upon detecting sustained contention, performs
//     a one-way migration into a lock-free linked stack.
//   - Stack: the pure lock-free Treiber stack AdaptiveStack migrates into.
//     Exposed directly for callers who always want the linked
//     representation.
//   - Queue: a Michael-Scott lock-free FIFO with a dummy head node and
//     cooperative tail advancement.
//
// All three share a hazard-pointer reclamation scheme (see hazard.go) so
// that concurrent readers can dereference nodes a concurrent writer is in
// the process of unlinking, without use-after-free or a stop-the-world
// pause.
//
// # Quick Start
//
//	s := lfc.NewAdaptiveStack[int]()
//	s.Push(1)
//	s.Push(2)
//	v, ok := s.Pop() // v == 2, ok == true
//
//	q := lfc.NewQueue[string]()
//	q.Enqueue("a")
//	q.Enqueue("b")
//	str, ok := q.Dequeue() // str == "a", ok == true
//
// # Empty reads
//
// Pop, Top, Front, and Back never fault on an empty container; they
// report absence through the second return value:
//
//	if v, ok := s.Pop(); ok {
//	    process(v)
//	}
//
// # Contention tuning
//
// AdaptiveStack's promotion heuristic can be tuned at construction:
//
//	s := lfc.NewAdaptiveStackTuned[Job](0, 4, 128)
//	if s.IsUsingCAS() {
//	    // already promoted to the linked representation
//	}
//
// Promotion is one-way; once IsUsingCAS reports true it never reports
// false again for that instance.
//
// # Long-lived goroutines
//
// This package has no thread-exit hook to fall back on, so a goroutine
// that will make no further calls into a given container should release
// its hazard slots explicitly:
//
//	go func() {
//	    defer s.Leave()
//	    for job := range jobs {
//	        s.Push(job)
//	    }
//	}()
//
// Skipping Leave does not corrupt the container — the slot is simply
// reused the next time a goroutine runs on the same processor — but it
// keeps that slot's retired nodes alive longer than necessary.
//
// # Backoff around callers' own bounded structures
//
// These containers are themselves unbounded and never return a
// would-block error. Callers who layer a bounded structure on top (a
// fixed-size worker pool queue, for instance) and need retry/backoff
// around that outer bound can use [code.hybscloud.com/iox]'s Backoff,
// the same primitive this package's own stress tests use:
//
//	backoff := iox.Backoff{}
//	for outerQueueFull() {
//	    backoff.Wait()
//	}
//	q.Enqueue(item)
//
// # Race detection
//
// Go's race detector tracks explicit synchronization primitives (mutex,
// channel, WaitGroup) but cannot observe happens-before relationships
// established purely through acquire/release orderings on separate
// atomic variables — which is how the hazard protocol and every CAS loop
// in this package synchronize. Concurrent stress tests that would false
// positive under the detector are skipped via [RaceEnabled].
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomics with
// explicit memory ordering and [code.hybscloud.com/spin] for CPU
// pause/yield hints in retry loops. [code.hybscloud.com/iox] is used by
// this package's own tests, not by the containers themselves — see
// "Empty reads" above for why the container API has no error return to
// source from it.
package lfc
