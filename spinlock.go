// ©Veyron Labs 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Spinlock is a test-and-test-and-set mutual-exclusion primitive intended
// for short critical sections only. It is padded to its own cache line
// to avoid false sharing with neighboring fields.
type Spinlock struct {
	_     pad
	state atomix.Uint64 // 0 = free, 1 = held
	_     pad
}

// Lock acquires the spinlock, busy-waiting under contention.
//
// The fast path is a single acquire-ordered CAS. On failure it enters a
// test-and-test-and-set loop: spin on a relaxed load while the word is
// held, issuing a CPU pause/yield hint each iteration so the contended
// core doesn't hammer the cache-coherency bus, then retry the CAS.
func (l *Spinlock) Lock() {
	if l.state.CompareAndSwapAcqRel(0, 1) {
		return
	}

	sw := spin.Wait{}
	for {
		for l.state.LoadRelaxed() != 0 {
			sw.Once()
		}
		if l.state.CompareAndSwapAcqRel(0, 1) {
			return
		}
	}
}

// TryLock attempts to acquire the spinlock without blocking.
func (l *Spinlock) TryLock() bool {
	return l.state.CompareAndSwapAcqRel(0, 1)
}

// Unlock releases the spinlock with a release store, making every write
// performed inside the critical section visible to the next acquirer.
func (l *Spinlock) Unlock() {
	l.state.StoreRelease(0)
}

// SpinlockGuard acquires a Spinlock on construction and releases it on
// Unlock, mirroring a scoped lock guard for use with defer.
type SpinlockGuard struct {
	lock *Spinlock
}

// Guard acquires l and returns a guard that releases it, for use as
// `defer lfc.Guard(&l).Unlock()`.
func Guard(l *Spinlock) SpinlockGuard {
	l.Lock()
	return SpinlockGuard{lock: l}
}

// Unlock releases the underlying spinlock. Safe to call via defer.
func (g SpinlockGuard) Unlock() {
	g.lock.Unlock()
}
