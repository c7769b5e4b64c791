// ©Veyron Labs 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"sync/atomic"
	_ "unsafe"

	"code.hybscloud.com/atomix"
)

// Hazard-pointer reclamation, shared by Stack, Queue, and the CAS-mode
// path of AdaptiveStack. Each container instance owns a private
// hazardDomain[N] rather than reaching into one process-wide table —
// the design notes accompanying this package's origin explicitly permit
// a per-container registry in place of a global one, since the safety
// argument only needs the registry's scope to cover every goroutine
// that touches that one container.
//
// Go has no portable thread-exit hook and no true thread-local storage.
// This domain fakes both with the same primitive the Go runtime itself
// uses for per-P scratch state (sync.Pool's per-P pools): a goroutine's
// current processor (P) is a cheap, bounded-cardinality stand-in for a
// thread identity, obtained by pinning via runtime.procPin. Unlike
// sync.Pool's own use of the primitive, the pin here is not released the
// instant the identity is read — acquireGroup leaves the calling
// goroutine pinned to its P, and the caller must hold that pin for the
// whole hazard-protected critical section (record publish, CAS retry
// loop, retire) before releasing it via releasePin. A P runs one
// goroutine at a time, and a pinned goroutine cannot be rescheduled off
// its P, so for as long as the pin is held no other goroutine can land
// on that same P and be handed the same slot group by findGroup. Only
// once the pin is released — critical section finished, group idle — can
// a different goroutine legitimately take the P over and inherit the
// group, exactly as std::thread::id-keyed ownership is reused once an OS
// thread exits and a new one is created. A momentary pin, sampled once
// and dropped immediately, would let a goroutine parked mid-operation
// (rescheduled to a different P) collide with a fresh arrival on its old
// P, both believing they own the same hazardRecord and retired list at
// once.

const (
	// MaxHazardIdentities bounds concurrently-owned hazard slot groups
	// per domain (§4.B MAX_HAZARDS, 16-32 cells). Exceeding it is fatal,
	// mirroring the fixed-capacity design of the source registry.
	MaxHazardIdentities = 32

	// hazardScanThreshold is the retired-node count that triggers a
	// reclamation scan (§4.B SCAN_THRESHOLD).
	hazardScanThreshold = 64

	stackHazardSlots = 1
	queueHazardSlots = 2
)

// hazardRecord is a cache-line-padded (owner, protected pointer) cell.
type hazardRecord[N any] struct {
	_       pad
	owner   atomix.Int64 // 0 = unset, else (P id + 1)
	pointer atomic.Pointer[N]
	_       padHazard
}

// hazardDomain is a fixed-capacity table of hazard records plus one
// retired-node bucket per identity group, private to one container
// instance.
type hazardDomain[N any] struct {
	slotsPerThread int
	records        []hazardRecord[N]
	retired        [][]*N
}

func newHazardDomain[N any](identities, slotsPerThread int) *hazardDomain[N] {
	groups := identities
	return &hazardDomain[N]{
		slotsPerThread: slotsPerThread,
		records:        make([]hazardRecord[N], groups*slotsPerThread),
		retired:        make([][]*N, groups),
	}
}

func (d *hazardDomain[N]) groups() int {
	return len(d.records) / d.slotsPerThread
}

// findGroup returns the base record index of the group already owned by
// identity pid, if any.
func (d *hazardDomain[N]) findGroup(pid int64, home int) (base int, ok bool) {
	groups := d.groups()
	for i := 0; i < groups; i++ {
		idx := (home + i) % groups
		base = idx * d.slotsPerThread
		if d.records[base].owner.LoadAcquire() == pid {
			return base, true
		}
	}
	return 0, false
}

// acquireGroup pins the calling goroutine to its current P and returns
// the base record index of the resulting slot group, claiming an
// unowned group on first use. The pin is NOT released before this call
// returns: the caller now owns a hazard-protected critical section and
// must end it with a deferred call to releasePin once the section is
// finished (record cleared, node retired). Exhausting the table is
// fatal — this is a static-capacity design, callers must not run more
// concurrent readers than MaxHazardIdentities.
func (d *hazardDomain[N]) acquireGroup() int {
	pid := int64(runtimeProcPin()) + 1

	groups := d.groups()
	home := int((pid - 1)) % groups

	if base, ok := d.findGroup(pid, home); ok {
		return base
	}

	for i := 0; i < groups; i++ {
		idx := (home + i) % groups
		base := idx * d.slotsPerThread
		if d.records[base].owner.CompareAndSwapAcqRel(0, pid) {
			return base
		}
	}

	runtimeProcUnpin()
	panic("lfc: hazard table exhausted")
}

// releasePin ends the critical section a prior acquireGroup call began,
// unpinning the calling goroutine from its current P. Call exactly once
// per acquireGroup, normally via defer immediately after it.
func (d *hazardDomain[N]) releasePin() {
	runtimeProcUnpin()
}

// protect publishes the pointer returned by load into record slot,
// re-reading load until the published value is confirmed current. This
// is the publish-then-revalidate dance: any retirer that unlinks the
// node before the store either sees no hazard and is free to reclaim,
// or a reader observes the change and retries before trusting the
// pointer.
func protect[N any](rec *hazardRecord[N], load func() *N) *N {
	for {
		p := load()
		rec.pointer.Store(p)
		if load() == p {
			return p
		}
	}
}

func (d *hazardDomain[N]) record(base, slot int) *hazardRecord[N] {
	return &d.records[base+slot]
}

func (d *hazardDomain[N]) clearGroup(base int) {
	for i := 0; i < d.slotsPerThread; i++ {
		d.records[base+i].pointer.Store(nil)
	}
}

// retire appends node to the calling identity's retire list, scanning
// when the threshold is reached. The caller must still hold the pin
// acquireGroup took out for base — retire is part of the same critical
// section, not a separate one.
func (d *hazardDomain[N]) retire(base int, node *N) {
	group := base / d.slotsPerThread
	d.retired[group] = append(d.retired[group], node)
	if len(d.retired[group]) >= hazardScanThreshold {
		d.scan(group)
	}
}

// scan snapshots every hazard record's protected pointer, then keeps
// only the retired nodes still referenced by that snapshot. Nodes that
// are dropped stop being referenced by this domain; Go's collector
// reclaims them once no other reference (including another domain's
// hazard record, during a benign race) remains — there is no explicit
// free step, unlike the manually-managed source design.
func (d *hazardDomain[N]) scan(group int) {
	snapshot := make([]*N, len(d.records))
	for i := range d.records {
		snapshot[i] = d.records[i].pointer.Load()
	}

	list := d.retired[group]
	write := 0
	for _, n := range list {
		keep := false
		for _, h := range snapshot {
			if h == n {
				keep = true
				break
			}
		}
		if keep {
			list[write] = n
			write++
		} else {
			list[write] = nil // drop the reference so gc can reclaim n
		}
	}
	for i := write; i < len(list); i++ {
		list[i] = nil
	}
	d.retired[group] = list[:write]
}

// leave releases the slot group at base and drops this identity's
// retired-node references. Because acquireGroup/releasePin hold the
// calling goroutine's pin for the whole critical section, no other
// goroutine can be mid-operation on this same group while leave runs —
// a node still hazarded by a DIFFERENT domain record simply stays alive
// under Go's collector until that record clears, nothing is leaked,
// unlike the manually-managed source design's teardown path.
func (d *hazardDomain[N]) leave(base int) {
	group := base / d.slotsPerThread
	d.clearGroup(base)
	d.retired[group] = nil
	d.records[base].owner.StoreRelease(0)
}

// leaveCurrent releases the calling goroutine's current-P slot group in
// this domain, if it owns one. Call before a long-lived worker
// goroutine exits: Go provides no reliable thread-exit hook, so this
// package requires the explicit call the source design's teardown path
// documents as the fallback for that case. It holds its own pin for its
// whole body so a concurrent acquireGroup landing on the same P cannot
// observe the group half-released.
func (d *hazardDomain[N]) leaveCurrent() {
	pid := int64(runtimeProcPin()) + 1
	defer runtimeProcUnpin()

	groups := d.groups()
	home := int((pid - 1)) % groups
	if base, ok := d.findGroup(pid, home); ok {
		d.leave(base)
	}
}

// runtimeProcPin and runtimeProcUnpin pin the calling goroutine to its
// current P and return the P's id, disabling preemption for the
// duration of the pin. This is the same private runtime entry point
// sync.Pool uses internally for per-P affinity.

//go:linkname runtimeProcPin runtime.procPin
//go:nosplit
func runtimeProcPin() int

//go:linkname runtimeProcUnpin runtime.procUnpin
//go:nosplit
func runtimeProcUnpin()
