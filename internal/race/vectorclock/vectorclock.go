// Package vectorclock implements vector clocks for tracking happens-before relations.
//
// Vector clocks back every synchronization object the engine knows about:
// mutex release clocks, acquire/release addresses and fiber hand-offs. The
// common case is a handful of live contexts (one per goroutine that touched
// the engine plus one per fiber), so the clock is a dense slice indexed by
// TID that grows on demand instead of a fixed-size array.
//
// Key operations:
//   - Join: Synchronization (point-wise maximum) - used on acquire
//   - LessOrEqual: Happens-before check (partial order) - used on shared reads
package vectorclock

import (
	"strconv"
	"strings"
)

// VectorClock represents logical time across multiple contexts.
//
// Element vc[tid] stores the clock value for context tid. Missing trailing
// elements are implicitly zero.
//
// Example: {0: 50, 1: 30, 2: 60} means TID0@50, TID1@30, TID2@60.
type VectorClock struct {
	c []uint32
}

// New creates a zero vector clock.
func New() *VectorClock {
	return &VectorClock{}
}

// Clone creates a deep copy of the vector clock.
//
// Used when a snapshot must outlive further updates of the source, for
// example when a fiber inherits its creator's clock.
func (vc *VectorClock) Clone() *VectorClock {
	clone := &VectorClock{c: make([]uint32, len(vc.c))}
	copy(clone.c, vc.c)
	return clone
}

// CopyFrom overwrites vc with the contents of other, reusing vc's storage.
//
// This implements the "release store" used by write unlock: Lm := Ct.
func (vc *VectorClock) CopyFrom(other *VectorClock) {
	vc.grow(len(other.c))
	n := copy(vc.c, other.c)
	clear(vc.c[n:])
}

// Join performs point-wise maximum: vc = vc ⊔ other.
//
// This is the synchronization operation for happens-before:
// Ct := Ct ⊔ Lm when a context acquires a lock.
func (vc *VectorClock) Join(other *VectorClock) {
	vc.grow(len(other.c))
	for i, v := range other.c {
		if v > vc.c[i] {
			vc.c[i] = v
		}
	}
}

// LessOrEqual checks partial order: vc ⊑ other.
//
// Returns true if vc[i] <= other[i] for all i.
func (vc *VectorClock) LessOrEqual(other *VectorClock) bool {
	for i, v := range vc.c {
		if v > other.Get(uint32(i)) {
			return false
		}
	}
	return true
}

// Increment advances the clock for context tid.
func (vc *VectorClock) Increment(tid uint32) {
	vc.grow(int(tid) + 1)
	vc.c[tid]++
}

// Get returns the clock value for context tid.
func (vc *VectorClock) Get(tid uint32) uint32 {
	if int(tid) >= len(vc.c) {
		return 0
	}
	return vc.c[tid]
}

// Set sets the clock value for context tid.
func (vc *VectorClock) Set(tid uint32, clock uint32) {
	vc.grow(int(tid) + 1)
	vc.c[tid] = clock
}

// Len returns the number of tracked slots (including zero slots).
func (vc *VectorClock) Len() int {
	return len(vc.c)
}

func (vc *VectorClock) grow(n int) {
	if n <= len(vc.c) {
		return
	}
	if n <= cap(vc.c) {
		vc.c = vc.c[:n]
		return
	}
	c := make([]uint32, n, max(n, 2*cap(vc.c)))
	copy(c, vc.c)
	vc.c = c
}

// String returns a debug representation of the vector clock.
//
// Format: "{tid1:clock1, tid2:clock2, ...}" showing only non-zero clocks.
func (vc *VectorClock) String() string {
	var parts []string
	for i, v := range vc.c {
		if v != 0 {
			parts = append(parts, strconv.Itoa(i)+":"+strconv.FormatUint(uint64(v), 10))
		}
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
