package syncshadow

import (
	"sync"

	"github.com/kolkov/tsanshim/internal/race/goroutine"
	"github.com/kolkov/tsanshim/internal/race/vectorclock"
)

// SyncVar holds the happens-before and lock state of one synchronization
// address.
//
// Lifecycle:
//   - Created on first use of the address (or by an explicit mutex create)
//   - Removed by a mutex destroy
//   - Release clocks are allocated lazily on first release
type SyncVar struct {
	mu sync.Mutex

	// releaseClock is published by write unlocks (store) and plain releases
	// (merge). Write and read locks both acquire it.
	releaseClock *vectorclock.VectorClock

	// readClock accumulates the clocks of read unlocks. Only write locks
	// acquire it, so readers do not synchronize with each other.
	readClock *vectorclock.VectorClock

	// Created is set by an explicit mutex create annotation.
	Created bool

	// CreationFlags are the flags passed to the create annotation.
	CreationFlags uint32

	// Owner is the context holding the write lock, nil when not write-locked.
	Owner *goroutine.RaceContext

	// Recursion counts nested write acquisitions by Owner.
	Recursion int

	// Readers counts outstanding read locks.
	Readers int
}

// Lock takes the SyncVar's mutex.
func (sv *SyncVar) Lock() { sv.mu.Lock() }

// Unlock releases the SyncVar's mutex.
func (sv *SyncVar) Unlock() { sv.mu.Unlock() }

// GetReleaseClock returns the release clock, nil if nothing was released yet.
func (sv *SyncVar) GetReleaseClock() *vectorclock.VectorClock {
	return sv.releaseClock
}

// GetReadClock returns the accumulated read-unlock clock, nil if none.
func (sv *SyncVar) GetReadClock() *vectorclock.VectorClock {
	return sv.readClock
}

// StoreReleaseClock overwrites the release clock with clock: Lm := Ct.
func (sv *SyncVar) StoreReleaseClock(clock *vectorclock.VectorClock) {
	if sv.releaseClock == nil {
		sv.releaseClock = clock.Clone()
		return
	}
	sv.releaseClock.CopyFrom(clock)
}

// MergeReleaseClock merges clock into the release clock: Lm := Lm ⊔ Ct.
func (sv *SyncVar) MergeReleaseClock(clock *vectorclock.VectorClock) {
	if sv.releaseClock == nil {
		sv.releaseClock = clock.Clone()
		return
	}
	sv.releaseClock.Join(clock)
}

// MergeReadClock merges clock into the read-unlock clock.
func (sv *SyncVar) MergeReadClock(clock *vectorclock.VectorClock) {
	if sv.readClock == nil {
		sv.readClock = clock.Clone()
		return
	}
	sv.readClock.Join(clock)
}

// Locked reports whether the mutex is held in either mode.
func (sv *SyncVar) Locked() bool {
	return sv.Owner != nil || sv.Readers > 0
}

// HasFlag reports whether the creation flags include f.
func (sv *SyncVar) HasFlag(f uint32) bool {
	return sv.CreationFlags&f != 0
}
