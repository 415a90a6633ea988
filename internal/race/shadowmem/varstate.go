package shadowmem

import (
	"sync"

	"github.com/kolkov/tsanshim/internal/race/epoch"
	"github.com/kolkov/tsanshim/internal/race/vectorclock"
)

// VarState stores the access state for a single object using adaptive representation.
//
// ADAPTIVE REPRESENTATION:
//   - Common case: one reader at a time, tracked by a single read epoch
//   - Shared reads: promoted to a read VectorClock
//   - A write demotes back to the epoch representation
//
// All fields are guarded by the VarState's mutex; take it with Lock/Unlock
// around a whole check-and-update sequence.
type VarState struct {
	mu sync.Mutex

	// W is the last write epoch; WStack is the stack depot id of that write.
	W      epoch.Epoch
	WStack uint64

	readEpoch epoch.Epoch
	readStack uint64
	readClock *vectorclock.VectorClock

	// readStacks remembers one stack per reader TID after promotion.
	readStacks map[uint32]uint64

	// Tag is the object tag assigned to the address (0 when untagged).
	Tag uintptr
}

// NewVarState creates a never-accessed variable state.
func NewVarState() *VarState {
	return &VarState{}
}

// Lock takes the VarState's mutex.
func (vs *VarState) Lock() { vs.mu.Lock() }

// Unlock releases the VarState's mutex.
func (vs *VarState) Unlock() { vs.mu.Unlock() }

// Reset returns the state to "never accessed", keeping the tag.
func (vs *VarState) Reset() {
	vs.W, vs.WStack = 0, 0
	vs.Demote()
}

// IsPromoted reports whether reads are tracked by a VectorClock.
func (vs *VarState) IsPromoted() bool {
	return vs.readClock != nil
}

// SetWrite records a write and clears read tracking: a write dominates all
// previous reads once it has been checked against them.
func (vs *VarState) SetWrite(e epoch.Epoch, stack uint64) {
	vs.W, vs.WStack = e, stack
	vs.Demote()
}

// ReadEpoch returns the single-reader epoch and its stack (fast path only).
func (vs *VarState) ReadEpoch() (epoch.Epoch, uint64) {
	return vs.readEpoch, vs.readStack
}

// SetReadEpoch records a read in the single-reader representation.
// It is a no-op once promoted.
func (vs *VarState) SetReadEpoch(e epoch.Epoch, stack uint64) {
	if vs.readClock != nil {
		return
	}
	vs.readEpoch, vs.readStack = e, stack
}

// ReadClock returns the shared-read clock, nil unless promoted.
func (vs *VarState) ReadClock() *vectorclock.VectorClock {
	return vs.readClock
}

// AddSharedRead records a read in the promoted representation.
func (vs *VarState) AddSharedRead(e epoch.Epoch, stack uint64) {
	tid, clock := e.Decode()
	vs.readClock.Set(tid, clock)
	vs.readStacks[tid] = stack
}

// ReadStack returns the stack recorded for reader tid after promotion.
func (vs *VarState) ReadStack(tid uint32) uint64 {
	return vs.readStacks[tid]
}

// PromoteToReadClock upgrades from a single read epoch to a read VectorClock
// holding both the previous reader and e.
func (vs *VarState) PromoteToReadClock(e epoch.Epoch, stack uint64) {
	vs.readClock = vectorclock.New()
	vs.readStacks = make(map[uint32]uint64, 2)
	if vs.readEpoch != 0 {
		tid, clock := vs.readEpoch.Decode()
		vs.readClock.Set(tid, clock)
		vs.readStacks[tid] = vs.readStack
	}
	vs.readEpoch, vs.readStack = 0, 0
	vs.AddSharedRead(e, stack)
}

// Demote clears read tracking and returns to the epoch representation.
func (vs *VarState) Demote() {
	vs.readEpoch, vs.readStack = 0, 0
	vs.readClock = nil
	vs.readStacks = nil
}

// String returns a debug representation of the variable state.
//
// Example:
//   - "W:100@5 R:50@3"
//   - "W:100@5 R:{0:50, 1:60} [PROMOTED]"
func (vs *VarState) String() string {
	wStr := "W:" + vs.W.String()
	if vs.readClock != nil {
		return wStr + " R:" + vs.readClock.String() + " [PROMOTED]"
	}
	return wStr + " R:" + vs.readEpoch.String()
}
