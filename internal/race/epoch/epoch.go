// Package epoch implements compact logical timestamps for the FastTrack engine.
//
// Epoch represents a single context's logical time as a 64-bit value:
//   - Top 32 bits: TID of the context (goroutine thread or fiber)
//   - Bottom 32 bits: Clock value
//
// This encoding enables O(1) happens-before checks for the common case where
// a variable was last accessed by a single context.
package epoch

import (
	"strconv"

	"github.com/kolkov/tsanshim/internal/race/vectorclock"
)

// Epoch is a 64-bit logical timestamp encoding both TID and clock value.
// Layout: [TID:32][Clock:32]
//
// The zero Epoch is "no access yet"; live contexts never produce it because
// every context starts at clock 1.
type Epoch uint64

const (
	// ClockBits is the number of bits allocated for the clock value.
	ClockBits = 32

	// ClockMask is the bitmask for extracting the clock value.
	ClockMask = (1 << ClockBits) - 1
)

// NewEpoch creates an epoch from TID and clock value.
//
//go:nosplit
func NewEpoch(tid uint32, clock uint32) Epoch {
	return Epoch(uint64(tid)<<ClockBits | uint64(clock))
}

// Decode extracts the TID and clock value from an epoch.
//
//go:nosplit
func (e Epoch) Decode() (tid uint32, clock uint32) {
	tid = uint32(e >> ClockBits)
	clock = uint32(e & ClockMask)
	return
}

// TID returns the context identifier stored in the epoch.
func (e Epoch) TID() uint32 {
	return uint32(e >> ClockBits)
}

// IsZero reports whether e is the "no access" epoch.
func (e Epoch) IsZero() bool {
	return e == 0
}

// HappensBefore checks if this epoch happened before a vector clock.
//
// Returns true if the epoch's clock <= vc[epoch's TID]. The zero epoch
// happens before everything.
//
//go:nosplit
func (e Epoch) HappensBefore(vc *vectorclock.VectorClock) bool {
	tid, clock := e.Decode()
	return clock <= vc.Get(tid)
}

// Same checks if two epochs are identical (same TID and clock).
//
//go:nosplit
func (e Epoch) Same(other Epoch) bool {
	return e == other
}

// String returns "clock@tid" (e.g., "42@5" means clock=42, tid=5).
func (e Epoch) String() string {
	tid, clock := e.Decode()
	return strconv.FormatUint(uint64(clock), 10) + "@" + strconv.FormatUint(uint64(tid), 10)
}
