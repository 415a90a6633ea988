package goroutine

import (
	"fmt"
	"sync/atomic"

	"github.com/kolkov/tsanshim/internal/race/epoch"
	"github.com/kolkov/tsanshim/internal/race/vectorclock"
)

// Kind distinguishes goroutine thread contexts from fibers.
type Kind uint8

const (
	// KindThread is the implicit context of a goroutine.
	KindThread Kind = iota
	// KindFiber is a context created by a fiber annotation.
	KindFiber
)

// String returns the label used in reports.
func (k Kind) String() string {
	switch k {
	case KindThread:
		return "goroutine"
	case KindFiber:
		return "fiber"
	default:
		return "context"
	}
}

// RaceContext represents the race detection state for a single context.
//
// Layout:
//   - TID: engine-wide context ID
//   - C: Full vector clock
//   - Epoch: Cached value of C[TID]
//
// Invariant: Epoch must ALWAYS equal epoch.NewEpoch(TID, C[TID]).
//
// Thread Safety: C and Epoch are only mutated by whoever is currently running
// the context. For a goroutine context that is the goroutine itself; for a
// fiber it is the goroutine that switched to it, and the runtime serializes
// those switches. Name and liveness may be read from any goroutine.
type RaceContext struct {
	// TID is the engine-wide identifier of this context.
	TID uint32

	// Kind records whether this is a goroutine or a fiber context.
	Kind Kind

	// GoroutineID is the owning goroutine for thread contexts, 0 for fibers.
	GoroutineID int64

	// C is the full vector clock tracking logical time for all contexts.
	C *vectorclock.VectorClock

	// Epoch is the cached epoch for this context: Epoch == C[TID].
	Epoch epoch.Epoch

	ignore atomic.Int32
	name   atomic.Pointer[string]
	dead   atomic.Bool
}

// Alloc creates and initializes a new RaceContext for the given TID.
//
// The context starts at clock 1 for its own slot so that its first epoch is
// never confused with the zero "no access" epoch.
//
// Example:
//
//	ctx := Alloc(5, KindThread)
//	// ctx.C = {5:1}
//	// ctx.Epoch = 1@5
func Alloc(tid uint32, kind Kind) *RaceContext {
	ctx := &RaceContext{
		TID:  tid,
		Kind: kind,
		C:    vectorclock.New(),
	}
	ctx.C.Set(tid, 1)
	ctx.Epoch = epoch.NewEpoch(tid, 1)
	return ctx
}

// IncrementClock advances the logical clock for this context.
//
// Called after every release so that later accesses are not covered by the
// clock that was just published.
func (rc *RaceContext) IncrementClock() {
	rc.C.Increment(rc.TID)
	rc.Epoch = epoch.NewEpoch(rc.TID, rc.C.Get(rc.TID))
}

// Acquire joins other into this context's clock.
//
// The context's own slot is never lowered by a join, so the epoch cache
// stays valid.
func (rc *RaceContext) Acquire(other *vectorclock.VectorClock) {
	if other == nil {
		return
	}
	rc.C.Join(other)
}

// GetEpoch returns the cached epoch for this context.
//
//go:nosplit
func (rc *RaceContext) GetEpoch() epoch.Epoch {
	return rc.Epoch
}

// IgnoreBegin enters an ignore region: accesses reported while the depth is
// positive are not checked.
func (rc *RaceContext) IgnoreBegin() {
	rc.ignore.Add(1)
}

// IgnoreEnd leaves an ignore region. It returns false, leaving the depth at
// zero, when there was no region to leave.
func (rc *RaceContext) IgnoreEnd() bool {
	for {
		d := rc.ignore.Load()
		if d <= 0 {
			return false
		}
		if rc.ignore.CompareAndSwap(d, d-1) {
			return true
		}
	}
}

// Ignoring reports whether the context is inside an ignore region.
func (rc *RaceContext) Ignoring() bool {
	return rc.ignore.Load() > 0
}

// IgnoreDepth returns the current nesting of ignore regions.
func (rc *RaceContext) IgnoreDepth() int32 {
	return rc.ignore.Load()
}

// SetName attaches a diagnostic label.
func (rc *RaceContext) SetName(name string) {
	rc.name.Store(&name)
}

// Name returns the diagnostic label, or "" if none was set.
func (rc *RaceContext) Name() string {
	if p := rc.name.Load(); p != nil {
		return *p
	}
	return ""
}

// MarkDead retires the context. It returns false if it was already dead.
func (rc *RaceContext) MarkDead() bool {
	return rc.dead.CompareAndSwap(false, true)
}

// Dead reports whether the context has been retired.
func (rc *RaceContext) Dead() bool {
	return rc.dead.Load()
}

// String describes the context for reports, e.g. `fiber 3 "worker"` or
// `goroutine 17 (tid 0)`.
func (rc *RaceContext) String() string {
	var s string
	switch rc.Kind {
	case KindThread:
		s = fmt.Sprintf("goroutine %d (tid %d)", rc.GoroutineID, rc.TID)
	default:
		s = fmt.Sprintf("%s %d", rc.Kind, rc.TID)
	}
	if name := rc.Name(); name != "" {
		s += fmt.Sprintf(" %q", name)
	}
	return s
}
