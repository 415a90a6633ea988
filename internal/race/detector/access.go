package detector

import (
	"github.com/kolkov/tsanshim/internal/race/epoch"
	"github.com/kolkov/tsanshim/internal/race/goroutine"
	"github.com/kolkov/tsanshim/internal/race/shadowmem"
)

// OnWrite handles a write the runtime reports on one of its objects.
//
// Algorithm: FastTrack [FT WRITE] rules (adaptive read representation)
//
//  1. Skip if the context is inside an ignore region
//  2. [FT WRITE SAME EPOCH] If vs.W == E(t), return
//  3. Check write-write race: vs.W must happen-before Ct
//  4. Check read-write race against the read epoch or the shared read clock
//  5. vs.W := E(t) and demote the read state
//
// Unlike the write path of compiler instrumentation, a race does not stop the
// update: the shadow always reflects the latest access so the next report
// names the right previous access.
//
// Parameters:
//   - addr: address of the object
//   - pc: caller PC supplied by the runtime, recorded as the top frame (0 for none)
//   - tag: object tag of the access (0 for none)
//   - ctx: the context performing the access
func (d *Detector) OnWrite(addr, pc, tag uintptr, ctx *goroutine.RaceContext) {
	if ctx.Ignoring() {
		return
	}

	vs := d.shadowMemory.GetOrCreate(addr)
	cur := ctx.GetEpoch()

	vs.Lock()
	if vs.W.Same(cur) {
		vs.Unlock()
		return
	}

	stack := d.depot.Capture(1, pc)

	var (
		raceType  string
		prev      epoch.Epoch
		prevStack uint64
	)
	switch {
	case !vs.W.HappensBefore(ctx.C):
		raceType, prev, prevStack = RaceTypeWriteWrite, vs.W, vs.WStack
	case !vs.IsPromoted():
		if re, rs := vs.ReadEpoch(); !re.HappensBefore(ctx.C) {
			raceType, prev, prevStack = RaceTypeReadWrite, re, rs
		}
	default:
		if re, ok := firstConcurrentRead(vs, ctx); ok {
			raceType, prev, prevStack = RaceTypeReadWrite, re, vs.ReadStack(re.TID())
		}
	}

	objTag := pickTag(tag, vs.Tag)
	vs.SetWrite(cur, stack)
	vs.Unlock()

	if raceType != "" {
		d.reportRace(raceType, addr, objTag, ctx, cur, stack, prev, prevStack)
	}
}

// OnRead handles a read the runtime reports on one of its objects.
//
// Algorithm: FastTrack [FT READ] rules (adaptive read representation)
//
//  1. Skip if the context is inside an ignore region
//  2. Check write-read race: vs.W must happen-before Ct
//  3. Update read tracking:
//     a. promoted: record E(t) in the shared read clock
//     b. same epoch: return
//     c. same reader, no reader, or previous read happens-before: replace epoch
//     d. otherwise: PROMOTE to a read VectorClock
func (d *Detector) OnRead(addr, pc, tag uintptr, ctx *goroutine.RaceContext) {
	if ctx.Ignoring() {
		return
	}

	vs := d.shadowMemory.GetOrCreate(addr)
	cur := ctx.GetEpoch()

	vs.Lock()
	if re, _ := vs.ReadEpoch(); !vs.IsPromoted() && re.Same(cur) {
		vs.Unlock()
		return
	}

	stack := d.depot.Capture(1, pc)

	var (
		raceType  string
		prev      epoch.Epoch
		prevStack uint64
	)
	if !vs.W.HappensBefore(ctx.C) {
		raceType, prev, prevStack = RaceTypeWriteRead, vs.W, vs.WStack
	}

	if vs.IsPromoted() {
		vs.AddSharedRead(cur, stack)
	} else {
		re, _ := vs.ReadEpoch()
		if re.IsZero() || re.TID() == cur.TID() || re.HappensBefore(ctx.C) {
			vs.SetReadEpoch(cur, stack)
		} else {
			vs.PromoteToReadClock(cur, stack)
		}
	}

	objTag := pickTag(tag, vs.Tag)
	vs.Unlock()

	if raceType != "" {
		d.reportRace(raceType, addr, objTag, ctx, cur, stack, prev, prevStack)
	}
}

// firstConcurrentRead finds a shared read that does not happen-before ctx.
// The caller holds vs's lock.
func firstConcurrentRead(vs *shadowmem.VarState, ctx *goroutine.RaceContext) (epoch.Epoch, bool) {
	rc := vs.ReadClock()
	if rc.LessOrEqual(ctx.C) {
		return 0, false
	}
	for tid := uint32(0); int(tid) < rc.Len(); tid++ {
		clock := rc.Get(tid)
		if clock > ctx.C.Get(tid) {
			return epoch.NewEpoch(tid, clock), true
		}
	}
	return 0, false
}

// pickTag prefers the tag of the access over the one assigned to the object.
func pickTag(access, assigned uintptr) uintptr {
	if access != 0 {
		return access
	}
	return assigned
}
