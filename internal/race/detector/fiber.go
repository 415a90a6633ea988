package detector

import (
	"unsafe"

	"github.com/kolkov/tsanshim/internal/race/goroutine"
)

// Fiber misuse kinds.
const (
	BugDestroyRunningFiber = "destroy of the running fiber"
	BugDoubleFiberDestroy  = "double destroy of a fiber"
	BugSwitchToDeadFiber   = "switch to a destroyed fiber"
)

// FiberKey is the sync address used for the hand-off into fiber f.
func FiberKey(f *goroutine.RaceContext) uintptr {
	return uintptr(unsafe.Pointer(f))
}

// FiberCreate creates a fiber context on behalf of parent.
//
// The creation happens-before everything the fiber does: the fiber starts
// from the parent's clock and the parent moves on to a new epoch.
func (d *Detector) FiberCreate(_ uint32, parent *goroutine.RaceContext) *goroutine.RaceContext {
	f := d.NewContext(goroutine.KindFiber)
	f.Acquire(parent.C)
	parent.IncrementClock()
	d.log.Debug("fiber created", "fiber", f.TID, "parent", parent.TID)
	return f
}

// FiberDestroy retires f. Destroying the fiber that is running (cur) or a
// fiber that was already destroyed is reported and ignored.
func (d *Detector) FiberDestroy(f, cur *goroutine.RaceContext) {
	if f == cur {
		d.reportMutexBug(BugDestroyRunningFiber, FiberKey(f), cur)
		return
	}
	if !f.MarkDead() {
		d.reportMutexBug(BugDoubleFiberDestroy, FiberKey(f), cur)
		return
	}
	d.syncShadow.Delete(FiberKey(f))
	d.log.Debug("fiber destroyed", "fiber", f.TID)
}

// FiberSwitch hands execution from the running context to fiber to.
//
// Unless flags carries FiberSwitchNoSync, the switch is a release on the
// fiber's key by from and an acquire by to, so everything before the switch
// happens-before everything the fiber does next. It returns false, after
// reporting, when to was destroyed; the caller must not make it current.
func (d *Detector) FiberSwitch(from, to *goroutine.RaceContext, flags uint32) bool {
	if to.Dead() {
		d.reportMutexBug(BugSwitchToDeadFiber, FiberKey(to), from)
		return false
	}
	if flags&FiberSwitchNoSync == 0 {
		key := FiberKey(to)
		d.OnRelease(key, from)
		d.OnAcquire(key, to)
	}
	if d.log.IsTrace() {
		d.log.Trace("fiber switch", "from", from.TID, "to", to.TID, "flags", flags)
	}
	return true
}

// FiberSetName labels f in reports.
func (d *Detector) FiberSetName(f *goroutine.RaceContext, name string) {
	f.SetName(name)
}
