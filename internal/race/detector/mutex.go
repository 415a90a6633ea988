package detector

import (
	"github.com/kolkov/tsanshim/internal/race/goroutine"
	"github.com/kolkov/tsanshim/internal/race/syncshadow"
)

// Mutex misuse kinds, used as report titles.
const (
	BugDoubleLock         = "double lock of a mutex"
	BugReadLockOfWrite    = "read lock of a write locked mutex"
	BugWriteLockOfRead    = "write lock of a read locked mutex"
	BugBadUnlock          = "unlock of an unlocked mutex (or by a wrong context)"
	BugReadUnlockOfWrite  = "read unlock of a write locked mutex"
	BugWriteUnlockOfRead  = "write unlock of a read locked mutex"
	BugDestroyLocked      = "destroy of a locked mutex"
	BugUnbalancedAnnotate = "unbalanced mutex annotation"
)

// MutexCreate registers a mutex at addr. Re-creating an address clears any
// lock state left behind by a missing destroy.
func (d *Detector) MutexCreate(addr uintptr, flags uint32, _ *goroutine.RaceContext) {
	sv := d.syncShadow.GetOrCreate(addr)
	sv.Lock()
	sv.Created = true
	sv.CreationFlags = flags & creationFlags
	sv.Owner, sv.Recursion, sv.Readers = nil, 0, 0
	sv.Unlock()
}

// MutexDestroy drops the mutex at addr. Destroying a locked mutex is
// reported unless the mutex is linker-initialized.
func (d *Detector) MutexDestroy(addr uintptr, flags uint32, ctx *goroutine.RaceContext) {
	sv, ok := d.syncShadow.Load(addr)
	if !ok {
		return
	}
	sv.Lock()
	locked := sv.Locked()
	linkerInit := sv.HasFlag(MutexLinkerInit) || flags&MutexLinkerInit != 0
	sv.Unlock()
	d.syncShadow.Delete(addr)

	if locked && !linkerInit && d.cfg.ReportDestroyLocked {
		d.reportMutexBug(BugDestroyLocked, addr, ctx)
	}
}

// MutexPreLock is called before the runtime starts acquiring the mutex.
// The runtime's locking code runs inside an ignore region.
func (d *Detector) MutexPreLock(_ uintptr, _ uint32, ctx *goroutine.RaceContext) {
	ctx.IgnoreBegin()
}

// MutexPostLock is called once the lock attempt finished.
//
// Algorithm:
//   - TryLockFailed: nothing was acquired, state unchanged
//   - write lock, first acquisition: owner := t, Ct := Ct ⊔ Lm ⊔ Rm
//   - write lock by the owner: recursion += n (double lock unless reentrant)
//   - read lock: readers++, Ct := Ct ⊔ Lm
//
// recursion <= 0 counts as a single acquisition.
func (d *Detector) MutexPostLock(addr uintptr, flags uint32, recursion int, ctx *goroutine.RaceContext) {
	d.endIgnore(addr, ctx)

	if flags&MutexTryLockFailed != 0 {
		return
	}
	if recursion <= 0 {
		recursion = 1
	}

	sv := d.syncShadow.GetOrCreate(addr)
	sv.Lock()
	if !sv.Created {
		sv.CreationFlags |= flags & creationFlags
	}

	var bug string
	if flags&MutexReadLock != 0 {
		if sv.Owner != nil {
			bug = BugReadLockOfWrite
		}
		sv.Readers++
		ctx.Acquire(sv.GetReleaseClock())
	} else {
		switch {
		case sv.Owner == ctx:
			if !sv.HasFlag(MutexWriteReentrant) && flags&MutexWriteReentrant == 0 {
				bug = BugDoubleLock
			}
			sv.Recursion += recursion
		case sv.Owner != nil:
			bug = BugDoubleLock
			takeWriteLock(sv, ctx, recursion)
		default:
			if sv.Readers > 0 {
				bug = BugWriteLockOfRead
			}
			takeWriteLock(sv, ctx, recursion)
		}
	}
	sv.Unlock()

	if bug != "" {
		d.reportMutexBug(bug, addr, ctx)
	}
}

func takeWriteLock(sv *syncshadow.SyncVar, ctx *goroutine.RaceContext, recursion int) {
	sv.Owner = ctx
	sv.Recursion = recursion
	ctx.Acquire(sv.GetReleaseClock())
	ctx.Acquire(sv.GetReadClock())
}

// MutexPreUnlock is called before the runtime releases the mutex. It
// performs the release and returns the flags to pass to MutexPostUnlock,
// with MutexReadLock set to the mode the mutex was actually held in.
//
// Algorithm:
//   - write unlock: recursion--, and at zero Lm := Ct, Ct[t]++
//   - read unlock: readers--, Rm := Rm ⊔ Ct, Ct[t]++
func (d *Detector) MutexPreUnlock(addr uintptr, flags uint32, ctx *goroutine.RaceContext) uint32 {
	sv := d.syncShadow.GetOrCreate(addr)
	sv.Lock()

	var bug string
	read := flags&MutexReadLock != 0
	switch {
	case read && sv.Owner != nil && sv.Readers == 0:
		bug, read = BugReadUnlockOfWrite, false
	case !read && sv.Owner == nil && sv.Readers > 0:
		bug, read = BugWriteUnlockOfRead, true
	}

	if read {
		flags |= MutexReadLock
		if sv.Readers == 0 {
			bug = BugBadUnlock
		} else {
			sv.Readers--
			sv.MergeReadClock(ctx.C)
			ctx.IncrementClock()
		}
	} else {
		flags &^= MutexReadLock
		switch {
		case sv.Owner != ctx:
			bug = BugBadUnlock
		default:
			sv.Recursion--
			if sv.Recursion <= 0 {
				sv.Owner, sv.Recursion = nil, 0
				sv.StoreReleaseClock(ctx.C)
				ctx.IncrementClock()
			}
		}
	}
	sv.Unlock()

	if bug != "" {
		d.reportMutexBug(bug, addr, ctx)
	}
	ctx.IgnoreBegin()
	return flags
}

// MutexPostUnlock is called after the runtime released the mutex.
func (d *Detector) MutexPostUnlock(addr uintptr, _ uint32, ctx *goroutine.RaceContext) {
	d.endIgnore(addr, ctx)
}

// MutexPreSignal is called before the runtime wakes waiters of addr.
func (d *Detector) MutexPreSignal(_ uintptr, _ uint32, ctx *goroutine.RaceContext) {
	ctx.IgnoreBegin()
}

// MutexPostSignal is called after the runtime woke waiters of addr.
func (d *Detector) MutexPostSignal(addr uintptr, _ uint32, ctx *goroutine.RaceContext) {
	d.endIgnore(addr, ctx)
}

// MutexPreDivert leaves the ignore region while the runtime calls back into
// user code from inside a lock operation.
func (d *Detector) MutexPreDivert(addr uintptr, _ uint32, ctx *goroutine.RaceContext) {
	d.endIgnore(addr, ctx)
}

// MutexPostDivert re-enters the ignore region after the callback returned.
func (d *Detector) MutexPostDivert(_ uintptr, _ uint32, ctx *goroutine.RaceContext) {
	ctx.IgnoreBegin()
}

// endIgnore closes an ignore region, reporting a post annotation that has
// no matching pre annotation.
func (d *Detector) endIgnore(addr uintptr, ctx *goroutine.RaceContext) {
	if !ctx.IgnoreEnd() {
		d.reportMutexBug(BugUnbalancedAnnotate, addr, ctx)
	}
}
