//go:build tsan

package mutex

import (
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"

	"github.com/kolkov/tsanshim/internal/race/api"
	"github.com/kolkov/tsanshim/internal/race/apitest"
)

func addr(p unsafe.Pointer) uintptr { return uintptr(p) }

func TestActive_Forwarding(t *testing.T) {
	rec := apitest.Install(t)
	var mu int
	m := unsafe.Pointer(&mu)

	if !Enabled {
		t.Fatal("Enabled = false with the tsan tag")
	}

	Create(m, NotStatic)
	PreLock(m, 0)
	PostLock(m, 0, 0)
	f := PreUnlock(m, 0)
	PostUnlock(m, f)
	PreSignal(m, ReadLock)
	PostSignal(m, ReadLock)
	PreDivert(m, WriteReentrant)
	PostDivert(m, WriteReentrant)
	Destroy(m, 0)

	want := []apitest.Call{
		{Name: "MutexCreate", Args: []any{addr(m), uint32(NotStatic)}},
		{Name: "MutexPreLock", Args: []any{addr(m), uint32(0)}},
		{Name: "MutexPostLock", Args: []any{addr(m), uint32(0), 0}},
		{Name: "MutexPreUnlock", Args: []any{addr(m), uint32(0)}},
		{Name: "MutexPostUnlock", Args: []any{addr(m), uint32(0)}},
		{Name: "MutexPreSignal", Args: []any{addr(m), uint32(ReadLock)}},
		{Name: "MutexPostSignal", Args: []any{addr(m), uint32(ReadLock)}},
		{Name: "MutexPreDivert", Args: []any{addr(m), uint32(WriteReentrant)}},
		{Name: "MutexPostDivert", Args: []any{addr(m), uint32(WriteReentrant)}},
		{Name: "MutexDestroy", Args: []any{addr(m), uint32(0)}},
	}
	if diff := cmp.Diff(want, rec.Calls()); diff != "" {
		t.Errorf("call log mismatch (-want +got):\n%s", diff)
	}
}

func TestActive_MutexScenario(t *testing.T) {
	rec := apitest.Install(t)
	var mu int
	m := unsafe.Pointer(&mu)

	Create(m, WriteReentrant)
	PreLock(m, 0)
	PostLock(m, 0, 0)
	f := PreUnlock(m, 0)
	PostUnlock(m, f)
	Destroy(m, 0)

	want := []apitest.Call{
		{Name: "MutexCreate", Args: []any{addr(m), uint32(WriteReentrant)}},
		{Name: "MutexPreLock", Args: []any{addr(m), uint32(0)}},
		{Name: "MutexPostLock", Args: []any{addr(m), uint32(0), 0}},
		{Name: "MutexPreUnlock", Args: []any{addr(m), uint32(0)}},
		{Name: "MutexPostUnlock", Args: []any{addr(m), uint32(f)}},
		{Name: "MutexDestroy", Args: []any{addr(m), uint32(0)}},
	}
	if diff := cmp.Diff(want, rec.Calls()); diff != "" {
		t.Errorf("call log mismatch (-want +got):\n%s", diff)
	}
}

func TestActive_PreUnlockRoundTrip(t *testing.T) {
	rec := apitest.Install(t)
	rec.PreUnlock = func(uint32) uint32 { return uint32(ReadLock | NotStatic) }
	var mu int
	m := unsafe.Pointer(&mu)

	f := PreUnlock(m, ReadLock)
	PostUnlock(m, f)

	if f != ReadLock|NotStatic {
		t.Errorf("PreUnlock() = %#x, want %#x", f, ReadLock|NotStatic)
	}
	calls := rec.Calls()
	if got := calls[len(calls)-1].Args[1]; got != uint32(ReadLock|NotStatic) {
		t.Errorf("PostUnlock flags = %v, want %#x", got, ReadLock|NotStatic)
	}
}

func TestActive_TryLockFailure(t *testing.T) {
	rec := apitest.Install(t)
	var mu int
	m := unsafe.Pointer(&mu)

	PreLock(m, TryLock)
	PostLock(m, TryLock|TryLockFailed, 0)

	want := []apitest.Call{
		{Name: "MutexPreLock", Args: []any{addr(m), uint32(TryLock)}},
		{Name: "MutexPostLock", Args: []any{addr(m), uint32(TryLock | TryLockFailed), 0}},
	}
	if diff := cmp.Diff(want, rec.Calls()); diff != "" {
		t.Errorf("call log mismatch (-want +got):\n%s", diff)
	}
}

func TestActive_ZeroAllocs(t *testing.T) {
	apitest.InstallNop(t)
	var mu int
	m := unsafe.Pointer(&mu)

	allocs := testing.AllocsPerRun(100, func() {
		PreLock(m, 0)
		PostLock(m, 0, 0)
		PostUnlock(m, PreUnlock(m, 0))
	})
	if allocs != 0 {
		t.Errorf("allocs = %v, want 0", allocs)
	}
}

// spinLock is a runtime lock annotated the way the package documents.
type spinLock struct{ held int32 }

func (l *spinLock) lock() {
	PreLock(unsafe.Pointer(l), 0)
	l.held = 1
	PostLock(unsafe.Pointer(l), 0, 0)
}

func (l *spinLock) unlock() {
	f := PreUnlock(unsafe.Pointer(l), 0)
	l.held = 0
	PostUnlock(unsafe.Pointer(l), f)
}

func TestActive_EngineMutexScenario(t *testing.T) {
	det, out := apitest.InstallEngine(t)
	var l spinLock
	var obj int
	o := unsafe.Pointer(&obj)

	Create(unsafe.Pointer(&l), NotStatic)
	for i := 0; i < 2; i++ {
		done := make(chan struct{})
		go func() {
			defer close(done)
			l.lock()
			api.ExternalWrite(o, 0, 0)
			l.unlock()
		}()
		<-done
	}
	Destroy(unsafe.Pointer(&l), 0)

	if n := det.Warnings(); n != 0 {
		t.Errorf("Warnings() = %d, want 0\n%s", n, out)
	}
}

func TestActive_EngineDoubleLock(t *testing.T) {
	det, out := apitest.InstallEngine(t)
	var l spinLock

	l.lock()
	l.lock()

	if det.MutexBugs() != 1 {
		t.Errorf("MutexBugs() = %d, want 1\n%s", det.MutexBugs(), out)
	}
}
