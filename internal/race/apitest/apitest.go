// Package apitest provides Runtime doubles for testing code that calls the
// engine entry points.
package apitest

import (
	"bytes"
	"sync"
	"testing"
	"unsafe"

	"github.com/kolkov/tsanshim/internal/race/api"
	"github.com/kolkov/tsanshim/internal/race/detector"
)

// Call is one entry point invocation. Addresses and fiber handles are
// recorded as uintptr.
type Call struct {
	Name string
	Args []any
}

// Recorder is a Runtime that logs every call.
//
// Return values are configurable: PreUnlock defaults to echoing the flags,
// fiber calls return Fiber, ExternalRegisterTag returns Tag and OnFinalize
// returns Exit (or failed when Exit is nil).
type Recorder struct {
	PreUnlock func(flags uint32) uint32
	Fiber     unsafe.Pointer
	Tag       uintptr
	Exit      func(failed int) int

	mu    sync.Mutex
	calls []Call
}

var _ api.Runtime = (*Recorder)(nil)

// Install installs a new Recorder for the duration of the test.
func Install(tb testing.TB) *Recorder {
	tb.Helper()
	r := &Recorder{}
	tb.Cleanup(api.SetRuntime(r))
	return r
}

// InstallNop installs Nop for the duration of the test.
func InstallNop(tb testing.TB) {
	tb.Helper()
	tb.Cleanup(api.SetRuntime(Nop{}))
}

// InstallEngine installs a fresh engine whose reports go to the returned
// buffer. A halt is a test failure.
func InstallEngine(tb testing.TB) (*detector.Detector, *bytes.Buffer) {
	tb.Helper()
	var out bytes.Buffer
	cfg := detector.DefaultConfig()
	cfg.Output = &out
	cfg.Exit = func(code int) { tb.Errorf("engine halted with exit code %d", code) }
	det := detector.NewDetector(cfg)
	tb.Cleanup(api.SetRuntime(api.NewEngine(det, nil)))
	return det, &out
}

// Calls returns a copy of the call log.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Reset clears the call log.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *Recorder) add(name string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Name: name, Args: args})
	r.mu.Unlock()
}

func addr(p unsafe.Pointer) uintptr { return uintptr(p) }

func (r *Recorder) Acquire(a unsafe.Pointer) { r.add("Acquire", addr(a)) }
func (r *Recorder) Release(a unsafe.Pointer) { r.add("Release", addr(a)) }

func (r *Recorder) MutexCreate(a unsafe.Pointer, f uint32)  { r.add("MutexCreate", addr(a), f) }
func (r *Recorder) MutexDestroy(a unsafe.Pointer, f uint32) { r.add("MutexDestroy", addr(a), f) }
func (r *Recorder) MutexPreLock(a unsafe.Pointer, f uint32) { r.add("MutexPreLock", addr(a), f) }

func (r *Recorder) MutexPostLock(a unsafe.Pointer, f uint32, recursion int) {
	r.add("MutexPostLock", addr(a), f, recursion)
}

func (r *Recorder) MutexPreUnlock(a unsafe.Pointer, f uint32) uint32 {
	r.add("MutexPreUnlock", addr(a), f)
	if r.PreUnlock != nil {
		return r.PreUnlock(f)
	}
	return f
}

func (r *Recorder) MutexPostUnlock(a unsafe.Pointer, f uint32) { r.add("MutexPostUnlock", addr(a), f) }
func (r *Recorder) MutexPreSignal(a unsafe.Pointer, f uint32)  { r.add("MutexPreSignal", addr(a), f) }
func (r *Recorder) MutexPostSignal(a unsafe.Pointer, f uint32) { r.add("MutexPostSignal", addr(a), f) }
func (r *Recorder) MutexPreDivert(a unsafe.Pointer, f uint32)  { r.add("MutexPreDivert", addr(a), f) }
func (r *Recorder) MutexPostDivert(a unsafe.Pointer, f uint32) { r.add("MutexPostDivert", addr(a), f) }

func (r *Recorder) ExternalRegisterTag(objectType string) uintptr {
	r.add("ExternalRegisterTag", objectType)
	return r.Tag
}

func (r *Recorder) ExternalRegisterHeader(tag uintptr, header string) {
	r.add("ExternalRegisterHeader", tag, header)
}

func (r *Recorder) ExternalAssignTag(a unsafe.Pointer, tag uintptr) {
	r.add("ExternalAssignTag", addr(a), tag)
}

func (r *Recorder) ExternalRead(a unsafe.Pointer, pc, tag uintptr) {
	r.add("ExternalRead", addr(a), pc, tag)
}

func (r *Recorder) ExternalWrite(a unsafe.Pointer, pc, tag uintptr) {
	r.add("ExternalWrite", addr(a), pc, tag)
}

func (r *Recorder) GetCurrentFiber() unsafe.Pointer {
	r.add("GetCurrentFiber")
	return r.Fiber
}

func (r *Recorder) CreateFiber(f uint32) unsafe.Pointer {
	r.add("CreateFiber", f)
	return r.Fiber
}

func (r *Recorder) DestroyFiber(fb unsafe.Pointer) { r.add("DestroyFiber", addr(fb)) }

func (r *Recorder) SwitchToFiber(fb unsafe.Pointer, f uint32) {
	r.add("SwitchToFiber", addr(fb), f)
}

func (r *Recorder) SetFiberName(fb unsafe.Pointer, name string) {
	r.add("SetFiberName", addr(fb), name)
}

func (r *Recorder) OnInitialize() { r.add("OnInitialize") }

func (r *Recorder) OnFinalize(failed int) int {
	r.add("OnFinalize", failed)
	if r.Exit != nil {
		return r.Exit(failed)
	}
	return failed
}

// Nop is a Runtime that ignores every call and returns zero values, except
// MutexPreUnlock which echoes its flags.
type Nop struct{}

var _ api.Runtime = Nop{}

func (Nop) Acquire(unsafe.Pointer)                           {}
func (Nop) Release(unsafe.Pointer)                           {}
func (Nop) MutexCreate(unsafe.Pointer, uint32)               {}
func (Nop) MutexDestroy(unsafe.Pointer, uint32)              {}
func (Nop) MutexPreLock(unsafe.Pointer, uint32)              {}
func (Nop) MutexPostLock(unsafe.Pointer, uint32, int)        {}
func (Nop) MutexPreUnlock(_ unsafe.Pointer, f uint32) uint32 { return f }
func (Nop) MutexPostUnlock(unsafe.Pointer, uint32)           {}
func (Nop) MutexPreSignal(unsafe.Pointer, uint32)            {}
func (Nop) MutexPostSignal(unsafe.Pointer, uint32)           {}
func (Nop) MutexPreDivert(unsafe.Pointer, uint32)            {}
func (Nop) MutexPostDivert(unsafe.Pointer, uint32)           {}
func (Nop) ExternalRegisterTag(string) uintptr               { return 0 }
func (Nop) ExternalRegisterHeader(uintptr, string)           {}
func (Nop) ExternalAssignTag(unsafe.Pointer, uintptr)        {}
func (Nop) ExternalRead(unsafe.Pointer, uintptr, uintptr)    {}
func (Nop) ExternalWrite(unsafe.Pointer, uintptr, uintptr)   {}
func (Nop) GetCurrentFiber() unsafe.Pointer                  { return nil }
func (Nop) CreateFiber(uint32) unsafe.Pointer                { return nil }
func (Nop) DestroyFiber(unsafe.Pointer)                      {}
func (Nop) SwitchToFiber(unsafe.Pointer, uint32)             {}
func (Nop) SetFiberName(unsafe.Pointer, string)              {}
func (Nop) OnInitialize()                                    {}
func (Nop) OnFinalize(failed int) int                        { return failed }
