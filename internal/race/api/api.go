// Package api is the entry point block of the annotation engine.
//
// Every annotation the tsan facade packages forward in active builds lands
// on one of the functions below. They dispatch to the installed Runtime,
// which is the in-tree engine unless a test swapped in a double with
// SetRuntime.
//
// The functions mirror the engine's C-level contract: addresses and fiber
// handles are opaque pointers owned by the caller, flags are the raw bit
// sets, nothing returns an error. Diagnostics are reports written by the
// engine.
package api

import (
	"sync/atomic"
	"unsafe"
)

// Runtime is the set of engine entry points.
type Runtime interface {
	Acquire(addr unsafe.Pointer)
	Release(addr unsafe.Pointer)

	MutexCreate(addr unsafe.Pointer, flags uint32)
	MutexDestroy(addr unsafe.Pointer, flags uint32)
	MutexPreLock(addr unsafe.Pointer, flags uint32)
	MutexPostLock(addr unsafe.Pointer, flags uint32, recursion int)
	MutexPreUnlock(addr unsafe.Pointer, flags uint32) uint32
	MutexPostUnlock(addr unsafe.Pointer, flags uint32)
	MutexPreSignal(addr unsafe.Pointer, flags uint32)
	MutexPostSignal(addr unsafe.Pointer, flags uint32)
	MutexPreDivert(addr unsafe.Pointer, flags uint32)
	MutexPostDivert(addr unsafe.Pointer, flags uint32)

	ExternalRegisterTag(objectType string) uintptr
	ExternalRegisterHeader(tag uintptr, header string)
	ExternalAssignTag(addr unsafe.Pointer, tag uintptr)
	ExternalRead(addr unsafe.Pointer, callerPC, tag uintptr)
	ExternalWrite(addr unsafe.Pointer, callerPC, tag uintptr)

	GetCurrentFiber() unsafe.Pointer
	CreateFiber(flags uint32) unsafe.Pointer
	DestroyFiber(fiber unsafe.Pointer)
	SwitchToFiber(fiber unsafe.Pointer, flags uint32)
	SetFiberName(fiber unsafe.Pointer, name string)

	OnInitialize()
	OnFinalize(failed int) int
}

// installed wraps the Runtime so it can live in an atomic.Pointer.
type installed struct {
	r Runtime
}

var current atomic.Pointer[installed]

// SetRuntime installs r and returns a function restoring the previous
// runtime.
//
// Example:
//
//	rec := &recorder{}
//	defer api.SetRuntime(rec)()
func SetRuntime(r Runtime) (restore func()) {
	prev := current.Swap(&installed{r: r})
	return func() { current.Store(prev) }
}

// rt returns the installed runtime. On first use the default engine is
// started and installed, so later calls cost a single atomic load.
func rt() Runtime {
	for {
		if p := current.Load(); p != nil {
			return p.r
		}
		current.CompareAndSwap(nil, &installed{r: defaultEngine()})
	}
}

// Acquire is __tsan_acquire.
func Acquire(addr unsafe.Pointer) { rt().Acquire(addr) }

// Release is __tsan_release.
func Release(addr unsafe.Pointer) { rt().Release(addr) }

// MutexCreate is __tsan_mutex_create.
func MutexCreate(addr unsafe.Pointer, flags uint32) { rt().MutexCreate(addr, flags) }

// MutexDestroy is __tsan_mutex_destroy.
func MutexDestroy(addr unsafe.Pointer, flags uint32) { rt().MutexDestroy(addr, flags) }

// MutexPreLock is __tsan_mutex_pre_lock.
func MutexPreLock(addr unsafe.Pointer, flags uint32) { rt().MutexPreLock(addr, flags) }

// MutexPostLock is __tsan_mutex_post_lock.
func MutexPostLock(addr unsafe.Pointer, flags uint32, recursion int) {
	rt().MutexPostLock(addr, flags, recursion)
}

// MutexPreUnlock is __tsan_mutex_pre_unlock. The result must be passed to
// MutexPostUnlock.
func MutexPreUnlock(addr unsafe.Pointer, flags uint32) uint32 {
	return rt().MutexPreUnlock(addr, flags)
}

// MutexPostUnlock is __tsan_mutex_post_unlock.
func MutexPostUnlock(addr unsafe.Pointer, flags uint32) { rt().MutexPostUnlock(addr, flags) }

// MutexPreSignal is __tsan_mutex_pre_signal.
func MutexPreSignal(addr unsafe.Pointer, flags uint32) { rt().MutexPreSignal(addr, flags) }

// MutexPostSignal is __tsan_mutex_post_signal.
func MutexPostSignal(addr unsafe.Pointer, flags uint32) { rt().MutexPostSignal(addr, flags) }

// MutexPreDivert is __tsan_mutex_pre_divert.
func MutexPreDivert(addr unsafe.Pointer, flags uint32) { rt().MutexPreDivert(addr, flags) }

// MutexPostDivert is __tsan_mutex_post_divert.
func MutexPostDivert(addr unsafe.Pointer, flags uint32) { rt().MutexPostDivert(addr, flags) }

// ExternalRegisterTag is __tsan_external_register_tag.
func ExternalRegisterTag(objectType string) uintptr {
	return rt().ExternalRegisterTag(objectType)
}

// ExternalRegisterHeader is __tsan_external_register_header.
func ExternalRegisterHeader(tag uintptr, header string) {
	rt().ExternalRegisterHeader(tag, header)
}

// ExternalAssignTag is __tsan_external_assign_tag.
func ExternalAssignTag(addr unsafe.Pointer, tag uintptr) { rt().ExternalAssignTag(addr, tag) }

// ExternalRead is __tsan_external_read.
func ExternalRead(addr unsafe.Pointer, callerPC, tag uintptr) {
	rt().ExternalRead(addr, callerPC, tag)
}

// ExternalWrite is __tsan_external_write.
func ExternalWrite(addr unsafe.Pointer, callerPC, tag uintptr) {
	rt().ExternalWrite(addr, callerPC, tag)
}

// GetCurrentFiber is __tsan_get_current_fiber.
func GetCurrentFiber() unsafe.Pointer { return rt().GetCurrentFiber() }

// CreateFiber is __tsan_create_fiber.
func CreateFiber(flags uint32) unsafe.Pointer { return rt().CreateFiber(flags) }

// DestroyFiber is __tsan_destroy_fiber.
func DestroyFiber(fiber unsafe.Pointer) { rt().DestroyFiber(fiber) }

// SwitchToFiber is __tsan_switch_to_fiber.
func SwitchToFiber(fiber unsafe.Pointer, flags uint32) { rt().SwitchToFiber(fiber, flags) }

// SetFiberName is __tsan_set_fiber_name.
func SetFiberName(fiber unsafe.Pointer, name string) { rt().SetFiberName(fiber, name) }

// OnInitialize is __tsan_on_initialize.
func OnInitialize() { rt().OnInitialize() }

// OnFinalize is __tsan_on_finalize. It returns the exit code the program
// should use.
func OnFinalize(failed int) int { return rt().OnFinalize(failed) }
