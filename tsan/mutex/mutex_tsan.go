//go:build tsan

package mutex

import (
	"unsafe"

	"github.com/kolkov/tsanshim/internal/race/api"
)

// Enabled reports whether annotations are forwarded to the engine.
const Enabled = true

// Create announces a mutex at addr.
func Create(addr unsafe.Pointer, flags Flags) {
	api.MutexCreate(addr, uint32(flags))
}

// Destroy announces that the mutex at addr is gone.
func Destroy(addr unsafe.Pointer, flags Flags) {
	api.MutexDestroy(addr, uint32(flags))
}

// PreLock is called before acquiring the mutex.
func PreLock(addr unsafe.Pointer, flags Flags) {
	api.MutexPreLock(addr, uint32(flags))
}

// PostLock is called after the acquisition attempt. recursion is the number
// of times the lock was taken at once; 0 means 1.
func PostLock(addr unsafe.Pointer, flags Flags, recursion int) {
	api.MutexPostLock(addr, uint32(flags), recursion)
}

// PreUnlock is called before releasing the mutex. Its result must be passed
// to PostUnlock.
func PreUnlock(addr unsafe.Pointer, flags Flags) Flags {
	return Flags(api.MutexPreUnlock(addr, uint32(flags)))
}

// PostUnlock is called after releasing the mutex.
func PostUnlock(addr unsafe.Pointer, flags Flags) {
	api.MutexPostUnlock(addr, uint32(flags))
}

// PreSignal is called before waking waiters of the mutex.
func PreSignal(addr unsafe.Pointer, flags Flags) {
	api.MutexPreSignal(addr, uint32(flags))
}

// PostSignal is called after waking waiters of the mutex.
func PostSignal(addr unsafe.Pointer, flags Flags) {
	api.MutexPostSignal(addr, uint32(flags))
}

// PreDivert is called before running user code from inside a lock
// operation.
func PreDivert(addr unsafe.Pointer, flags Flags) {
	api.MutexPreDivert(addr, uint32(flags))
}

// PostDivert is called when the user code returned.
func PostDivert(addr unsafe.Pointer, flags Flags) {
	api.MutexPostDivert(addr, uint32(flags))
}
