// Package mutex annotates a runtime's own mutex implementation.
//
// Every lock operation is bracketed by a pre and a post annotation on the
// mutex address. The engine ignores the memory traffic in between (the
// lock's own state) and derives happens-before edges from the pairs:
//
//	mutex.PreLock(addr, 0)
//	// acquire the lock word
//	mutex.PostLock(addr, 0, 0)
//	...
//	f := mutex.PreUnlock(addr, 0)
//	// release the lock word
//	mutex.PostUnlock(addr, f)
//
// A failed try-lock is reported as PostLock(addr, TryLock|TryLockFailed, 0).
// The flags returned by PreUnlock must be passed to PostUnlock unchanged.
package mutex

// Flags describe a mutex or a single lock operation.
type Flags uint32

// Flag bits. The values are shared with the engine and must not change.
const (
	// LinkerInit marks a mutex with static storage that is never created
	// explicitly.
	LinkerInit Flags = 1 << 0
	// WriteReentrant allows the holder to take the write lock again.
	WriteReentrant Flags = 1 << 1
	// ReadReentrant allows a reader to take the read lock again.
	ReadReentrant Flags = 1 << 2
	// ReadLock marks a shared-mode operation.
	ReadLock Flags = 1 << 3
	// TryLock marks a non-blocking attempt.
	TryLock Flags = 1 << 4
	// TryLockFailed marks a non-blocking attempt that did not acquire.
	TryLockFailed Flags = 1 << 5
	// NotStatic marks a mutex that is not a global.
	NotStatic Flags = 1 << 8

	TryReadLock       = ReadLock | TryLock
	TryReadLockFailed = TryReadLock | TryLockFailed
)
