package detector

// Mutex annotation flags. The bit positions are shared with every caller of
// the annotation API and must not change.
const (
	// MutexLinkerInit marks a mutex with static storage that is never
	// explicitly created. Destroying it while locked is not reported.
	MutexLinkerInit uint32 = 1 << 0
	// MutexWriteReentrant allows the owner to take the write lock again.
	MutexWriteReentrant uint32 = 1 << 1
	// MutexReadReentrant allows a reader to take the read lock again.
	MutexReadReentrant uint32 = 1 << 2
	// MutexReadLock marks a lock or unlock in shared mode.
	MutexReadLock uint32 = 1 << 3
	// MutexTryLock marks a non-blocking lock attempt.
	MutexTryLock uint32 = 1 << 4
	// MutexTryLockFailed marks a non-blocking lock attempt that failed.
	MutexTryLockFailed uint32 = 1 << 5
	// MutexNotStatic marks a mutex that is not a global.
	MutexNotStatic uint32 = 1 << 8

	MutexTryReadLock       = MutexReadLock | MutexTryLock
	MutexTryReadLockFailed = MutexTryReadLock | MutexTryLockFailed
)

// creationFlags are the flags a lock annotation may add to a mutex that was
// never explicitly created.
const creationFlags = MutexLinkerInit | MutexWriteReentrant | MutexReadReentrant | MutexNotStatic

// FiberSwitchNoSync suppresses the happens-before edge of a fiber switch.
const FiberSwitchNoSync uint32 = 1 << 0
