package api

import "github.com/kolkov/tsanshim/internal/race/detector"

// Flag bits understood by the engine. The facade packages declare the same
// values under their own types.
const (
	MutexLinkerInit        = detector.MutexLinkerInit
	MutexWriteReentrant    = detector.MutexWriteReentrant
	MutexReadReentrant     = detector.MutexReadReentrant
	MutexReadLock          = detector.MutexReadLock
	MutexTryLock           = detector.MutexTryLock
	MutexTryLockFailed     = detector.MutexTryLockFailed
	MutexNotStatic         = detector.MutexNotStatic
	MutexTryReadLock       = detector.MutexTryReadLock
	MutexTryReadLockFailed = detector.MutexTryReadLockFailed

	FiberSwitchNoSync = detector.FiberSwitchNoSync
)
