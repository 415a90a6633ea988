// Package syncshadow implements shadow memory for synchronization objects.
//
// Every address the engine has seen in an acquire/release, mutex or fiber
// annotation maps to a SyncVar. The SyncVar carries the release clocks that
// create happens-before edges and, for annotated mutexes, the lock state the
// engine uses to validate the pre/post protocol:
//
//	Create  -> Created, CreationFlags
//	PostLock   -> Owner/Recursion (write) or Readers (read), acquire clocks
//	PreUnlock  -> release clocks, Owner/Recursion/Readers
//	Destroy -> entry removed
//
// Thread Safety: SyncShadow is safe for concurrent use. A SyncVar is guarded by
// its own mutex, taken with Lock/Unlock; accessor methods assume it is held.
package syncshadow
