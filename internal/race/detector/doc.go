// Package detector implements the annotation engine behind the tsan facade.
//
// The detector receives the annotations a concurrency runtime emits about
// its own primitives (mutexes, fibers, acquire/release tokens) and the
// external object accesses it chooses to report, and maintains a FastTrack
// happens-before model over them (PLDI 2009).
//
// # Architecture
//
//  1. Contexts: one RaceContext per goroutine ("thread") and per fiber
//  2. Sync shadow: a SyncVar per synchronization address (mutex state and
//     release clocks)
//  3. Shadow memory: a VarState per externally accessed object
//  4. Reports: deduplicated "WARNING: DATA RACE" and mutex misuse blocks
//
// # Ignore Regions
//
// The runtime's own lock implementation touches memory that must not be
// checked. Pre-lock, pre-unlock and pre-signal annotations open an ignore
// region on the calling context, the matching post annotation closes it.
// A divert (the runtime calling back into user code from inside a lock
// operation) closes the region for the duration of the callback.
//
// # Thread Safety
//
// All detector operations are thread-safe. A RaceContext's clock is only
// touched by the goroutine currently running that context.
//
// # Example Usage
//
//	d := NewDetector(DefaultConfig())
//	ctx := d.NewContext(goroutine.KindThread)
//	d.MutexCreate(mu, 0, ctx)
//	d.MutexPreLock(mu, 0, ctx)
//	d.MutexPostLock(mu, 0, 1, ctx)
package detector
