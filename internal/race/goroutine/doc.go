// Package goroutine implements per-context race detection state for FastTrack.
//
// A RaceContext is one logical line of execution as the engine sees it: either
// the implicit "thread" context of a goroutine that entered the engine, or a
// fiber created through the fiber annotations. Each RaceContext stores:
//   - TID: engine-wide identifier, never reused
//   - C: Full vector clock
//   - Epoch: Cached C[TID] for O(1) fast-path access
//   - an ignore depth, raised while the runtime is inside its own mutex code
//
// The package keeps the epoch cache synchronized with C[TID] through
// IncrementClock and Acquire.
package goroutine
