// Package shadowmem implements shadow memory cells for FastTrack race detection.
//
// The engine only sees memory accesses that a runtime reports explicitly
// through the external read/write annotations, so shadow memory is keyed by
// the exact reported address and holds one VarState per object.
//
// # Overview
//
// Each VarState records:
//   - W: The last write epoch (context TID + logical clock) and its stack
//   - R: The last read epoch, or a read vector clock once reads are shared
//   - Tag: the object tag assigned to the address, if any
//
// The detector compares these against the accessing context's clock. If an
// earlier access is not ordered by happens-before and at least one of the
// two is a write, a race is reported.
//
// # Usage
//
//	sm := shadowmem.NewShadowMemory()
//	vs := sm.GetOrCreate(addr)
//	vs.Lock()
//	if !vs.W.HappensBefore(ctx.C) { ... }
//	vs.SetWrite(ctx.GetEpoch(), stackID)
//	vs.Unlock()
package shadowmem
