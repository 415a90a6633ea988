// Package fiber annotates cooperatively scheduled execution contexts.
//
// A runtime that multiplexes fibers onto goroutines calls SwitchTo right
// before transferring control, so the engine attributes subsequent
// operations to the fiber and orders them after the switch:
//
//	f := fiber.Create(0)
//	fiber.SetName(f, "worker")
//	fiber.SwitchTo(f, 0)
//	// run the fiber's stack
//
// The goroutine's own context, returned by GetCurrent before any switch,
// can be switched back to like any fiber.
package fiber

import "unsafe"

// Fiber is an opaque handle to an engine execution context.
type Fiber unsafe.Pointer

// SwitchFlags modify a fiber switch.
type SwitchFlags uint32

// NoSync switches without creating a happens-before edge. Use it when the
// runtime synchronizes the hand-off some other way.
const NoSync SwitchFlags = 1 << 0
