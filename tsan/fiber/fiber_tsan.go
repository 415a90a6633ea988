//go:build tsan

package fiber

import (
	"unsafe"

	"github.com/kolkov/tsanshim/internal/race/api"
)

// Enabled reports whether annotations are forwarded to the engine.
const Enabled = true

// GetCurrent returns the context the calling goroutine is running.
func GetCurrent() Fiber {
	return Fiber(api.GetCurrentFiber())
}

// Create creates a fiber. Its creation happens-before its first operation.
func Create(flags SwitchFlags) Fiber {
	return Fiber(api.CreateFiber(uint32(flags)))
}

// Destroy retires f. It must not be running.
func Destroy(f Fiber) {
	api.DestroyFiber(unsafe.Pointer(f))
}

// SwitchTo makes f the calling goroutine's running context.
func SwitchTo(f Fiber, flags SwitchFlags) {
	api.SwitchToFiber(unsafe.Pointer(f), uint32(flags))
}

// SetName labels f in reports.
func SetName(f Fiber, name string) {
	api.SetFiberName(unsafe.Pointer(f), name)
}
