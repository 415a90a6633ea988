//go:build !tsan

package fiber

// Enabled reports whether annotations are forwarded to the engine.
const Enabled = false

// GetCurrent returns nil.
func GetCurrent() Fiber { return nil }

// Create returns nil.
func Create(flags SwitchFlags) Fiber { return nil }

func Destroy(f Fiber) {}

func SwitchTo(f Fiber, flags SwitchFlags) {}

func SetName(f Fiber, name string) {}
