//go:build !tsan

package mutex

import "unsafe"

// Enabled reports whether annotations are forwarded to the engine.
const Enabled = false

func Create(addr unsafe.Pointer, flags Flags) {}

func Destroy(addr unsafe.Pointer, flags Flags) {}

func PreLock(addr unsafe.Pointer, flags Flags) {}

func PostLock(addr unsafe.Pointer, flags Flags, recursion int) {}

// PreUnlock returns 0.
func PreUnlock(addr unsafe.Pointer, flags Flags) Flags { return 0 }

func PostUnlock(addr unsafe.Pointer, flags Flags) {}

func PreSignal(addr unsafe.Pointer, flags Flags) {}

func PostSignal(addr unsafe.Pointer, flags Flags) {}

func PreDivert(addr unsafe.Pointer, flags Flags) {}

func PostDivert(addr unsafe.Pointer, flags Flags) {}
