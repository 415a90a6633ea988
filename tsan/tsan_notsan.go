//go:build !tsan

package tsan

import "unsafe"

// Enabled reports whether annotations are forwarded to the engine.
const Enabled = false

func Acquire(addr unsafe.Pointer) {}

func Release(addr unsafe.Pointer) {}

func OnInitialize() {}

// OnFinalize returns failed unchanged.
func OnFinalize(failed int) int { return failed }

// RegisterTag returns the zero Tag.
func RegisterTag(objectType string) Tag { return 0 }

func RegisterHeader(tag Tag, header string) {}

func AssignTag(addr unsafe.Pointer, tag Tag) {}

func ExternalRead(addr unsafe.Pointer, callerPC uintptr, tag Tag) {}

func ExternalWrite(addr unsafe.Pointer, callerPC uintptr, tag Tag) {}
