//go:build tsan

package tsan

import (
	"unsafe"

	"github.com/kolkov/tsanshim/internal/race/api"
)

// Enabled reports whether annotations are forwarded to the engine.
const Enabled = true

// Acquire makes everything released on addr happen-before the caller's
// subsequent operations.
func Acquire(addr unsafe.Pointer) {
	api.Acquire(addr)
}

// Release publishes the caller's prior operations on addr for a later
// Acquire.
func Release(addr unsafe.Pointer) {
	api.Release(addr)
}

// OnInitialize tells the engine the program started.
func OnInitialize() {
	api.OnInitialize()
}

// OnFinalize tells the engine the program is exiting with failed and
// returns the exit code to use instead.
func OnFinalize(failed int) int {
	return api.OnFinalize(failed)
}

// RegisterTag registers an object type for external access reports.
func RegisterTag(objectType string) Tag {
	return Tag(api.ExternalRegisterTag(objectType))
}

// RegisterHeader sets the report header for races on objects of tag.
func RegisterHeader(tag Tag, header string) {
	api.ExternalRegisterHeader(uintptr(tag), header)
}

// AssignTag marks the object at addr as being of type tag.
func AssignTag(addr unsafe.Pointer, tag Tag) {
	api.ExternalAssignTag(addr, uintptr(tag))
}

// ExternalRead reports a read of the object at addr. callerPC, if not
// zero, is recorded as the top frame of the access.
func ExternalRead(addr unsafe.Pointer, callerPC uintptr, tag Tag) {
	api.ExternalRead(addr, callerPC, uintptr(tag))
}

// ExternalWrite reports a write of the object at addr.
func ExternalWrite(addr unsafe.Pointer, callerPC uintptr, tag Tag) {
	api.ExternalWrite(addr, callerPC, uintptr(tag))
}
