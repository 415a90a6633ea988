package shadowmem

import "sync"

// ShadowMemory maps reported object addresses to their VarState cells.
//
// Thread Safety: All operations are thread-safe.
type ShadowMemory struct {
	cells sync.Map // map[uintptr]*VarState
}

// NewShadowMemory creates a new empty shadow memory map.
func NewShadowMemory() *ShadowMemory {
	return &ShadowMemory{}
}

// GetOrCreate retrieves the VarState for addr, creating it if needed.
//
// If multiple goroutines call GetOrCreate for the same address simultaneously,
// only one VarState is created and all callers receive the same instance.
func (sm *ShadowMemory) GetOrCreate(addr uintptr) *VarState {
	if val, ok := sm.cells.Load(addr); ok {
		return val.(*VarState)
	}
	val, _ := sm.cells.LoadOrStore(addr, NewVarState())
	return val.(*VarState)
}

// Get returns the VarState for addr, or nil if the address was never seen.
func (sm *ShadowMemory) Get(addr uintptr) *VarState {
	if val, ok := sm.cells.Load(addr); ok {
		return val.(*VarState)
	}
	return nil
}

// Reset drops every cell.
//
// Thread Safety: NOT safe for concurrent access. Used between tests.
func (sm *ShadowMemory) Reset() {
	sm.cells.Clear()
}
