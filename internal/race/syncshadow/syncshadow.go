package syncshadow

import (
	"sync"
)

// SyncShadow manages shadow memory for synchronization objects.
//
// Memory Model:
//   - Key: uintptr (address of the mutex, fiber or sync token)
//   - Value: *SyncVar
//
// Example:
//
//	shadow := NewSyncShadow()
//	sv := shadow.GetOrCreate(addr)
//	sv.Lock()
//	sv.StoreReleaseClock(ctx.C)  // On unlock
//	sv.Unlock()
type SyncShadow struct {
	vars sync.Map
}

// NewSyncShadow creates an empty SyncShadow.
func NewSyncShadow() *SyncShadow {
	return &SyncShadow{}
}

// GetOrCreate returns the SyncVar for addr, creating it if needed.
//
// Thread Safety: Safe for concurrent calls. Multiple goroutines may race
// to create the SyncVar, but LoadOrStore ensures only one is used.
func (s *SyncShadow) GetOrCreate(addr uintptr) *SyncVar {
	if val, ok := s.vars.Load(addr); ok {
		return val.(*SyncVar)
	}
	val, _ := s.vars.LoadOrStore(addr, &SyncVar{})
	return val.(*SyncVar)
}

// Load returns the SyncVar for addr if one exists.
func (s *SyncShadow) Load(addr uintptr) (*SyncVar, bool) {
	val, ok := s.vars.Load(addr)
	if !ok {
		return nil, false
	}
	return val.(*SyncVar), true
}

// Delete drops the SyncVar for addr. A later GetOrCreate starts fresh.
func (s *SyncShadow) Delete(addr uintptr) {
	s.vars.Delete(addr)
}

// Len returns the number of tracked addresses.
func (s *SyncShadow) Len() int {
	n := 0
	s.vars.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Reset clears all sync variable state.
//
// Thread Safety: NOT safe for concurrent access. Used between tests.
func (s *SyncShadow) Reset() {
	s.vars.Clear()
}
