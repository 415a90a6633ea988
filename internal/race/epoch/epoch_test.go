package epoch

import (
	"testing"

	"github.com/kolkov/tsanshim/internal/race/vectorclock"
)

// TestNewEpochDecode verifies the encoding round trip.
func TestNewEpochDecode(t *testing.T) {
	tests := []struct {
		tid, clock uint32
	}{
		{0, 0},
		{0, 1},
		{5, 4660},
		{1 << 20, 1},
		{^uint32(0), ^uint32(0)},
	}

	for _, tt := range tests {
		e := NewEpoch(tt.tid, tt.clock)
		tid, clock := e.Decode()
		if tid != tt.tid || clock != tt.clock {
			t.Errorf("NewEpoch(%d, %d).Decode() = (%d, %d)", tt.tid, tt.clock, tid, clock)
		}
		if e.TID() != tt.tid {
			t.Errorf("NewEpoch(%d, %d).TID() = %d", tt.tid, tt.clock, e.TID())
		}
	}
}

// TestEpochHappensBefore checks the O(1) happens-before test.
func TestEpochHappensBefore(t *testing.T) {
	vc := vectorclock.New()
	vc.Set(3, 10)

	tests := []struct {
		name string
		e    Epoch
		want bool
	}{
		{"zero epoch", 0, true},
		{"earlier clock", NewEpoch(3, 9), true},
		{"same clock", NewEpoch(3, 10), true},
		{"later clock", NewEpoch(3, 11), false},
		{"unknown tid", NewEpoch(7, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.HappensBefore(vc); got != tt.want {
				t.Errorf("%v.HappensBefore(%v) = %v, want %v", tt.e, vc, got, tt.want)
			}
		})
	}
}

// TestEpochSameAndZero covers the trivial predicates.
func TestEpochSameAndZero(t *testing.T) {
	a := NewEpoch(1, 2)
	if !a.Same(NewEpoch(1, 2)) {
		t.Error("Same() = false for identical epochs")
	}
	if a.Same(NewEpoch(2, 1)) {
		t.Error("Same() = true for different epochs")
	}
	if !Epoch(0).IsZero() || a.IsZero() {
		t.Error("IsZero() mismatch")
	}
}

// TestEpochString verifies the debug format.
func TestEpochString(t *testing.T) {
	if got, want := NewEpoch(5, 42).String(), "42@5"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
