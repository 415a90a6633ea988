package vectorclock

import (
	"testing"
)

// TestVectorClockNew tests zero initialization.
func TestVectorClockNew(t *testing.T) {
	vc := New()

	for i := uint32(0); i < 100; i++ {
		if vc.Get(i) != 0 {
			t.Errorf("New() Get(%d) = %d, want 0", i, vc.Get(i))
		}
	}
	if vc.Len() != 0 {
		t.Errorf("New() Len() = %d, want 0", vc.Len())
	}
}

// TestVectorClockSetGrows verifies that Set extends storage on demand.
func TestVectorClockSetGrows(t *testing.T) {
	vc := New()
	vc.Set(1000, 7)

	if vc.Get(1000) != 7 {
		t.Errorf("Get(1000) = %d, want 7", vc.Get(1000))
	}
	if vc.Get(999) != 0 {
		t.Errorf("Get(999) = %d, want 0", vc.Get(999))
	}
	if vc.Len() != 1001 {
		t.Errorf("Len() = %d, want 1001", vc.Len())
	}
}

// TestVectorClockClone tests deep copy independence.
func TestVectorClockClone(t *testing.T) {
	original := New()
	original.Set(0, 10)
	original.Set(5, 20)

	clone := original.Clone()
	if clone.Get(0) != 10 || clone.Get(5) != 20 {
		t.Errorf("Clone() = %v, want {0:10, 5:20}", clone)
	}

	clone.Set(0, 999)
	clone.Set(5, 888)

	if original.Get(0) != 10 {
		t.Errorf("Original modified after clone change: Get(0) = %d, want 10", original.Get(0))
	}
	if original.Get(5) != 20 {
		t.Errorf("Original modified after clone change: Get(5) = %d, want 20", original.Get(5))
	}
}

// TestVectorClockCopyFrom verifies release-store semantics.
func TestVectorClockCopyFrom(t *testing.T) {
	dst := New()
	dst.Set(0, 1)
	dst.Set(9, 50)

	src := New()
	src.Set(2, 4)

	dst.CopyFrom(src)

	if dst.Get(0) != 0 || dst.Get(9) != 0 {
		t.Errorf("CopyFrom left stale slots: %v", dst)
	}
	if dst.Get(2) != 4 {
		t.Errorf("CopyFrom Get(2) = %d, want 4", dst.Get(2))
	}
}

// TestVectorClockJoin tests point-wise maximum and commutativity.
func TestVectorClockJoin(t *testing.T) {
	vc1 := New()
	vc1.Set(0, 10)
	vc1.Set(1, 30)
	vc1.Set(2, 20)

	vc2 := New()
	vc2.Set(0, 5)
	vc2.Set(1, 40)
	vc2.Set(2, 15)
	vc2.Set(7, 1)

	a := vc1.Clone()
	a.Join(vc2)
	b := vc2.Clone()
	b.Join(vc1)

	expected := map[uint32]uint32{0: 10, 1: 40, 2: 20, 7: 1}
	for tid, want := range expected {
		if a.Get(tid) != want {
			t.Errorf("vc1⊔vc2[%d] = %d, want %d", tid, a.Get(tid), want)
		}
		if b.Get(tid) != want {
			t.Errorf("vc2⊔vc1[%d] = %d, want %d", tid, b.Get(tid), want)
		}
	}
}

// TestVectorClockJoinIdempotent tests vc⊔vc == vc.
func TestVectorClockJoinIdempotent(t *testing.T) {
	vc := New()
	vc.Set(0, 10)
	vc.Set(5, 30)

	original := vc.Clone()
	vc.Join(vc)

	if !vc.LessOrEqual(original) || !original.LessOrEqual(vc) {
		t.Errorf("vc⊔vc = %v, want %v", vc, original)
	}
}

// TestVectorClockLessOrEqual covers the partial order.
func TestVectorClockLessOrEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b map[uint32]uint32
		want bool
	}{
		{"both zero", nil, nil, true},
		{"smaller", map[uint32]uint32{0: 1}, map[uint32]uint32{0: 2}, true},
		{"equal", map[uint32]uint32{0: 2, 3: 1}, map[uint32]uint32{0: 2, 3: 1}, true},
		{"greater", map[uint32]uint32{0: 3}, map[uint32]uint32{0: 2}, false},
		{"concurrent", map[uint32]uint32{0: 1, 1: 5}, map[uint32]uint32{0: 5, 1: 1}, false},
		{"longer left with zeros", map[uint32]uint32{9: 0, 0: 1}, map[uint32]uint32{0: 1}, true},
		{"longer left non-zero", map[uint32]uint32{9: 1}, map[uint32]uint32{0: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := New(), New()
			for k, v := range tt.a {
				a.Set(k, v)
			}
			for k, v := range tt.b {
				b.Set(k, v)
			}
			if got := a.LessOrEqual(b); got != tt.want {
				t.Errorf("%v ⊑ %v = %v, want %v", a, b, got, tt.want)
			}
		})
	}
}

// TestVectorClockIncrement verifies per-slot advancement.
func TestVectorClockIncrement(t *testing.T) {
	vc := New()
	vc.Increment(3)
	vc.Increment(3)

	if vc.Get(3) != 2 {
		t.Errorf("Get(3) = %d, want 2", vc.Get(3))
	}
	if vc.Get(2) != 0 {
		t.Errorf("Get(2) = %d, want 0", vc.Get(2))
	}
}

// TestVectorClockString verifies the debug format.
func TestVectorClockString(t *testing.T) {
	vc := New()
	if got := vc.String(); got != "{}" {
		t.Errorf("String() = %q, want {}", got)
	}

	vc.Set(0, 50)
	vc.Set(5, 42)
	if got, want := vc.String(), "{0:50, 5:42}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func BenchmarkVectorClockJoin(b *testing.B) {
	vc1, vc2 := New(), New()
	for i := uint32(0); i < 64; i++ {
		vc1.Set(i, i)
		vc2.Set(i, 64-i)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		vc1.Join(vc2)
	}
}
