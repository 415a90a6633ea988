package detector

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kolkov/tsanshim/internal/race/goroutine"
)

// newTestDetector returns a detector writing reports into a buffer.
func newTestDetector(t *testing.T) (*Detector, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &out
	cfg.Exit = func(code int) { t.Fatalf("unexpected exit(%d)", code) }
	return NewDetector(cfg), &out
}

func TestNewContext_UniqueTIDs(t *testing.T) {
	d, _ := newTestDetector(t)
	a := d.NewContext(goroutine.KindThread)
	b := d.NewContext(goroutine.KindFiber)

	if a.TID == b.TID {
		t.Fatalf("contexts share TID %d", a.TID)
	}
	if got := d.describe(b.TID); got != b.String() {
		t.Errorf("describe(%d) = %q, want %q", b.TID, got, b.String())
	}
	if got := d.describe(99); got != "context 99" {
		t.Errorf("describe(99) = %q, want %q", got, "context 99")
	}
}

func TestOnWrite_UnsynchronizedRace(t *testing.T) {
	d, out := newTestDetector(t)
	t1 := d.NewContext(goroutine.KindThread)
	t2 := d.NewContext(goroutine.KindThread)

	d.OnWrite(0x1000, 0, 0, t1)
	d.OnWrite(0x1000, 0, 0, t2)

	if got := d.RacesDetected(); got != 1 {
		t.Fatalf("RacesDetected() = %d, want 1", got)
	}
	report := out.String()
	for _, want := range []string{
		"WARNING: DATA RACE",
		"Write at 0x0000000000001000 by " + t2.String(),
		"Previous write at 0x0000000000001000 by " + t1.String(),
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
	if strings.Contains(report, "Location is") {
		t.Errorf("untagged report has a location line:\n%s", report)
	}
}

func TestOnWrite_Deduplicated(t *testing.T) {
	d, _ := newTestDetector(t)
	t1 := d.NewContext(goroutine.KindThread)
	t2 := d.NewContext(goroutine.KindThread)

	for i := 0; i < 3; i++ {
		d.OnWrite(0x1000, 0, 0, t1)
		d.OnWrite(0x1000, 0, 0, t2)
	}

	if got := d.RacesDetected(); got != 1 {
		t.Errorf("RacesDetected() = %d, want 1 after repeats", got)
	}
}

func TestOnAcquireRelease_HappensBefore(t *testing.T) {
	d, out := newTestDetector(t)
	t1 := d.NewContext(goroutine.KindThread)
	t2 := d.NewContext(goroutine.KindThread)
	const token, obj = 0x2000, 0x3000

	d.OnWrite(obj, 0, 0, t1)
	d.OnRelease(token, t1)
	d.OnAcquire(token, t2)
	d.OnWrite(obj, 0, 0, t2)
	d.OnRead(obj, 0, 0, t2)

	if got := d.RacesDetected(); got != 0 {
		t.Errorf("RacesDetected() = %d, want 0\n%s", got, out)
	}
}

func TestOnAcquire_WithoutRelease(t *testing.T) {
	d, _ := newTestDetector(t)
	t1 := d.NewContext(goroutine.KindThread)
	before := t1.C.Clone()

	d.OnAcquire(0x2000, t1)

	if !t1.C.LessOrEqual(before) || !before.LessOrEqual(t1.C) {
		t.Errorf("clock changed from %s to %s", before, t1.C)
	}
}

func TestOnRead_WriteReadRace(t *testing.T) {
	d, out := newTestDetector(t)
	t1 := d.NewContext(goroutine.KindThread)
	t2 := d.NewContext(goroutine.KindThread)

	d.OnWrite(0x1000, 0, 0, t1)
	d.OnRead(0x1000, 0, 0, t2)

	if got := d.RacesDetected(); got != 1 {
		t.Fatalf("RacesDetected() = %d, want 1", got)
	}
	if !strings.Contains(out.String(), "Read at 0x0000000000001000") ||
		!strings.Contains(out.String(), "Previous write at") {
		t.Errorf("unexpected report:\n%s", out)
	}
}

func TestOnRead_SharedReadersThenWrite(t *testing.T) {
	d, out := newTestDetector(t)
	r1 := d.NewContext(goroutine.KindThread)
	r2 := d.NewContext(goroutine.KindThread)
	w := d.NewContext(goroutine.KindThread)
	const obj, token = 0x1000, 0x2000

	d.OnRead(obj, 0, 0, r1)
	d.OnRead(obj, 0, 0, r2)

	vs := d.shadowMemory.Get(obj)
	if vs == nil || !vs.IsPromoted() {
		t.Fatal("concurrent reads did not promote the read state")
	}
	if got := d.RacesDetected(); got != 0 {
		t.Fatalf("concurrent reads reported as race:\n%s", out)
	}

	// w synchronizes with r1 only.
	d.OnRelease(token, r1)
	d.OnAcquire(token, w)
	d.OnWrite(obj, 0, 0, w)

	if got := d.RacesDetected(); got != 1 {
		t.Fatalf("RacesDetected() = %d, want 1", got)
	}
	if !strings.Contains(out.String(), "Previous read at 0x0000000000001000 by "+r2.String()) {
		t.Errorf("report does not name r2:\n%s", out)
	}
	if vs.IsPromoted() {
		t.Error("write did not demote the read state")
	}
}

func TestOnRead_SharedReadersAllOrdered(t *testing.T) {
	d, out := newTestDetector(t)
	r1 := d.NewContext(goroutine.KindThread)
	r2 := d.NewContext(goroutine.KindThread)
	w := d.NewContext(goroutine.KindThread)
	const obj, token = 0x1000, 0x2000

	d.OnRead(obj, 0, 0, r1)
	d.OnRead(obj, 0, 0, r2)
	d.OnRelease(token, r1)
	d.OnRelease(token, r2)

	d.OnAcquire(token, w)
	d.OnWrite(obj, 0, 0, w)

	if got := d.RacesDetected(); got != 0 {
		t.Errorf("RacesDetected() = %d, want 0 after acquiring both readers\n%s", got, out)
	}
}

func TestOnRead_SameReaderNoPromotion(t *testing.T) {
	d, _ := newTestDetector(t)
	r := d.NewContext(goroutine.KindThread)

	d.OnRead(0x1000, 0, 0, r)
	d.OnRelease(0x2000, r)
	d.OnRead(0x1000, 0, 0, r)

	if d.shadowMemory.Get(0x1000).IsPromoted() {
		t.Error("reads by one context promoted the read state")
	}
}

func TestOnWrite_IgnoredInsideRegion(t *testing.T) {
	d, _ := newTestDetector(t)
	t1 := d.NewContext(goroutine.KindThread)
	t2 := d.NewContext(goroutine.KindThread)

	d.OnWrite(0x1000, 0, 0, t1)
	t2.IgnoreBegin()
	d.OnWrite(0x1000, 0, 0, t2)
	d.OnRead(0x1000, 0, 0, t2)
	t2.IgnoreEnd()

	if got := d.RacesDetected(); got != 0 {
		t.Errorf("RacesDetected() = %d inside ignore region, want 0", got)
	}
}

func TestTags_ReportLocation(t *testing.T) {
	d, out := newTestDetector(t)
	t1 := d.NewContext(goroutine.KindThread)
	t2 := d.NewContext(goroutine.KindThread)

	tag := d.RegisterTag("Buffer")
	if tag != 1 {
		t.Fatalf("first RegisterTag() = %d, want 1", tag)
	}
	d.RegisterHeader(tag, "Race on a buffer")
	d.AssignTag(0x1000, tag)

	d.OnWrite(0x1000, 0, 0, t1)
	d.OnWrite(0x1000, 0, 0, t2)

	for _, want := range []string{
		"WARNING: DATA RACE\nRace on a buffer\n",
		`Location is an object of type "Buffer"`,
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestTags_AccessTagWins(t *testing.T) {
	d, out := newTestDetector(t)
	t1 := d.NewContext(goroutine.KindThread)
	t2 := d.NewContext(goroutine.KindThread)

	assigned := d.RegisterTag("Assigned")
	access := d.RegisterTag("Access")
	d.AssignTag(0x1000, assigned)

	d.OnWrite(0x1000, 0, access, t1)
	d.OnRead(0x1000, 0, access, t2)

	if !strings.Contains(out.String(), `type "Access"`) {
		t.Errorf("report does not use the access tag:\n%s", out)
	}
}

func TestTags_UnknownHeaderIgnored(t *testing.T) {
	d, _ := newTestDetector(t)
	d.RegisterHeader(7, "nope")

	if _, ok := d.lookupTag(7); ok {
		t.Error("lookupTag(7) found an unregistered tag")
	}
	if _, ok := d.lookupTag(0); ok {
		t.Error("lookupTag(0) found a tag")
	}
}

func TestFinalize(t *testing.T) {
	d, out := newTestDetector(t)
	if got := d.Finalize(0); got != 0 {
		t.Errorf("Finalize(0) without warnings = %d, want 0", got)
	}
	if got := d.Finalize(3); got != 3 {
		t.Errorf("Finalize(3) without warnings = %d, want 3", got)
	}

	t1 := d.NewContext(goroutine.KindThread)
	t2 := d.NewContext(goroutine.KindThread)
	d.OnWrite(0x1000, 0, 0, t1)
	d.OnWrite(0x1000, 0, 0, t2)

	if got := d.Finalize(0); got != DefaultExitCode {
		t.Errorf("Finalize(0) with warnings = %d, want %d", got, DefaultExitCode)
	}
	if got := d.Finalize(2); got != 2 {
		t.Errorf("Finalize(2) with warnings = %d, want 2", got)
	}
	if !strings.Contains(out.String(), "reported 1 warnings") {
		t.Errorf("missing summary:\n%s", out)
	}
}

func TestHaltOnError(t *testing.T) {
	var out bytes.Buffer
	var exited []int
	cfg := DefaultConfig()
	cfg.Output = &out
	cfg.HaltOnError = true
	cfg.ExitCode = 7
	cfg.Exit = func(code int) { exited = append(exited, code) }
	d := NewDetector(cfg)

	t1 := d.NewContext(goroutine.KindThread)
	t2 := d.NewContext(goroutine.KindThread)
	d.OnWrite(0x1000, 0, 0, t1)
	d.OnWrite(0x1000, 0, 0, t2)

	if len(exited) != 1 || exited[0] != 7 {
		t.Errorf("exit calls = %v, want [7]", exited)
	}
}

func TestReset(t *testing.T) {
	d, _ := newTestDetector(t)
	t1 := d.NewContext(goroutine.KindThread)
	t2 := d.NewContext(goroutine.KindThread)
	d.OnWrite(0x1000, 0, 0, t1)
	d.OnWrite(0x1000, 0, 0, t2)

	d.Reset()

	if d.RacesDetected() != 0 || d.MutexBugs() != 0 {
		t.Errorf("counters after Reset = %d/%d, want 0/0", d.RacesDetected(), d.MutexBugs())
	}
	if d.shadowMemory.Get(0x1000) != nil {
		t.Error("shadow memory survived Reset")
	}
	if d.describe(t1.TID) != t1.String() {
		t.Error("Reset dropped a registered context")
	}
}

func TestGenerateDeduplicationKey_Symmetric(t *testing.T) {
	a := generateDeduplicationKey(RaceTypeWriteWrite, 0x10, 1, 2)
	b := generateDeduplicationKey(RaceTypeWriteWrite, 0x10, 2, 1)
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	if a != "write-write:0x10:1:2" {
		t.Errorf("key = %q, want %q", a, "write-write:0x10:1:2")
	}
}
