package detector

import (
	"fmt"
	"io"
	"strings"

	"github.com/kolkov/tsanshim/internal/race/epoch"
	"github.com/kolkov/tsanshim/internal/race/goroutine"
)

// AccessType represents the type of memory access (Read or Write).
type AccessType int

const (
	// AccessRead indicates a read memory access.
	AccessRead AccessType = iota
	// AccessWrite indicates a write memory access.
	AccessWrite
)

// String returns the string representation of an AccessType.
func (a AccessType) String() string {
	switch a {
	case AccessRead:
		return "Read"
	case AccessWrite:
		return "Write"
	default:
		return "Unknown"
	}
}

// Race type constants for deduplication and reporting.
const (
	// RaceTypeWriteWrite indicates a write-write data race.
	RaceTypeWriteWrite = "write-write"
	// RaceTypeReadWrite indicates a read followed by a concurrent write.
	RaceTypeReadWrite = "read-write"
	// RaceTypeWriteRead indicates a write followed by a concurrent read.
	RaceTypeWriteRead = "write-read"
)

// AccessInfo represents a single access that participated in a race.
type AccessInfo struct {
	Type    AccessType
	Addr    uintptr
	Context string
	Epoch   epoch.Epoch
	// Stack is the formatted stack, one "  func()\n      file:line\n" pair per frame.
	Stack string
}

// RaceReport represents a detected data race between two accesses.
type RaceReport struct {
	// Current is the access that triggered detection.
	Current AccessInfo

	// Previous is the earlier conflicting access.
	Previous AccessInfo

	// ObjectType and Header come from the tag of the accessed object, if any.
	ObjectType string
	Header     string

	// DeduplicationKey uniquely identifies this race location.
	// Format: "{type}:{addr}:{tid1}:{tid2}" where tid1 <= tid2.
	DeduplicationKey string
}

// accessTypes maps a race type to the (current, previous) access types.
func accessTypes(raceType string) (AccessType, AccessType) {
	switch raceType {
	case RaceTypeReadWrite:
		return AccessWrite, AccessRead
	case RaceTypeWriteRead:
		return AccessRead, AccessWrite
	default:
		return AccessWrite, AccessWrite
	}
}

// generateDeduplicationKey generates a key that is the same whichever of the
// two contexts detected the race first.
func generateDeduplicationKey(raceType string, addr uintptr, tid1, tid2 uint32) string {
	if tid1 > tid2 {
		tid1, tid2 = tid2, tid1
	}
	return fmt.Sprintf("%s:0x%x:%d:%d", raceType, addr, tid1, tid2)
}

// Format writes the report in the Go race detector's layout:
//
//	==================
//	WARNING: DATA RACE
//	Write at 0x00c0000180a0 by fiber 3 "worker":
//	  main.writer()
//	      /path/to/file.go:10
//
//	Previous read at 0x00c0000180a0 by goroutine 1 (tid 0):
//	  main.reader()
//	      /path/to/file.go:20
//
//	Location is an object of type "Buffer"
//	==================
//
//nolint:errcheck // Error handling omitted for report output
func (r *RaceReport) Format(w io.Writer) {
	fmt.Fprintf(w, "==================\n")
	fmt.Fprintf(w, "WARNING: DATA RACE\n")
	if r.Header != "" {
		fmt.Fprintf(w, "%s\n", r.Header)
	}

	fmt.Fprintf(w, "%s at 0x%016x by %s:\n", r.Current.Type, r.Current.Addr, r.Current.Context)
	fmt.Fprint(w, r.Current.Stack)
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Previous %s at 0x%016x by %s:\n",
		strings.ToLower(r.Previous.Type.String()), r.Previous.Addr, r.Previous.Context)
	fmt.Fprint(w, r.Previous.Stack)

	if r.ObjectType != "" {
		fmt.Fprintf(w, "\nLocation is an object of type %q\n", r.ObjectType)
	}
	fmt.Fprintf(w, "==================\n")
}

// String returns the formatted report.
func (r *RaceReport) String() string {
	var buf strings.Builder
	r.Format(&buf)
	return buf.String()
}

// reportRace reports a race once per deduplication key.
func (d *Detector) reportRace(raceType string, addr, tag uintptr, ctx *goroutine.RaceContext,
	cur epoch.Epoch, curStack uint64, prev epoch.Epoch, prevStack uint64) {
	key := generateDeduplicationKey(raceType, addr, prev.TID(), cur.TID())
	if _, alreadyReported := d.reportedRaces.LoadOrStore(key, struct{}{}); alreadyReported {
		return
	}

	curType, prevType := accessTypes(raceType)
	report := &RaceReport{
		Current: AccessInfo{
			Type:    curType,
			Addr:    addr,
			Context: ctx.String(),
			Epoch:   cur,
			Stack:   d.depot.Format(curStack),
		},
		Previous: AccessInfo{
			Type:    prevType,
			Addr:    addr,
			Context: d.describe(prev.TID()),
			Epoch:   prev,
			Stack:   d.depot.Format(prevStack),
		},
		DeduplicationKey: key,
	}
	if info, ok := d.lookupTag(tag); ok {
		report.ObjectType = info.objectType
		report.Header = info.header
	}

	d.racesDetected.Add(1)
	d.emit(report.Format)
}

// MutexReport describes a misuse of a mutex or fiber annotation.
type MutexReport struct {
	Kind    string
	Addr    uintptr
	Context string
	Stack   string
}

// Format writes the report block.
//
//nolint:errcheck // Error handling omitted for report output
func (r *MutexReport) Format(w io.Writer) {
	fmt.Fprintf(w, "==================\n")
	fmt.Fprintf(w, "WARNING: %s\n", r.Kind)
	fmt.Fprintf(w, "At 0x%016x by %s:\n", r.Addr, r.Context)
	fmt.Fprint(w, r.Stack)
	fmt.Fprintf(w, "==================\n")
}

// reportMutexBug reports a misuse when mutex bug reports are enabled.
func (d *Detector) reportMutexBug(kind string, addr uintptr, ctx *goroutine.RaceContext) {
	if !d.cfg.ReportMutexBugs {
		return
	}
	report := &MutexReport{
		Kind:    kind,
		Addr:    addr,
		Context: ctx.String(),
		Stack:   d.depot.Format(d.depot.Capture(1, 0)),
	}
	d.mutexBugs.Add(1)
	d.emit(report.Format)
}

// emit writes one report block and halts if configured to.
func (d *Detector) emit(format func(io.Writer)) {
	d.outMu.Lock()
	format(d.cfg.Output)
	d.outMu.Unlock()

	if d.cfg.HaltOnError {
		d.log.Error("halting after first report", "exitcode", d.cfg.ExitCode)
		d.cfg.Exit(d.cfg.ExitCode)
	}
}
