// Package stackdepot implements stack trace storage and deduplication for race reports.
//
// A Depot stores each unique stack once, referenced by a 64-bit hash. Shadow
// cells keep only the hash of the access that last touched them; the full
// stack is materialized when a report is printed.
//
// Design (ThreadSanitizer v2 approach):
//   - Fixed-size stack traces (MaxFrames frames)
//   - Hash-based deduplication (XXH3 over the program counters)
//   - sync.Map storage (thread-safe)
//
// Usage:
//
//	depot := stackdepot.New()
//	hash := depot.Capture(1, callerPC)
//	fmt.Print(depot.Format(hash))
package stackdepot

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/zeebo/xxh3"
)

// MaxFrames is the maximum number of stack frames to capture.
const MaxFrames = 8

// StackTrace represents a captured stack trace.
type StackTrace struct {
	PC [MaxFrames]uintptr
	N  int
}

// Depot is a deduplicating store of stack traces.
//
// Thread Safety: Safe for concurrent use.
type Depot struct {
	stacks sync.Map // uint64 (hash) → *StackTrace
	hidden []string
}

// New creates an empty Depot. Frames whose function name starts with one of
// hiddenPrefixes are left out of formatted stacks, as are runtime frames.
func New(hiddenPrefixes ...string) *Depot {
	return &Depot{hidden: hiddenPrefixes}
}

// Capture records the current stack and returns its hash.
//
// skip is the number of frames to skip above Capture's caller (0 starts at
// the caller). When pc is non-zero it is recorded as the top frame: this is
// the caller PC a runtime passes with an external access, pointing at user
// code rather than at the runtime.
//
// Returns 0 if no stack is available.
func (d *Depot) Capture(skip int, pc uintptr) uint64 {
	var st StackTrace
	if pc != 0 {
		st.PC[0] = pc
		st.N = 1
	}
	// +2 skips runtime.Callers and Capture.
	st.N += runtime.Callers(skip+2, st.PC[st.N:])
	if st.N == 0 {
		return 0
	}

	hash := hashStack(st.PC[:st.N])
	if hash == 0 {
		hash = 1
	}
	if _, exists := d.stacks.Load(hash); exists {
		return hash
	}
	d.stacks.Store(hash, &st)
	return hash
}

// Format returns the formatted stack for hash.
func (d *Depot) Format(hash uint64) string {
	return d.Get(hash).format(d.hidden)
}

// Get retrieves a stack trace by hash, nil if unknown or hash is 0.
func (d *Depot) Get(hash uint64) *StackTrace {
	if hash == 0 {
		return nil
	}
	val, ok := d.stacks.Load(hash)
	if !ok {
		return nil
	}
	return val.(*StackTrace)
}

// Len returns the number of unique stacks stored.
func (d *Depot) Len() int {
	n := 0
	d.stacks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Reset clears the depot.
//
// Thread Safety: NOT safe for concurrent calls. Used between tests.
func (d *Depot) Reset() {
	d.stacks.Clear()
}

func hashStack(pcs []uintptr) uint64 {
	b := unsafe.Slice((*byte)(unsafe.Pointer(&pcs[0])), len(pcs)*int(unsafe.Sizeof(pcs[0])))
	return xxh3.Hash(b)
}

// format renders the stack for reports, skipping runtime frames and frames
// under the hidden prefixes:
//
//	  main.worker()
//	      /path/to/file.go:45
func (st *StackTrace) format(hidden []string) string {
	if st == nil || st.N == 0 {
		return "  <unknown>\n"
	}

	frames := runtime.CallersFrames(st.PC[:st.N])

	var buf strings.Builder
	for {
		frame, more := frames.Next()
		if frame.PC == 0 {
			break
		}
		if !strings.HasPrefix(frame.Function, "runtime.") && !hasAnyPrefix(frame.Function, hidden) {
			fmt.Fprintf(&buf, "  %s()\n", frame.Function)
			fmt.Fprintf(&buf, "      %s:%d\n", frame.File, frame.Line)
		}
		if !more {
			break
		}
	}

	if buf.Len() == 0 {
		return "  <runtime internal>\n"
	}
	return buf.String()
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
