// Package tsan lets a concurrency runtime describe its own synchronization
// to a race detection engine, at no cost when the engine is not built in.
//
// Runtimes that implement their own mutexes, condition variables or fibers
// are invisible to a race detector: it sees plain memory traffic where
// there is actually a lock hand-off. The annotations in this package and in
// [github.com/kolkov/tsanshim/tsan/mutex] and
// [github.com/kolkov/tsanshim/tsan/fiber] restore that knowledge.
//
// # Build Modes
//
// The mode is selected by the tsan build tag:
//
//	$ go build -tags tsan ./...     # annotations forward to the engine
//	$ go build ./...                # annotations are empty and inline away
//
// or, equivalently, with the bundled tool:
//
//	$ tsanshim build ./...
//
// Both modes export the same identifiers with the same signatures, so
// annotated code compiles unchanged. [Enabled] reports the mode.
//
// # Quick Start
//
//	type SpinLock struct{ state atomic.Int32 }
//
//	func (l *SpinLock) Lock() {
//		mutex.PreLock(unsafe.Pointer(l), 0)
//		for !l.state.CompareAndSwap(0, 1) {
//			runtime.Gosched()
//		}
//		mutex.PostLock(unsafe.Pointer(l), 0, 0)
//	}
//
//	func (l *SpinLock) Unlock() {
//		f := mutex.PreUnlock(unsafe.Pointer(l), 0)
//		l.state.Store(0)
//		mutex.PostUnlock(unsafe.Pointer(l), f)
//	}
//
// # API Overview
//
// This package covers:
//   - Happens-before tokens: [Acquire], [Release]
//   - Objects owned by the runtime: [RegisterTag], [AssignTag],
//     [ExternalRead], [ExternalWrite]
//   - Engine lifecycle: [OnInitialize], [OnFinalize]
//   - Version information: [GetInfo], [Version]
//
// # Reports
//
// The engine never returns errors to the caller. Races and misuse of the
// annotations are written as report blocks to stderr (or the file named by
// log_path in TSAN_OPTIONS), in the layout of the Go race detector:
//
//	==================
//	WARNING: DATA RACE
//	Write at 0x00c0000180a0 by fiber 3 "worker":
//	  main.worker()
//	      /path/to/main.go:42
//
//	Previous read at 0x00c0000180a0 by goroutine 1 (tid 0):
//	  main.main()
//	      /path/to/main.go:30
//	==================
//
// # Options
//
// TSAN_OPTIONS holds key=value pairs separated by spaces, commas or colons:
//
//	halt_on_error          exit after the first report (default false)
//	exitcode               exit code of OnFinalize after reports (default 66)
//	report_mutex_bugs      report annotation misuse (default true)
//	report_destroy_locked  report destroying a locked mutex (default true)
//	log_level              engine log level (default warn)
//	log_path               stderr, stdout or a file (default stderr)
//
// # Links
//
// FastTrack algorithm paper (PLDI 2009):
// https://users.soe.ucsc.edu/~cormac/papers/pldi09.pdf
package tsan
