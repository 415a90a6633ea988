package detector

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"

	"github.com/kolkov/tsanshim/internal/race/goroutine"
	"github.com/kolkov/tsanshim/internal/race/shadowmem"
	"github.com/kolkov/tsanshim/internal/race/stackdepot"
	"github.com/kolkov/tsanshim/internal/race/syncshadow"
)

// DefaultExitCode is the exit code used when warnings were reported.
const DefaultExitCode = 66

// hiddenFrames are function prefixes left out of report stacks: the engine
// itself and the facade packages the runtime calls into.
var hiddenFrames = []string{
	"github.com/kolkov/tsanshim/internal/",
	"github.com/kolkov/tsanshim/tsan.",
	"github.com/kolkov/tsanshim/tsan/mutex.",
	"github.com/kolkov/tsanshim/tsan/fiber.",
}

// Config controls how the detector reports what it finds.
type Config struct {
	// HaltOnError exits the process after the first report.
	HaltOnError bool

	// ExitCode is returned by Finalize (and passed to Exit on halt) when
	// warnings were reported.
	ExitCode int

	// ReportMutexBugs enables mutex misuse reports (double lock, bad
	// unlock, unbalanced annotations).
	ReportMutexBugs bool

	// ReportDestroyLocked enables reports for destroying a locked mutex.
	ReportDestroyLocked bool

	// Output receives report blocks. Defaults to os.Stderr.
	Output io.Writer

	// Logger receives engine diagnostics. Defaults to a null logger.
	Logger hclog.Logger

	// Exit terminates the process on halt. Defaults to os.Exit.
	Exit func(code int)
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		ExitCode:            DefaultExitCode,
		ReportMutexBugs:     true,
		ReportDestroyLocked: true,
	}
}

// Detector implements the annotation engine.
//
// It maintains global state including shadow memory (access history of the
// objects a runtime reports), sync shadow (state of every synchronization
// address) and the registry of execution contexts.
type Detector struct {
	cfg Config
	log hclog.Logger

	// shadowMemory stores VarState cells for externally accessed objects.
	shadowMemory *shadowmem.ShadowMemory

	// syncShadow stores SyncVar cells for mutexes, acquire/release tokens
	// and fiber hand-offs.
	syncShadow *syncshadow.SyncShadow

	// depot keeps the stacks of recorded accesses for reports.
	depot *stackdepot.Depot

	tagsMu sync.RWMutex
	tags   []tagInfo

	// contexts maps TID to *goroutine.RaceContext so reports can name the
	// context behind a previous access.
	contexts sync.Map
	nextTID  atomic.Uint32

	racesDetected atomic.Int64
	mutexBugs     atomic.Int64

	// reportedRaces tracks which races have already been reported.
	// Key format: "{type}:{addr}:{tid1}:{tid2}" (sorted TIDs).
	reportedRaces sync.Map

	// outMu keeps report blocks from interleaving.
	outMu sync.Mutex
}

// NewDetector creates a detector ready for use.
func NewDetector(cfg Config) *Detector {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if cfg.Exit == nil {
		cfg.Exit = os.Exit
	}
	return &Detector{
		cfg:          cfg,
		log:          cfg.Logger,
		shadowMemory: shadowmem.NewShadowMemory(),
		syncShadow:   syncshadow.NewSyncShadow(),
		depot:        stackdepot.New(hiddenFrames...),
	}
}

// NewContext allocates a context with a fresh TID and registers it for
// reports.
func (d *Detector) NewContext(kind goroutine.Kind) *goroutine.RaceContext {
	tid := d.nextTID.Add(1) - 1
	ctx := goroutine.Alloc(tid, kind)
	d.contexts.Store(tid, ctx)
	if d.log.IsTrace() {
		d.log.Trace("context allocated", "kind", kind, "tid", tid)
	}
	return ctx
}

// describe names the context with the given TID for reports.
func (d *Detector) describe(tid uint32) string {
	if v, ok := d.contexts.Load(tid); ok {
		return v.(*goroutine.RaceContext).String()
	}
	return fmt.Sprintf("context %d", tid)
}

// OnAcquire handles an acquire on a synchronization address.
//
// Algorithm: Ct := Ct ⊔ Lm
//
// The calling context observes everything that happened before any prior
// release on addr. Acquiring an address nobody released is a no-op.
func (d *Detector) OnAcquire(addr uintptr, ctx *goroutine.RaceContext) {
	sv := d.syncShadow.GetOrCreate(addr)
	sv.Lock()
	ctx.Acquire(sv.GetReleaseClock())
	sv.Unlock()
}

// OnRelease handles a release on a synchronization address.
//
// Algorithm:
//  1. Lm := Lm ⊔ Ct (merge, so several releasers all reach the next acquirer)
//  2. Ct[t] := Ct[t] + 1
func (d *Detector) OnRelease(addr uintptr, ctx *goroutine.RaceContext) {
	sv := d.syncShadow.GetOrCreate(addr)
	sv.Lock()
	sv.MergeReleaseClock(ctx.C)
	sv.Unlock()
	ctx.IncrementClock()
}

// RacesDetected returns the number of unique races reported.
func (d *Detector) RacesDetected() int {
	return int(d.racesDetected.Load())
}

// MutexBugs returns the number of mutex and fiber misuse reports.
func (d *Detector) MutexBugs() int {
	return int(d.mutexBugs.Load())
}

// Warnings returns the total number of reports.
func (d *Detector) Warnings() int {
	return d.RacesDetected() + d.MutexBugs()
}

// Finalize is called when the program is about to exit with the code
// failed. If warnings were reported and the program otherwise succeeded,
// the configured exit code is returned instead.
func (d *Detector) Finalize(failed int) int {
	n := d.Warnings()
	if n == 0 {
		return failed
	}
	d.outMu.Lock()
	fmt.Fprintf(d.cfg.Output, "tsanshim: reported %d warnings\n", n) //nolint:errcheck // best effort on exit
	d.outMu.Unlock()
	if failed != 0 {
		return failed
	}
	return d.cfg.ExitCode
}

// Reset clears all detector state except registered contexts and tags.
//
// Thread Safety: NOT safe for concurrent calls. Used between tests.
func (d *Detector) Reset() {
	d.shadowMemory.Reset()
	d.syncShadow.Reset()
	d.depot.Reset()
	d.reportedRaces.Clear()
	d.racesDetected.Store(0)
	d.mutexBugs.Store(0)
}
