package api

import (
	"sync"
	"unsafe"

	"github.com/hashicorp/go-hclog"
	"github.com/petermattis/goid"

	"github.com/kolkov/tsanshim/internal/race/detector"
	"github.com/kolkov/tsanshim/internal/race/goroutine"
	"github.com/kolkov/tsanshim/internal/race/options"
)

// threadState is what the engine knows about one goroutine: its own
// context and the context it is currently running, which differs from self
// after a switch to a fiber.
//
// Only the goroutine itself reads or writes current.
type threadState struct {
	self    *goroutine.RaceContext
	current *goroutine.RaceContext
}

// Engine is the Runtime backed by the in-tree detector.
//
// Goroutines are the engine's threads. Thread states are created on a
// goroutine's first annotation and never freed: Go does not reuse goroutine
// ids, and there is no hook for goroutine exit.
type Engine struct {
	det *detector.Detector
	log hclog.Logger

	// threads maps goroutine ID (int64) to *threadState.
	threads sync.Map
}

var _ Runtime = (*Engine)(nil)

// NewEngine creates a Runtime over det.
func NewEngine(det *detector.Detector, log hclog.Logger) *Engine {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Engine{det: det, log: log}
}

// Detector returns the engine's detector.
func (e *Engine) Detector() *detector.Detector {
	return e.det
}

// thread returns the state of the calling goroutine, creating it on first
// use.
func (e *Engine) thread() *threadState {
	gid := goid.Get()
	if val, ok := e.threads.Load(gid); ok {
		return val.(*threadState)
	}

	ctx := e.det.NewContext(goroutine.KindThread)
	ctx.GoroutineID = gid
	val, _ := e.threads.LoadOrStore(gid, &threadState{self: ctx, current: ctx})
	return val.(*threadState)
}

// ctx returns the context the calling goroutine is running.
func (e *Engine) ctx() *goroutine.RaceContext {
	return e.thread().current
}

func (e *Engine) Acquire(addr unsafe.Pointer) { e.det.OnAcquire(uintptr(addr), e.ctx()) }
func (e *Engine) Release(addr unsafe.Pointer) { e.det.OnRelease(uintptr(addr), e.ctx()) }

func (e *Engine) MutexCreate(addr unsafe.Pointer, flags uint32) {
	e.det.MutexCreate(uintptr(addr), flags, e.ctx())
}

func (e *Engine) MutexDestroy(addr unsafe.Pointer, flags uint32) {
	e.det.MutexDestroy(uintptr(addr), flags, e.ctx())
}

func (e *Engine) MutexPreLock(addr unsafe.Pointer, flags uint32) {
	e.det.MutexPreLock(uintptr(addr), flags, e.ctx())
}

func (e *Engine) MutexPostLock(addr unsafe.Pointer, flags uint32, recursion int) {
	e.det.MutexPostLock(uintptr(addr), flags, recursion, e.ctx())
}

func (e *Engine) MutexPreUnlock(addr unsafe.Pointer, flags uint32) uint32 {
	return e.det.MutexPreUnlock(uintptr(addr), flags, e.ctx())
}

func (e *Engine) MutexPostUnlock(addr unsafe.Pointer, flags uint32) {
	e.det.MutexPostUnlock(uintptr(addr), flags, e.ctx())
}

func (e *Engine) MutexPreSignal(addr unsafe.Pointer, flags uint32) {
	e.det.MutexPreSignal(uintptr(addr), flags, e.ctx())
}

func (e *Engine) MutexPostSignal(addr unsafe.Pointer, flags uint32) {
	e.det.MutexPostSignal(uintptr(addr), flags, e.ctx())
}

func (e *Engine) MutexPreDivert(addr unsafe.Pointer, flags uint32) {
	e.det.MutexPreDivert(uintptr(addr), flags, e.ctx())
}

func (e *Engine) MutexPostDivert(addr unsafe.Pointer, flags uint32) {
	e.det.MutexPostDivert(uintptr(addr), flags, e.ctx())
}

func (e *Engine) ExternalRegisterTag(objectType string) uintptr {
	return e.det.RegisterTag(objectType)
}

func (e *Engine) ExternalRegisterHeader(tag uintptr, header string) {
	e.det.RegisterHeader(tag, header)
}

func (e *Engine) ExternalAssignTag(addr unsafe.Pointer, tag uintptr) {
	e.det.AssignTag(uintptr(addr), tag)
}

func (e *Engine) ExternalRead(addr unsafe.Pointer, callerPC, tag uintptr) {
	e.det.OnRead(uintptr(addr), callerPC, tag, e.ctx())
}

func (e *Engine) ExternalWrite(addr unsafe.Pointer, callerPC, tag uintptr) {
	e.det.OnWrite(uintptr(addr), callerPC, tag, e.ctx())
}

// GetCurrentFiber returns the running context. Before any switch that is
// the goroutine's own context, which can be switched back to like a fiber.
func (e *Engine) GetCurrentFiber() unsafe.Pointer {
	return unsafe.Pointer(e.ctx())
}

func (e *Engine) CreateFiber(flags uint32) unsafe.Pointer {
	return unsafe.Pointer(e.det.FiberCreate(flags, e.ctx()))
}

// DestroyFiber retires a fiber. Goroutine contexts cannot be destroyed.
func (e *Engine) DestroyFiber(fiber unsafe.Pointer) {
	f := (*goroutine.RaceContext)(fiber)
	if f == nil || f.Kind != goroutine.KindFiber {
		e.log.Warn("destroy of a handle that is not a fiber ignored", "fiber", fiber)
		return
	}
	e.det.FiberDestroy(f, e.ctx())
}

// SwitchToFiber makes fiber the running context of the calling goroutine.
func (e *Engine) SwitchToFiber(fiber unsafe.Pointer, flags uint32) {
	to := (*goroutine.RaceContext)(fiber)
	if to == nil {
		e.log.Warn("switch to a nil fiber ignored")
		return
	}
	ts := e.thread()
	if ts.current == to {
		return
	}
	if e.det.FiberSwitch(ts.current, to, flags) {
		ts.current = to
	}
}

func (e *Engine) SetFiberName(fiber unsafe.Pointer, name string) {
	if f := (*goroutine.RaceContext)(fiber); f != nil {
		e.det.FiberSetName(f, name)
	}
}

func (e *Engine) OnInitialize() {
	e.log.Debug("initialized")
}

func (e *Engine) OnFinalize(failed int) int {
	code := e.det.Finalize(failed)
	e.log.Debug("finalized", "races", e.det.RacesDetected(), "mutex_bugs", e.det.MutexBugs(), "exitcode", code)
	return code
}

var (
	engineOnce sync.Once
	engine     *Engine
)

// defaultEngine builds the process-wide engine from TSAN_OPTIONS.
func defaultEngine() *Engine {
	engineOnce.Do(func() {
		engine = newEngineFromOptions()
	})
	return engine
}

func newEngineFromOptions() *Engine {
	opts, optErr := options.FromEnv()
	out, _, logErr := opts.OpenLog()

	log := hclog.New(&hclog.LoggerOptions{
		Name:   "tsan",
		Level:  opts.Level(),
		Output: out,
	})
	if optErr != nil {
		log.Warn("ignoring options", "error", optErr)
	}
	if logErr != nil {
		log.Warn("reporting to stderr", "error", logErr)
	}

	det := detector.NewDetector(detector.Config{
		HaltOnError:         opts.HaltOnError,
		ExitCode:            opts.ExitCode,
		ReportMutexBugs:     opts.ReportMutexBugs,
		ReportDestroyLocked: opts.ReportDestroyLocked,
		Output:              out,
		Logger:              log,
	})
	log.Debug("engine started", "options", opts)
	return NewEngine(det, log)
}
