// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package panichook prints a backtrace of relative frame offsets when a
// goroutine panics. The offsets are relative to the load address of the
// executable image and are meant to be symbolized offline, e.g.
//
//	enclave-runner app.sgxs | stack-trace-resolve app
//
// Install the hook once during initialization and defer Recover at the top
// of every goroutine whose panics should be reported:
//
//	func main() {
//		panichook.SetPanicHook()
//		defer panichook.Recover()
//		...
//	}
package panichook // import "github.com/phlip9/sgx-panic-backtrace/panichook"

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/phlip9/sgx-panic-backtrace/imagebase"
	"github.com/phlip9/sgx-panic-backtrace/internal/log"
	"github.com/phlip9/sgx-panic-backtrace/reporter"
	"github.com/phlip9/sgx-panic-backtrace/successfailurecounter"
	"github.com/phlip9/sgx-panic-backtrace/unwind"
)

// ErrSetup is the error Install panics with when the hook cannot be installed.
var ErrSetup = errors.New("panic hook setup failed")

// active is the single hook slot. The last Install wins.
var active atomic.Pointer[hook]

// walkerSkip omits hook.report and its caller in this package, so that the
// first frame is the point where the hook was invoked.
const walkerSkip = 2

type hook struct {
	maxDepth int
	walker   unwind.Walker
	resolver *imagebase.Resolver
	emitter  *reporter.Emitter

	stats counters
}

// SetPanicHook installs the hook with DefaultConfig.
func SetPanicHook() {
	Install(DefaultConfig())
}

// Install replaces the active hook with one built from cfg. An invalid
// configuration, or a failure to register cfg.CrashOutput, is fatal: Install
// panics with an error wrapping ErrSetup.
func Install(cfg Config) {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Errorf("%w: %w", ErrSetup, err))
	}
	if cfg.CrashOutput != nil {
		if err := debug.SetCrashOutput(cfg.CrashOutput, debug.CrashOptions{}); err != nil {
			panic(fmt.Errorf("%w: crash output: %w", ErrSetup, err))
		}
	}

	active.Store(&hook{
		maxDepth: cfg.MaxDepth,
		walker:   cfg.Walker,
		resolver: cfg.Resolver,
		emitter:  reporter.EmitterFor(cfg.Output),
	})
	log.Debugf("Installed panic hook: max depth %d, walker %T, image base via %s",
		cfg.MaxDepth, cfg.Walker, cfg.Resolver.Technique().Name())
}

// Installed reports whether a hook is active.
func Installed() bool {
	return active.Load() != nil
}

// ReportedPanic is the value Recover panics with after reporting. It tells
// outer Recover calls on the same stack that the panic was already reported.
type ReportedPanic struct {
	// Value is the original panic value.
	Value any
	// StackHash identifies the reported backtrace, see Report.
	StackHash uint64
}

func (p *ReportedPanic) Error() string {
	return message(p.Value)
}

// Unwrap returns the original panic value if it is an error.
func (p *ReportedPanic) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}

// Recover reports a panic of the current goroutine through the active hook
// and panics again with a *ReportedPanic, letting the process terminate as it
// otherwise would. Without an active hook the panic continues unchanged.
// It must be called directly by a deferred statement.
//
//go:noinline
func Recover() {
	r := recover()
	if r == nil {
		return
	}
	if _, ok := r.(*ReportedPanic); ok {
		panic(r)
	}
	h := active.Load()
	if h == nil {
		panic(r)
	}
	panic(&ReportedPanic{Value: r, StackHash: h.handle(r)})
}

// Go runs fn in a new goroutine that reports its panics.
func Go(fn func()) {
	go func() {
		defer Recover()
		fn()
	}()
}

// Report emits a report for a failure context supplied by the caller, e.g.
// from a host runtime with its own failure handling. The backtrace starts at
// the caller of Report. The returned hash is equal for reports with the same
// raw frame addresses and can be used to deduplicate them. It is 0 if no hook
// is installed or reporting failed.
//
//go:noinline
func Report(ctx reporter.PanicContext) (hash uint64) {
	h := active.Load()
	if h == nil {
		return 0
	}
	defer swallow()
	return h.report(ctx)
}

//go:noinline
func (h *hook) handle(value any) (hash uint64) {
	defer swallow()
	return h.report(contextFromPanic(value))
}

// swallow ends a panic raised while reporting: the report is best effort and
// the original failure is already on its way.
func swallow() {
	if r := recover(); r != nil {
		log.Debugf("Panic while reporting panic: %v", r)
	}
}

//go:noinline
func (h *hook) report(ctx reporter.PanicContext) uint64 {
	trace := unwind.NewTrace(h.maxDepth)
	h.walker.Walk(trace, walkerSkip)
	if trace.Truncated() {
		h.add(walksTruncated)
	}
	if err := trace.Err(); err != nil {
		h.add(walksStopped)
		log.Debugf("Stack walk stopped early: %v", err)
	}

	r := reporter.Report{
		Context: ctx,
		Frames:  make([]reporter.Frame, 0, trace.Len()),
	}
	base, err := h.resolver.Base()
	h.count(baseOutcome, err == nil)
	if err == nil {
		r.Frames = reporter.Relativize(r.Frames, trace.Frames(), base)
		r.Relative = true
	} else {
		r.Frames = reporter.Absolute(r.Frames, trace.Frames())
	}

	h.count(emitOutcome, h.emitter.Emit(&r))
	hash := trace.Hash()
	log.Debugf("Reported panic with %d frames, stack hash %016x", trace.Len(), hash)
	return hash
}

// add increments a counter of h and the matching process total.
func (h *hook) add(c counter) {
	c(&h.stats).Add(1)
	c(&totals).Add(1)
}

// count records an outcome on h and in the process totals.
func (h *hook) count(o outcome, ok bool) {
	for _, c := range [...]*counters{&h.stats, &totals} {
		sfc := successfailurecounter.New(o(c))
		sfc.Report(ok)
	}
}

// CurrentStats returns the counters of the active hook, or zero Stats if no
// hook is installed.
func CurrentStats() Stats {
	h := active.Load()
	if h == nil {
		return Stats{}
	}
	s := h.stats.snapshot()
	s.BaseCached = h.resolver.Resolved()
	return s
}
