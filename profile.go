// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package profrt

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/proftrace/profrt/internal/folded"
	"github.com/proftrace/profrt/internal/goid"
	"github.com/proftrace/profrt/internal/sourcemap"
	"github.com/proftrace/profrt/internal/writer"
)

// Profile is the runtime object created by Profiled or Section: spec.md
// §3's Profile, state machine Created -> Active -> Released. It must be
// released exactly once, in LIFO order with respect to other Profiles
// created on the same goroutine (spec.md §4.E).
type Profile struct {
	st       *runtimeState
	taskID   string
	loc      sourcemap.Location
	gid      int64
	start    time.Time
	released atomic.Bool

	// unboundedMu/unboundedChildren hold the Sections opened against this
	// Profile with the unbounded flag (spec.md §9 OQ3). They have no
	// matching end! in source, so End sweeps and releases them itself
	// before it releases its own Profile, guaranteeing release at the
	// enclosing function's exit even when that exit is a panic.
	unboundedMu       sync.Mutex
	unboundedChildren []*Profile
}

// adoptUnbounded registers child as a Section this Profile must sweep on
// its own release.
func (p *Profile) adoptUnbounded(child *Profile) {
	p.unboundedMu.Lock()
	p.unboundedChildren = append(p.unboundedChildren, child)
	p.unboundedMu.Unlock()
}

// Profiled registers (idempotently, keyed by call site) a Function profile
// named name and returns a closure that releases it. Intended use:
//
//	func process() {
//	    defer profrt.Profiled("main.process")()
//	    ...
//	}
//
// flags requests the metric modes spec.md §6 allows on #[profiled]: with
// none given, the Profile emits whatever the resolved Mode allows, as
// before; with any of Time/MemSummary/MemDetail given, it emits only the
// intersection of those with Mode (spec.md §3's active_modes invariant).
//
// If profiling is off, Profiled returns a no-op closure immediately without
// touching the task registry or capturing a start time.
func Profiled(name string, flags ...Flag) func() {
	st := current()
	if st == nil {
		return func() {}
	}
	cs := caller(1)
	loc := registerFunction(st.registry, cs, name, flags)
	p := newProfile(st, loc)
	return p.End
}

// ProfiledFunc behaves like Profiled but derives its name from the calling
// function's own resolved symbol, for instrumentation tools that prefer not
// to pass a literal string.
func ProfiledFunc(flags ...Flag) func() {
	st := current()
	if st == nil {
		return func() {}
	}
	cs := caller(1)
	loc := registerFunction(st.registry, cs, cs.fn, flags)
	p := newProfile(st, loc)
	return p.End
}

func newProfile(st *runtimeState, loc sourcemap.Location) *Profile {
	gid := goid.Current()
	taskID := st.tasks.Register(loc, gid)
	p := &Profile{st: st, taskID: taskID, loc: loc, gid: gid, start: time.Now()}
	st.stacks.push(gid, p)
	return p
}

// End releases the Profile, finalising its elapsed time and accumulated
// bytes into the configured output streams. Safe to call more than once;
// only the first call has effect, matching a deferred End racing a manual
// one in the unbounded-section pattern.
func (p *Profile) End() {
	if !p.released.CompareAndSwap(false, true) {
		return
	}
	if p.st == nil {
		return
	}

	p.unboundedMu.Lock()
	children := p.unboundedChildren
	p.unboundedChildren = nil
	p.unboundedMu.Unlock()
	for i := len(children) - 1; i >= 0; i-- {
		children[i].End()
	}

	if p.loc.Kind == sourcemap.Section {
		cs := caller(1)
		closeSection(p.st.registry, p.loc, cs.line)
	}
	elapsed := time.Since(p.start)
	p.st.stacks.pop(p.gid, p)

	entry, _ := p.st.tasks.Take(p.taskID)
	chain := append(p.st.stacks.chain(p.gid), p.loc.Label())

	if p.wantsTime() {
		p.st.writers.Write(writer.StreamTime, folded.Record{Stack: chain, Metric: uint64(elapsed.Nanoseconds())})
	}
	if p.wantsMemorySummary() {
		// Emitted unconditionally, even with zero accumulated bytes: spec.md
		// §8 property 7 requires a record for every activation, not just
		// those that allocated.
		p.st.writers.Write(writer.StreamMemory, folded.Record{Stack: chain, Metric: entry.AccumulatedBytes})
	}
}

// wantsTime reports whether this Profile's activation should emit a time
// record: Mode must allow it, and if the call site requested specific
// modes via flags, Time must be one of them (spec.md §3: active_modes is
// the intersection of config and source-requested modes).
func (p *Profile) wantsTime() bool {
	if !p.st.cfg.Mode.WantsTime() {
		return false
	}
	if len(p.loc.RequestedModes) == 0 {
		return true
	}
	return p.loc.HasMode(sourcemap.ModeTime)
}

// wantsMemorySummary is wantsTime's memory-summary counterpart.
func (p *Profile) wantsMemorySummary() bool {
	if !p.st.cfg.Mode.WantsMemory() {
		return false
	}
	if len(p.loc.RequestedModes) == 0 {
		return true
	}
	return p.loc.HasMode(sourcemap.ModeMemorySummary)
}
