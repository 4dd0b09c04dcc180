// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

// Package attribution implements the allocation attribution engine (spec.md
// §4.F): on each tracked allocation, it captures a backtrace, matches it
// against the source-location registry and credits the innermost enclosing
// active Profile's task in the task registry.
package attribution

import (
	"sync/atomic"

	"github.com/proftrace/profrt/internal/alloc"
	"github.com/proftrace/profrt/internal/backtrace"
	"github.com/proftrace/profrt/internal/config"
	"github.com/proftrace/profrt/internal/goid"
	"github.com/proftrace/profrt/internal/sourcemap"
	"github.com/proftrace/profrt/internal/taskreg"
)

// DetailRecord is what Engine hands to a DetailSink in detail mode: one
// per tracked allocation, with the full sanitised stack (spec.md §4.F,
// "detail mode").
type DetailRecord struct {
	Stack  []string // root-to-leaf labels
	Size   uint64
	TaskID string // empty if the allocation was unattributed
}

// DetailSink receives per-allocation and per-deallocation records in detail
// mode. Implemented by internal/writer.
type DetailSink interface {
	WriteAllocDetail(DetailRecord)
	WriteDeallocDetail(DetailRecord)
}

// Engine is the attribution engine. It implements alloc.Tracker so it can
// be installed directly as the dispatcher's tracker.
type Engine struct {
	registry      *sourcemap.Registry
	tasks         *taskreg.Registry
	sizeThreshold uint64
	detail        bool
	sink          DetailSink

	unattributed atomic.Uint64 // count of allocations with no matching ancestor
}

var _ alloc.Tracker = (*Engine)(nil)

// New builds an Engine reading from reg/tasks, applying cfg's threshold and
// detail-mode settings. sink may be nil if detail mode is off.
func New(reg *sourcemap.Registry, tasks *taskreg.Registry, cfg config.RuntimeConfig, sink DetailSink) *Engine {
	return &Engine{
		registry:      reg,
		tasks:         tasks,
		sizeThreshold: cfg.SizeThreshold,
		detail:        cfg.Detail,
		sink:          sink,
	}
}

// backtraceSkip accounts for Engine.OnAlloc and alloc.Track's own frames,
// which are always internal and already filtered by backtrace.Capture, but
// we still skip them explicitly to keep capture cheap.
const backtraceSkip = 2

// OnAlloc implements alloc.Tracker. It runs entirely inside the
// dispatcher's bypass region (alloc.Track guarantees this), so it must
// never allocate through the tracking path itself.
func (e *Engine) OnAlloc(size uintptr) {
	if uint64(size) < e.sizeThreshold {
		return
	}

	frames := backtrace.Capture(backtraceSkip)
	gID := goid.Current()

	taskID, labels, loc, matched := e.resolve(frames, gID)
	if matched {
		e.tasks.Credit(taskID, uint64(size))
	} else {
		e.unattributed.Add(1)
	}

	if e.detail && e.sink != nil && wantsMemoryDetail(loc, matched) {
		rec := DetailRecord{Size: uint64(size), TaskID: taskID}
		if matched {
			rec.Stack = labels
		} else {
			rec.Stack = bestEffortStack(frames)
		}
		e.sink.WriteAllocDetail(rec)
	}
}

// OnDealloc implements alloc.Tracker's deallocation half. Spec.md §4.F:
// deallocations are emitted analogously to the allocation detail stream
// when the size is at or above threshold; there is no deallocation summary
// concept, so nothing is credited to the task registry here.
func (e *Engine) OnDealloc(size uintptr) {
	if uint64(size) < e.sizeThreshold {
		return
	}
	if !e.detail || e.sink == nil {
		return
	}

	frames := backtrace.Capture(backtraceSkip)
	gID := goid.Current()

	taskID, labels, loc, matched := e.resolve(frames, gID)
	if !wantsMemoryDetail(loc, matched) {
		return
	}

	rec := DetailRecord{Size: uint64(size), TaskID: taskID}
	if matched {
		rec.Stack = labels
	} else {
		rec.Stack = bestEffortStack(frames)
	}
	e.sink.WriteDeallocDetail(rec)
}

// wantsMemoryDetail gates a per-allocation detail record on the credited
// location's own RequestedModes (spec.md §3's active_modes intersection):
// an unattributed allocation, or one credited to a location that never
// restricted its modes, is always recorded; one credited to a location that
// asked for specific modes only gets a detail record if MemDetail was one
// of them.
func wantsMemoryDetail(loc sourcemap.Location, matched bool) bool {
	if !matched || len(loc.RequestedModes) == 0 {
		return true
	}
	return loc.HasMode(sourcemap.ModeMemoryDetail)
}

// resolve walks frames innermost to outermost, looking up each (file,
// line) in the registry. The first frame that matches a currently active
// task (spec.md §4.F steps 2-3) decides the credited task id; every
// registry match along the way (including frames further outward) builds
// the root-to-leaf ancestor chain for the detail-stream record.
func (e *Engine) resolve(frames []backtrace.Frame, gID int64) (taskID string, labels []string, creditedLoc sourcemap.Location, ok bool) {
	var chain []string // collected innermost-first, reversed before return
	var credited taskreg.Entry

	for _, f := range frames {
		if !f.Resolved() {
			continue
		}
		loc, found := e.registry.LookupFrame(f.File, f.Line, f.Function)
		if !found {
			continue
		}
		if !ok {
			entry, matched := e.pickActivation(loc, gID)
			if !matched && loc.Kind == sourcemap.Section {
				// The section's own task already released (e.g. End was
				// called on another concurrently executing activation of
				// the same section, narrowing its registered span before
				// this one finished) but the allocation is still within
				// the enclosing function; fall back to it.
				if parent, found := e.registry.ByID(loc.ParentFunctionID); found {
					if parentEntry, parentMatched := e.pickActivation(parent, gID); parentMatched {
						loc, entry, matched = parent, parentEntry, true
					}
				}
			}
			if !matched {
				continue
			}
			credited = entry
			creditedLoc = loc
			ok = true
		}
		chain = append(chain, loc.Label())
	}

	if !ok {
		return "", nil, sourcemap.Location{}, false
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return credited.TaskID, chain, creditedLoc, true
}

// pickActivation implements spec.md §4.F step 3's async fallback: prefer
// an active entry at loc created on the same goroutine as the allocation;
// if none exists (the function is active on a different goroutine, as
// happens when an async task migrates), fall back to the most recently
// created active entry at loc anywhere, which is the deterministic
// approximation of "the closest ancestor that does appear in the chain"
// recorded as an Open Question resolution in DESIGN.md.
func (e *Engine) pickActivation(loc sourcemap.Location, gID int64) (taskreg.Entry, bool) {
	if gID != 0 {
		if candidates := e.tasks.ByGoroutine(gID); len(candidates) > 0 {
			for _, c := range candidates {
				if c.Location.ID == loc.ID {
					return c, true
				}
			}
		}
	}
	candidates := e.tasks.ByLocation(loc.ID)
	if len(candidates) == 0 {
		return taskreg.Entry{}, false
	}
	return candidates[0], true
}

// bestEffortStack renders whatever symbol names a frame chain resolved to,
// for the "attributable to library code with no ancestor profile" detail
// case (spec.md §4.F step 4).
func bestEffortStack(frames []backtrace.Frame) []string {
	out := make([]string, 0, len(frames))
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Resolved() {
			out = append(out, frames[i].Function)
		}
	}
	return out
}

// UnattributedCount returns the number of allocations dropped for lack of
// any matching ancestor Profile, for internal health reporting.
func (e *Engine) UnattributedCount() uint64 {
	return e.unattributed.Load()
}
