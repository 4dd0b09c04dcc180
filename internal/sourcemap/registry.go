// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

// Package sourcemap implements the compile-time-known source-location
// registry (spec.md §4.A): a process-global, read-only table mapping a
// stable identifier to the function or section it names, plus a
// (file, line) index used by the attribution engine to find the innermost
// enclosing entry for an allocation site.
package sourcemap

import (
	"sort"
	"sync"
)

// Kind distinguishes a whole-function location from a section nested
// inside one.
type Kind int

const (
	Function Kind = iota
	Section
)

// Mode is one of the three metrics an instrumented location can request.
type Mode int

const (
	ModeTime Mode = iota
	ModeMemorySummary
	ModeMemoryDetail
)

// Location is the immutable, compile-time record described in spec.md §3.
// Once registered it is never mutated; callers receive copies, mirroring
// profiler/internal/immutable's defensive-copy discipline for shared data.
type Location struct {
	ID   string
	Kind Kind
	File string

	// QualifiedName is the display label written to output records (spec.md
	// §4.G): the name given at the call site, e.g. "main.process". It need
	// not match Symbol, since callers are free to label a location however
	// they like.
	QualifiedName string

	// Symbol is the Go runtime's resolved symbol name for this location
	// (runtime.Func.Name()), used only to match a captured backtrace frame
	// to its enclosing Function (Registry.ByQualifiedName /
	// Registry.LookupFrame) — a frame reports the real symbol, not whatever
	// display name the call site chose.
	Symbol string

	SectionName      string // only set for Kind == Section
	LineStart        int
	LineEnd          int
	RequestedModes   []Mode
	IsAsyncContext   bool
	Unbounded        bool // only meaningful for Kind == Section; see spec.md §9 OQ3
	ParentFunctionID string // only set for Kind == Section
}

// HasMode reports whether m was requested for this location.
func (l Location) HasMode(m Mode) bool {
	for _, want := range l.RequestedModes {
		if want == m {
			return true
		}
	}
	return false
}

// Label returns the stable output label for this location: the qualified
// function name, or "function::section" for a section, per spec.md §4.G.
func (l Location) Label() string {
	if l.Kind == Function {
		return l.QualifiedName
	}
	return l.QualifiedName + "::" + l.SectionName
}

// Registry is the process-global table. Register and the lookups are safe
// to call concurrently. A lookup holds the read lock only while it fetches
// the per-file slice; Register builds a new slice instead of changing the
// old one, so a lookup iterates the snapshot left by the last Register call
// that touched the relevant file.
type Registry struct {
	mu              sync.RWMutex
	byID            map[string]Location
	byFile          map[string][]Location // sorted by LineStart descending
	byQualifiedName map[string]Location   // Kind == Function entries only
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:            make(map[string]Location),
		byFile:          make(map[string][]Location),
		byQualifiedName: make(map[string]Location),
	}
}

// Register inserts loc, keyed by its ID and indexed by (File, LineStart).
// Registering an ID again replaces the earlier entry.
// Spec.md §4.A: section spans within the same function must not overlap;
// the registry does not enforce this (the instrumentation tool is
// responsible), it only resolves ambiguity at lookup time.
func (r *Registry) Register(loc Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[loc.ID] = loc
	prev := r.byFile[loc.File]
	locs := make([]Location, 0, len(prev)+1)
	for _, l := range prev {
		if l.ID != loc.ID {
			locs = append(locs, l)
		}
	}
	locs = append(locs, loc)
	sort.SliceStable(locs, func(i, j int) bool {
		return locs[i].LineStart > locs[j].LineStart
	})
	r.byFile[loc.File] = locs
	if loc.Kind == Function {
		r.byQualifiedName[loc.Symbol] = loc
	}
}

// ByQualifiedName looks up a Function location by its Go runtime symbol
// name (Location.Symbol, not the display QualifiedName). Used by the
// attribution engine to match a captured frame to its enclosing function
// without relying on a compile-time-known body span (spec.md §9 OQ — see
// the Go-native translation note in DESIGN.md: Go backtraces carry a
// resolved symbol name per frame, so function-level attribution matches on
// that name directly; only Section spans, which share their enclosing
// function's symbol, still need the (file, line) interval lookup).
func (r *Registry) ByQualifiedName(symbol string) (Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.byQualifiedName[symbol]
	return loc, ok
}

// LookupFrame resolves the location a captured backtrace frame belongs to:
// a Section whose span contains line wins first (spec.md §4.F step 2);
// otherwise the Function registered under the frame's resolved symbol.
func (r *Registry) LookupFrame(file string, line int, symbol string) (Location, bool) {
	if loc, ok := r.lookupSection(file, line); ok {
		return loc, true
	}
	return r.ByQualifiedName(symbol)
}

// lookupSection is Lookup restricted to Section entries, the half of
// Lookup's behaviour LookupFrame needs; Lookup itself is retained as a
// general-purpose (file, line) query used directly by tests and by any
// caller that has a real compile-time-known function span.
func (r *Registry) lookupSection(file string, line int) (Location, bool) {
	r.mu.RLock()
	locs := r.byFile[file]
	r.mu.RUnlock()

	var best *Location
	for i := range locs {
		loc := locs[i]
		if loc.Kind != Section {
			continue
		}
		if line < loc.LineStart || line > loc.LineEnd {
			continue
		}
		if best == nil || loc.LineStart > best.LineStart {
			best = &locs[i]
		}
	}
	if best == nil {
		return Location{}, false
	}
	return *best, true
}

// ByID looks up a location by its stable identifier, used by Profile
// creation (spec.md §4.A "By identifier" lookup).
func (r *Registry) ByID(id string) (Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.byID[id]
	return loc, ok
}

// Lookup finds the innermost location enclosing (file, line), preferring a
// Section over a Function at the same frame, per spec.md §4.F step 2 and
// the OQ2 resolution recorded in DESIGN.md.
//
// locs is sorted by LineStart descending, so the first entry whose span
// contains line is the one with the largest LineStart — i.e. the innermost
// candidate — among those that contain it. Section candidates are
// evaluated before Function candidates so that a Section "wins" over an
// enclosing Function even if the function's LineStart happens to sort
// first for some other line.
func (r *Registry) Lookup(file string, line int) (Location, bool) {
	r.mu.RLock()
	locs := r.byFile[file]
	r.mu.RUnlock()

	var bestSection, bestFunction *Location
	for i := range locs {
		loc := locs[i]
		if line < loc.LineStart || line > loc.LineEnd {
			continue
		}
		if loc.Kind == Section {
			if bestSection == nil || loc.LineStart > bestSection.LineStart {
				bestSection = &locs[i]
			}
		} else {
			if bestFunction == nil || loc.LineStart > bestFunction.LineStart {
				bestFunction = &locs[i]
			}
		}
	}
	if bestSection != nil {
		return *bestSection, true
	}
	if bestFunction != nil {
		return *bestFunction, true
	}
	return Location{}, false
}
