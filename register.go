// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package profrt

import (
	"fmt"
	"runtime"

	"github.com/proftrace/profrt/internal/sourcemap"
)

// callSite captures the (file, line, qualified function name) of the
// instrumentation call skip frames up from its own caller, the Go
// replacement for the compile-time source position a macro expansion would
// know directly (spec.md §4.A).
type callSite struct {
	file string
	line int
	fn   string
}

func caller(skip int) callSite {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return callSite{}
	}
	fn := ""
	if f := runtime.FuncForPC(pc); f != nil {
		fn = f.Name()
	}
	return callSite{file: file, line: line, fn: fn}
}

// registerFunction idempotently registers (or returns the existing
// registration for) the Function location at cs, using name if given or
// the resolved symbol name otherwise. flags records the call site's
// requested modes (spec.md §6); a call site registered earlier under the
// same id keeps whatever flags it was first registered with.
func registerFunction(reg *sourcemap.Registry, cs callSite, name string, flags []Flag) sourcemap.Location {
	if name == "" {
		name = cs.fn
	}
	id := fmt.Sprintf("%s:%d", cs.file, cs.line)
	if loc, ok := reg.ByID(id); ok {
		return loc
	}
	loc := sourcemap.Location{
		ID:             id,
		Kind:           sourcemap.Function,
		File:           cs.file,
		QualifiedName:  name,
		Symbol:         cs.fn,
		LineStart:      cs.line,
		LineEnd:        cs.line,
		RequestedModes: modesRequested(flags),
		IsAsyncContext: hasFlag(flags, FlagAsyncFn),
	}
	reg.Register(loc)
	return loc
}

// openSection registers the Section location at cs as an open-ended span
// starting at cs.line. The span is narrowed to its true extent by
// closeSection once End is called; see DESIGN.md for the concurrency
// caveat this implies for two overlapping activations of the same section.
const openSectionSentinelWidth = 1 << 20

func openSection(reg *sourcemap.Registry, cs callSite, name string, parent sourcemap.Location, flags []Flag) sourcemap.Location {
	id := fmt.Sprintf("%s:%d:%s", cs.file, cs.line, name)
	loc := sourcemap.Location{
		ID:               id,
		Kind:             sourcemap.Section,
		File:             cs.file,
		QualifiedName:    parent.QualifiedName,
		Symbol:           parent.Symbol,
		SectionName:      name,
		LineStart:        cs.line,
		LineEnd:          cs.line + openSectionSentinelWidth,
		ParentFunctionID: parent.ID,
		RequestedModes:   modesRequested(flags),
		IsAsyncContext:   hasFlag(flags, FlagAsyncFn),
		Unbounded:        hasFlag(flags, FlagUnbounded),
	}
	reg.Register(loc)
	return loc
}

// closeSection narrows loc's span to end at closeLine, so that allocations
// physically below the section in source are no longer matched to it.
func closeSection(reg *sourcemap.Registry, loc sourcemap.Location, closeLine int) {
	loc.LineEnd = closeLine
	reg.Register(loc)
}
