// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package profrt

import (
	"github.com/proftrace/profrt/internal/goid"
	"github.com/proftrace/profrt/internal/sourcemap"
)

// Section opens a scoped profile nested inside the enclosing function's
// Profile, the Go translation of `profile!(name)`. It must be paired with a
// call to its End method before the enclosing function returns, unless
// FlagUnbounded is given, in which case the enclosing Profile sweeps and
// releases it automatically on its own End (spec.md §4.E: "Section profiles
// inside async functions must be released before any suspension within the
// function body"; §9 OQ3's unbounded variant).
//
// Section must be called from inside an active Profiled scope on the same
// goroutine; if none is active, Section registers a Function location for
// the calling function's resolved symbol as the section's parent, without
// opening a Profile for it, and the section acts as a root on its own —
// FlagUnbounded has no effect in that case, since there is no enclosing
// Profile to adopt it.
func Section(name string, flags ...Flag) *Profile {
	st := current()
	if st == nil {
		return &Profile{}
	}
	cs := caller(1)
	gid := goid.Current()

	var parentLoc sourcemap.Location
	var parentProfile *Profile
	if top, ok := st.stacks.top(gid); ok {
		parentProfile = top
		parentLoc = top.loc
	} else {
		parentLoc = registerFunction(st.registry, cs, cs.fn, nil)
	}

	loc := openSection(st.registry, cs, name, parentLoc, flags)
	p := newProfile(st, loc)
	if loc.Unbounded && parentProfile != nil {
		parentProfile.adoptUnbounded(p)
	}
	return p
}
