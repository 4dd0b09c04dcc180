// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package profrt

import "github.com/proftrace/profrt/internal/sourcemap"

// Flag requests a metric mode or behaviour for a single Profiled/Section
// call site, the Go translation of `profile!`'s bracketed flag list and
// `#[profiled]`'s optional arguments (spec.md §6): time, mem_summary,
// mem_detail, async_fn, unbounded.
type Flag int

const (
	FlagTime Flag = 1 << iota
	FlagMemSummary
	FlagMemDetail
	FlagAsyncFn
	FlagUnbounded
)

// modesRequested converts a call site's Flags into the RequestedModes
// recorded on its Location, realising spec.md §3's "active_modes is the
// intersection of config and source-requested modes". No mode flag at all
// means no site-level restriction: whatever the resolved RuntimeConfig's
// Mode allows is emitted, matching the pre-flag behaviour every call site
// had before flags existed.
func modesRequested(flags []Flag) []sourcemap.Mode {
	var want Flag
	for _, f := range flags {
		want |= f
	}
	var modes []sourcemap.Mode
	if want&FlagTime != 0 {
		modes = append(modes, sourcemap.ModeTime)
	}
	if want&FlagMemSummary != 0 {
		modes = append(modes, sourcemap.ModeMemorySummary)
	}
	if want&FlagMemDetail != 0 {
		modes = append(modes, sourcemap.ModeMemoryDetail)
	}
	return modes
}

func hasFlag(flags []Flag, want Flag) bool {
	for _, f := range flags {
		if f&want != 0 {
			return true
		}
	}
	return false
}
