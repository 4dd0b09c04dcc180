// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package profrt

import "github.com/proftrace/profrt/internal/alloc"

// TrackAlloc reports an allocation of size bytes at the call site, feeding
// the dual-allocator dispatcher's single chokepoint (spec.md §4.C). Call it
// immediately after an allocation an instrumentation tool has identified
// for tracking; it is a no-op when profiling is off or mode doesn't want
// memory metrics.
func TrackAlloc(size uintptr) {
	alloc.Track(size)
}

// TrackedAlloc allocates a byte slice of length n and reports it via
// TrackAlloc in the same call, for the common case of replacing a bare
// `make([]byte, n)` at an instrumented allocation site.
func TrackedAlloc(n int) []byte {
	b := make([]byte, n)
	TrackAlloc(uintptr(n))
	return b
}

// TrackDealloc reports a deallocation of size bytes at the call site,
// feeding the deallocation-detail stream (spec.md §4.F, §4.G). Call it
// immediately after an instrumentation tool identifies a free as worth
// recording; it is a no-op when profiling is off or detail mode is off.
func TrackDealloc(size uintptr) {
	alloc.TrackDealloc(size)
}
