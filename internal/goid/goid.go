// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

// Package goid extracts the calling goroutine's id, used by the attribution
// engine's async fallback (spec.md §4.F step 3 / §5) to correlate an
// allocation with the Profile activation running on the same goroutine
// when call-stack matching alone is ambiguous — e.g. two concurrent
// invocations of the same instrumented function.
//
// Go deliberately exposes no public goroutine-id API. The standard
// technique, used here, is to dump the calling goroutine's own stack via
// runtime.Stack and parse its header line with the same parser the teacher
// uses for goroutine-dump analysis (profiler/internal/stackparse, whose
// public counterpart is github.com/DataDog/gostackparse).
package goid

import (
	"bytes"
	"runtime"

	"github.com/DataDog/gostackparse"
)

// initialBufSize is generous enough to hold a single goroutine's header
// and stack without growing in the common case.
const initialBufSize = 4 << 10

// Current returns the calling goroutine's id, or 0 if it could not be
// determined (attribution treats 0 as "unknown goroutine" and falls back
// to location-only matching).
func Current() int64 {
	buf := make([]byte, initialBufSize)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}

	goroutines, _ := gostackparse.Parse(bytes.NewReader(buf))
	if len(goroutines) == 0 {
		return 0
	}
	return int64(goroutines[0].ID)
}
