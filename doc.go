// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

// Package profrt is a time and memory profiling runtime for Go programs. It
// is consumed through three calls that mirror the three instrumentation
// primitives of spec.md §1: EnableProfiling at program entry, Profiled
// wrapping an instrumented function, and Section/End bracketing a scoped
// region inside one.
//
// A typical program:
//
//	func main() {
//	    stop, err := profrt.EnableProfiling()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer stop()
//
//	    process()
//	}
//
//	func process() {
//	    defer profrt.Profiled("main.process")()
//
//	    sec := profrt.Section("hot")
//	    for i := 0; i < 10; i++ {
//	        buf := make([]byte, 1024)
//	        profrt.TrackAlloc(uintptr(len(buf)))
//	        use(buf)
//	    }
//	    sec.End()
//	}
//
// Profiling is controlled by the THAG_PROFILER environment variable (see
// internal/config); EnableProfiling is a no-op returning a no-op stop
// function when it resolves to Off. TrackAlloc is the Go-native stand-in
// for automatic allocator interception (Go has no global-allocator-override
// mechanism): an instrumentation tool inserting Profiled/Section calls
// would insert a matching TrackAlloc call immediately after an allocation
// it wants attributed.
package profrt
