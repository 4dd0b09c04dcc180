// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package profrt

import (
	"sync"

	"github.com/proftrace/profrt/internal/attribution"
	"github.com/proftrace/profrt/internal/config"
	"github.com/proftrace/profrt/internal/metrics"
	"github.com/proftrace/profrt/internal/sourcemap"
	"github.com/proftrace/profrt/internal/taskreg"
	"github.com/proftrace/profrt/internal/writer"
)

// runtimeState is the process-wide profiling state installed by
// EnableProfiling and torn down by its returned stop function. Exactly one
// may be active at a time (spec.md §3: RuntimeConfig is "resolved once at
// program entry").
type runtimeState struct {
	cfg      config.RuntimeConfig
	registry *sourcemap.Registry
	tasks    *taskreg.Registry
	engine   *attribution.Engine
	writers  *writer.Set
	stacks   *frameStack

	metricsHealth *metrics.Metrics
	metricsSink   *metrics.StatsdSink
}

var (
	stateMu sync.Mutex
	state   *runtimeState
)

// current returns the active runtimeState, or nil if profiling is off or
// EnableProfiling was never called.
func current() *runtimeState {
	stateMu.Lock()
	defer stateMu.Unlock()
	return state
}
