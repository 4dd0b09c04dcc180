// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package profrt

import (
	"fmt"
	"time"

	"github.com/proftrace/profrt/internal/alloc"
	"github.com/proftrace/profrt/internal/attribution"
	"github.com/proftrace/profrt/internal/config"
	"github.com/proftrace/profrt/internal/log"
	"github.com/proftrace/profrt/internal/metrics"
	"github.com/proftrace/profrt/internal/sourcemap"
	"github.com/proftrace/profrt/internal/taskreg"
	"github.com/proftrace/profrt/internal/writer"
)

// EnableProfiling is the Go translation of `#[enable_profiling]` (spec.md
// §4.E.1): called once, conventionally at the top of main, it resolves the
// runtime configuration, wires up the dispatcher, task registry,
// attribution engine and output writers, and opens a root Profile standing
// in for the enclosing function. The returned stop function must be
// deferred by the caller; it releases the root Profile and flushes every
// writer, on both normal and panicking exit.
//
// If the resolved Mode is Off, EnableProfiling installs nothing: no writers
// are opened, the dispatcher stays in System mode, and the returned stop
// function is a no-op (spec.md §3 invariant on Mode=Off).
func EnableProfiling(opts ...Option) (stop func(), err error) {
	cfg, cfgErr := config.FromEnv()
	if cfgErr != nil {
		log.Warn("profrt: %v, falling back to Off", cfgErr)
	}
	s := newSettings(cfg)
	for _, opt := range opts {
		opt(s)
	}
	cfg = s.cfg
	if cfg.Detail && cfg.Mode == config.Time {
		return func() {}, fmt.Errorf("profrt: detail=true requires mode != time")
	}

	stateMu.Lock()
	if state != nil {
		stateMu.Unlock()
		return func() {}, fmt.Errorf("profrt: EnableProfiling already active")
	}
	if cfg.Mode == config.Off {
		stateMu.Unlock()
		return func() {}, nil
	}

	registry := sourcemap.NewRegistry()
	tasks := taskreg.NewRegistry()
	ws := writer.NewSet(cfg.OutputDir, s.compression)

	var sink attribution.DetailSink
	if cfg.Detail {
		sink = ws
	}
	engine := attribution.New(registry, tasks, cfg, sink)

	st := &runtimeState{
		cfg:      cfg,
		registry: registry,
		tasks:    tasks,
		engine:   engine,
		writers:  ws,
		stacks:   newFrameStack(),
	}

	if s.statsdAddr != "" {
		if mSink, sErr := metrics.NewStatsdSink(s.statsdAddr, s.statsdTags...); sErr != nil {
			log.Warn("profrt: internal metrics sink disabled: %v", sErr)
		} else {
			st.metricsHealth = metrics.New(time.Now())
			st.metricsSink = mSink
		}
	}

	state = st
	stateMu.Unlock()

	if cfg.Mode.WantsMemory() {
		alloc.SetTracker(engine)
		alloc.SetMode(alloc.User)
	}

	cs := caller(1)
	loc := registerFunction(registry, cs, "", nil)
	root := newProfile(st, loc)

	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true
		root.End()

		if err := ws.Close(); err != nil {
			log.Error("profrt: closing writers: %v", err)
		}
		if st.metricsSink != nil {
			if rErr := st.metricsHealth.Report(time.Now(), st.metricsSink); rErr != nil {
				log.Warn("profrt: final internal metrics report: %v", rErr)
			}
			if cErr := st.metricsSink.Close(); cErr != nil {
				log.Warn("profrt: closing internal metrics sink: %v", cErr)
			}
		}

		alloc.SetMode(alloc.System)
		alloc.SetTracker(nil)

		stateMu.Lock()
		state = nil
		stateMu.Unlock()
	}, nil
}
