// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

// Package metrics tracks health figures of the process the profiler runs
// in: allocation rates, GC pause behaviour and goroutine count sampled
// between successive reporting periods. It is ambient, supplemental
// infrastructure (spec.md is silent on self monitoring); the shape is the
// teacher's profiler/metrics.go ring-buffer scan and period-over-period rate
// computation. The figures come from runtime.MemStats and are process-wide;
// they do not separate the profiler's own overhead from the program's.
package metrics

import (
	"fmt"
	"math"
	"runtime"
	"time"
)

// point is one reported sample, named after the teacher's profiler.point.
type point struct {
	metric string
	value  float64
}

// snapshot captures the process-wide counters used to derive rates.
type snapshot struct {
	NumGoroutine int
	MemStats     runtime.MemStats
	takenAt      time.Time
}

func takeSnapshot(now time.Time) snapshot {
	var s snapshot
	s.NumGoroutine = runtime.NumGoroutine()
	runtime.ReadMemStats(&s.MemStats)
	s.takenAt = now
	return s
}

// maxPauseNs scans the MemStats GC pause ring buffer for the largest pause
// whose end time falls after since, mirroring the teacher's bounded scan of
// the fixed-256 ring (it stops once it walks past entries older than since).
func maxPauseNs(ms *runtime.MemStats, since time.Time) uint64 {
	var max uint64
	n := ms.NumGC
	if n > 256 {
		n = 256
	}
	for i := uint32(0); i < n; i++ {
		idx := (ms.NumGC - 1 - i) % 256
		end := int64(ms.PauseEnd[idx])
		if end != 0 && end < since.UnixNano() {
			break
		}
		if ms.PauseNs[idx] > max {
			max = ms.PauseNs[idx]
		}
	}
	return max
}

// computeMetrics derives rate-of-change points between prev and curr over
// period, the same eight series the teacher's internal health metrics
// report.
func computeMetrics(prev, curr *snapshot, period time.Duration, now time.Time) []point {
	secs := period.Seconds()
	if secs <= 0 {
		secs = 1
	}

	allocDelta := float64(curr.MemStats.TotalAlloc) - float64(prev.MemStats.TotalAlloc)
	mallocDelta := float64(curr.MemStats.Mallocs) - float64(prev.MemStats.Mallocs)
	freeDelta := float64(curr.MemStats.Frees) - float64(prev.MemStats.Frees)
	heapDelta := float64(curr.MemStats.HeapAlloc) - float64(prev.MemStats.HeapAlloc)
	gcDelta := float64(curr.MemStats.NumGC) - float64(prev.MemStats.NumGC)
	pauseDelta := float64(curr.MemStats.PauseTotalNs) - float64(prev.MemStats.PauseTotalNs)

	return []point{
		{metric: "profrt_alloc_bytes_per_sec", value: allocDelta / secs},
		{metric: "profrt_allocs_per_sec", value: mallocDelta / secs},
		{metric: "profrt_frees_per_sec", value: freeDelta / secs},
		{metric: "profrt_heap_growth_bytes_per_sec", value: heapDelta / secs},
		{metric: "profrt_gcs_per_sec", value: gcDelta / secs},
		{metric: "profrt_gc_pause_time", value: pauseDelta / float64(period.Nanoseconds())},
		{metric: "profrt_max_gc_pause_time", value: float64(maxPauseNs(&curr.MemStats, now.Add(-period)))},
		{metric: "profrt_num_goroutine", value: float64(curr.NumGoroutine)},
	}
}

// Sink receives computed health points each reporting period. Implemented
// by a statsd-backed adapter (see Datadog) or ignored entirely.
type Sink interface {
	Gauge(name string, value float64) error
}

// Metrics accumulates a previous/current snapshot pair and reports their
// delta no more than once per second, matching the teacher's minimum
// collection interval.
type Metrics struct {
	prev, curr snapshot
	compute    func(prev, curr *snapshot, period time.Duration, now time.Time) []point
	lastReport time.Time
}

// New returns a Metrics with its baseline snapshot taken now.
func New(now time.Time) *Metrics {
	m := &Metrics{compute: computeMetrics}
	m.Reset(now)
	return m
}

// Reset rebaselines both snapshots to now, discarding any prior period.
func (m *Metrics) Reset(now time.Time) {
	s := takeSnapshot(now)
	m.prev = s
	m.curr = s
	m.lastReport = now
}

// Report computes points for the period ending at now and sends each
// finite value to sink. It refuses to report more than once per second or
// for a non-monotonic now, mirroring the teacher's collection-frequency
// guard.
func (m *Metrics) Report(now time.Time, sink Sink) error {
	if now.Before(m.lastReport) {
		return fmt.Errorf("metrics: report called with non-monotonic time")
	}
	if now.Sub(m.lastReport) < time.Second {
		return fmt.Errorf("metrics: must wait at least one second between reports")
	}

	m.prev = m.curr
	m.curr = takeSnapshot(now)
	period := now.Sub(m.lastReport)
	m.lastReport = now

	for _, p := range m.compute(&m.prev, &m.curr, period, now) {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) {
			continue
		}
		if err := sink.Gauge(p.metric, p.value); err != nil {
			return err
		}
	}
	return nil
}
