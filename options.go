// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package profrt

import (
	"github.com/proftrace/profrt/internal/config"
	"github.com/proftrace/profrt/internal/writer"
)

// Option configures EnableProfiling, applied after the THAG_PROFILER
// environment variable is resolved. Each option overrides the matching
// field of the process-wide configuration, so it affects every Profile of
// the run, not only the root profile.
type Option func(*settings)

type settings struct {
	cfg         config.RuntimeConfig
	compression writer.Compression
	statsdAddr  string
	statsdTags  []string
}

// Mode selects which metrics the profiler collects, mirroring
// internal/config.Mode. Re-exported here (rather than requiring callers to
// import an internal package) so WithMode is usable outside this module.
type Mode = config.Mode

const (
	Off    = config.Off
	Time   = config.Time
	Memory = config.Memory
	Both   = config.Both
)

// DebugLevel is the debug_level field of the runtime configuration,
// mirroring internal/config.DebugLevel. It is parsed and stored; the
// runtime's logging does not read it.
type DebugLevel = config.DebugLevel

const (
	DebugNone     = config.DebugNone
	DebugQuiet    = config.DebugQuiet
	DebugAnnounce = config.DebugAnnounce
)

// WithMode overrides the resolved Mode.
func WithMode(m Mode) Option {
	return func(s *settings) { s.cfg.Mode = m }
}

// WithOutputDir overrides the directory folded-stack files are written to.
func WithOutputDir(dir string) Option {
	return func(s *settings) { s.cfg.OutputDir = dir }
}

// WithDebugLevel overrides the DebugLevel stored in the resolved
// configuration. The level of the runtime's own log output does not change
// with it.
func WithDebugLevel(d DebugLevel) Option {
	return func(s *settings) { s.cfg.DebugLevel = d }
}

// WithSizeThreshold overrides the minimum allocation size the attribution
// engine processes. Smaller allocations are neither credited to a Profile's
// memory summary nor written to the detail streams.
func WithSizeThreshold(n uint64) Option {
	return func(s *settings) { s.cfg.SizeThreshold = n }
}

// WithDetail overrides whether per-allocation detail records are emitted.
func WithDetail(detail bool) Option {
	return func(s *settings) { s.cfg.Detail = detail }
}

// Compression selects the codec applied to every output stream, mirroring
// internal/writer.Compression. Re-exported here for the same reason Mode
// and DebugLevel are.
type Compression = writer.Compression

const (
	CompressionNone = writer.CompressionNone
	CompressionGzip = writer.CompressionGzip
	CompressionZstd = writer.CompressionZstd
)

// WithCompression compresses every output stream with the given codec,
// trading write-time CPU for smaller folded files on long-running
// processes. CompressionGzip favours wide decoder support; CompressionZstd
// favours ratio and speed on large detail streams.
func WithCompression(c Compression) Option {
	return func(s *settings) { s.compression = c }
}

// WithStatsdAddr enables the internal health-metrics sink (internal/metrics)
// over statsd, reporting process-wide allocation, GC and goroutine figures
// once, when the stop function runs. Purely diagnostic, never required for
// correct profiling output.
func WithStatsdAddr(addr string, tags ...string) Option {
	return func(s *settings) { s.statsdAddr = addr; s.statsdTags = tags }
}

func newSettings(cfg config.RuntimeConfig) *settings {
	return &settings{cfg: cfg}
}
