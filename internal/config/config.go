// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

// Package config resolves the process-wide RuntimeConfig once at program
// entry, from the THAG_PROFILER and SIZE_TRACKING_THRESHOLD environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Mode selects which metrics the profiler collects.
type Mode int

const (
	// Off disables the profiler entirely: no writers, no Profile objects.
	Off Mode = iota
	Time
	Memory
	Both
)

func (m Mode) String() string {
	switch m {
	case Time:
		return "time"
	case Memory:
		return "memory"
	case Both:
		return "both"
	default:
		return "none"
	}
}

// WantsTime reports whether this mode collects elapsed-time metrics.
func (m Mode) WantsTime() bool { return m == Time || m == Both }

// WantsMemory reports whether this mode collects allocation metrics.
func (m Mode) WantsMemory() bool { return m == Memory || m == Both }

// DebugLevel is the debug_level field of the THAG_PROFILER grammar. It is
// parsed and rendered; nothing in the module's logging reads it.
type DebugLevel int

const (
	DebugNone DebugLevel = iota
	DebugQuiet
	DebugAnnounce
)

func (d DebugLevel) String() string {
	switch d {
	case DebugQuiet:
		return "quiet"
	case DebugAnnounce:
		return "announce"
	default:
		return "none"
	}
}

// RuntimeConfig is the resolved, process-wide profiler configuration.
// Spec invariant: if Mode == Off, every writer is disabled and no Profile
// objects are ever instantiated. If Detail is true, Mode must not be Time.
type RuntimeConfig struct {
	Mode          Mode
	Detail        bool
	OutputDir     string
	DebugLevel    DebugLevel
	SizeThreshold uint64
}

// EnvConfigVar is the environment variable read at program entry, per
// spec.md §4.H and §6.
const EnvConfigVar = "THAG_PROFILER"

// EnvSizeThreshold is the environment variable overriding SizeThreshold.
const EnvSizeThreshold = "SIZE_TRACKING_THRESHOLD"

// FromEnv resolves a RuntimeConfig from the environment. A missing or empty
// THAG_PROFILER resolves to Off, per spec.md §4.H ("Empty or missing ->
// Off"). A malformed grammar also resolves to Off with a descriptive error,
// per spec.md §7 ("the profiler disables itself").
func FromEnv() (RuntimeConfig, error) {
	raw, ok := os.LookupEnv(EnvConfigVar)
	if !ok || strings.TrimSpace(raw) == "" {
		return RuntimeConfig{Mode: Off}, nil
	}
	cfg, err := Parse(raw)
	if err != nil {
		return RuntimeConfig{Mode: Off}, err
	}
	if thresh, ok := os.LookupEnv(EnvSizeThreshold); ok {
		n, perr := strconv.ParseUint(strings.TrimSpace(thresh), 10, 64)
		if perr != nil {
			return RuntimeConfig{Mode: Off}, fmt.Errorf("invalid %s %q: %w", EnvSizeThreshold, thresh, perr)
		}
		cfg.SizeThreshold = n
	}
	return cfg, nil
}

// Parse parses the THAG_PROFILER grammar:
//
//	config := [mode] ["," [output_dir] ["," [debug_level] ["," detail]]]
//	mode   := "time" | "memory" | "both" | "none"
//	debug_level := "none" | "quiet" | "announce"
//	detail := "true" | "false"
func Parse(raw string) (RuntimeConfig, error) {
	fields := strings.Split(raw, ",")
	for len(fields) < 4 {
		fields = append(fields, "")
	}

	cfg := RuntimeConfig{
		Mode:       Off,
		OutputDir:  ".",
		DebugLevel: DebugNone,
	}

	mode, err := parseMode(strings.TrimSpace(fields[0]))
	if err != nil {
		return RuntimeConfig{}, err
	}
	cfg.Mode = mode

	if dir := strings.TrimSpace(fields[1]); dir != "" {
		cfg.OutputDir = dir
	}

	dbg, err := parseDebugLevel(strings.TrimSpace(fields[2]))
	if err != nil {
		return RuntimeConfig{}, err
	}
	cfg.DebugLevel = dbg

	detail, err := parseDetail(strings.TrimSpace(fields[3]))
	if err != nil {
		return RuntimeConfig{}, err
	}
	cfg.Detail = detail

	if cfg.Detail && cfg.Mode == Time {
		return RuntimeConfig{}, fmt.Errorf("invalid config %q: detail=true requires mode != time", raw)
	}

	return cfg, nil
}

func parseMode(s string) (Mode, error) {
	switch s {
	case "", "none":
		return Off, nil
	case "time":
		return Time, nil
	case "memory":
		return Memory, nil
	case "both":
		return Both, nil
	default:
		return Off, fmt.Errorf("invalid mode %q", s)
	}
}

func parseDebugLevel(s string) (DebugLevel, error) {
	switch s {
	case "", "none":
		return DebugNone, nil
	case "quiet":
		return DebugQuiet, nil
	case "announce":
		return DebugAnnounce, nil
	default:
		return DebugNone, fmt.Errorf("invalid debug level %q", s)
	}
}

func parseDetail(s string) (bool, error) {
	switch s {
	case "":
		return false, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid detail flag %q", s)
	}
}

// Render re-renders a RuntimeConfig back into the THAG_PROFILER grammar.
// Parse(cfg.Render()) must round-trip to an equivalent RuntimeConfig, up to
// default elisions (spec.md §8).
func (c RuntimeConfig) Render() string {
	return fmt.Sprintf("%s,%s,%s,%t", c.Mode, c.OutputDir, c.DebugLevel, c.Detail)
}
