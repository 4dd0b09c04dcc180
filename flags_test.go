// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package profrt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/proftrace/profrt/internal/sourcemap"
)

func TestModesRequestedEmptyForNoFlags(t *testing.T) {
	assert.Empty(t, modesRequested(nil))
}

func TestModesRequestedMapsEachFlag(t *testing.T) {
	modes := modesRequested([]Flag{FlagTime, FlagMemDetail})
	assert.ElementsMatch(t, []sourcemap.Mode{sourcemap.ModeTime, sourcemap.ModeMemoryDetail}, modes)
}

func TestHasFlagCombinesMultipleFlagValues(t *testing.T) {
	flags := []Flag{FlagAsyncFn, FlagUnbounded}
	assert.True(t, hasFlag(flags, FlagAsyncFn))
	assert.True(t, hasFlag(flags, FlagUnbounded))
	assert.False(t, hasFlag(flags, FlagMemSummary))
}

func TestRegisterFunctionPopulatesRequestedModesAndAsyncFlag(t *testing.T) {
	reg := sourcemap.NewRegistry()
	cs := callSite{file: "f.go", line: 40, fn: "example.com/app.process"}

	loc := registerFunction(reg, cs, "main.process", []Flag{FlagTime, FlagAsyncFn})
	assert.True(t, loc.HasMode(sourcemap.ModeTime))
	assert.False(t, loc.HasMode(sourcemap.ModeMemorySummary))
	assert.True(t, loc.IsAsyncContext)
}

func TestOpenSectionPopulatesUnboundedFlag(t *testing.T) {
	reg := sourcemap.NewRegistry()
	parent := registerFunction(reg, callSite{file: "f.go", line: 1, fn: "example.com/app.process"}, "main.process", nil)
	cs := callSite{file: "f.go", line: 10, fn: parent.Symbol}

	bounded := openSection(reg, cs, "hot", parent, nil)
	assert.False(t, bounded.Unbounded)

	unbounded := openSection(reg, callSite{file: "f.go", line: 50, fn: parent.Symbol}, "cold", parent, []Flag{FlagUnbounded})
	assert.True(t, unbounded.Unbounded)
}
