// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package profrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proftrace/profrt/internal/config"
)

func TestSectionEndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	stop, err := EnableProfiling(WithMode(config.Memory), WithOutputDir(dir))
	require.NoError(t, err)
	defer stop()

	sec := Section("once")
	sec.End()
	assert.NotPanics(t, sec.End)
}

func TestSectionIsNoopWhenDisabled(t *testing.T) {
	sec := Section("disabled")
	assert.NotPanics(t, sec.End)
}
