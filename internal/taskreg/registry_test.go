// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package taskreg

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proftrace/profrt/internal/sourcemap"
)

func TestRegisterCreditTake(t *testing.T) {
	r := NewRegistry()
	loc := sourcemap.Location{ID: "fn1", QualifiedName: "main.process"}

	taskID := r.Register(loc, 1)
	assert.True(t, r.Active(taskID))

	r.Credit(taskID, 1024)
	r.Credit(taskID, 512)

	entry, ok := r.Take(taskID)
	require.True(t, ok)
	assert.Equal(t, uint64(1536), entry.AccumulatedBytes)
	assert.Equal(t, uint64(2), entry.AllocationCount)
	assert.False(t, r.Active(taskID), "entry must be absent after Take")
}

func TestCreditUnknownTaskIsSilentlyDropped(t *testing.T) {
	r := NewRegistry()
	assert.NotPanics(t, func() { r.Credit("does-not-exist", 10) })
}

func TestTakeUnknownReturnsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Take("does-not-exist")
	assert.False(t, ok)
}

func TestTakeIsOnceOnly(t *testing.T) {
	r := NewRegistry()
	taskID := r.Register(sourcemap.Location{ID: "fn1"}, 1)
	_, ok := r.Take(taskID)
	require.True(t, ok)
	_, ok = r.Take(taskID)
	assert.False(t, ok, "a second Take on the same task id must fail")
}

func TestByGoroutineOrdersMostRecentFirst(t *testing.T) {
	r := NewRegistry()
	loc := sourcemap.Location{ID: "fn1"}
	id1 := r.Register(loc, 7)
	id2 := r.Register(loc, 7)

	entries := r.ByGoroutine(7)
	require.Len(t, entries, 2)
	assert.Equal(t, id2, entries[0].TaskID, "most recently created entry must be first")
	assert.Equal(t, id1, entries[1].TaskID)
}

func TestByGoroutineFiltersOtherGoroutines(t *testing.T) {
	r := NewRegistry()
	loc := sourcemap.Location{ID: "fn1"}
	r.Register(loc, 1)
	r.Register(loc, 2)

	entries := r.ByGoroutine(1)
	require.Len(t, entries, 1)
}

func TestByLocation(t *testing.T) {
	r := NewRegistry()
	locA := sourcemap.Location{ID: "a"}
	locB := sourcemap.Location{ID: "b"}
	r.Register(locA, 1)
	r.Register(locB, 1)
	r.Register(locA, 2)

	entries := r.ByLocation("a")
	assert.Len(t, entries, 2)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	loc := sourcemap.Location{ID: "fn1"}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			taskID := r.Register(loc, 1)
			r.Credit(taskID, 8)
			r.Take(taskID)
		}()
	}
	wg.Wait()
}
