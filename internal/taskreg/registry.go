// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

// Package taskreg implements the task registry (spec.md §4.D): a
// concurrent mapping from task id to accumulated allocation totals, shared
// between an active Profile and the allocation attribution engine.
package taskreg

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/proftrace/profrt/internal/sourcemap"
)

// Entry is the per-activation accumulator described in spec.md §3's
// TaskEntry. It is mutated only through Registry's synchronised methods.
type Entry struct {
	TaskID           string
	Location         sourcemap.Location
	GoroutineID      int64
	AccumulatedBytes uint64
	AllocationCount  uint64
	// Seq orders entries by creation time across the whole registry,
	// used to break ties deterministically in the async fallback
	// heuristic (spec.md §4.F step 3).
	Seq uint64
}

var seqCounter atomic.Uint64

const shardCount = 32

type shard struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// Registry is a sharded concurrent map from task id to Entry. Sharding
// keeps each lock held briefly, per spec.md §5 ("registry locks are taken
// briefly and released before returning to user code").
type Registry struct {
	shards [shardCount]*shard
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[string]*Entry)}
	}
	return r
}

func (r *Registry) shardFor(taskID string) *shard {
	var h uint32
	for i := 0; i < len(taskID); i++ {
		h = h*31 + uint32(taskID[i])
	}
	return r.shards[h%shardCount]
}

// Register allocates a fresh task id for loc, inserts an empty Entry and
// returns the id, per spec.md §4.D register.
func (r *Registry) Register(loc sourcemap.Location, goroutineID int64) string {
	taskID := uuid.NewString()
	s := r.shardFor(taskID)
	s.mu.Lock()
	s.entries[taskID] = &Entry{
		TaskID:      taskID,
		Location:    loc,
		GoroutineID: goroutineID,
		Seq:         seqCounter.Add(1),
	}
	s.mu.Unlock()
	return taskID
}

// Credit atomically adds bytes to taskID's accumulator and increments its
// allocation count. Unknown task ids (a late-arriving attribution after
// Profile release) are silently dropped, per spec.md §4.D and §7.
func (r *Registry) Credit(taskID string, bytes uint64) {
	s := r.shardFor(taskID)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[taskID]
	if !ok {
		return
	}
	e.AccumulatedBytes += bytes
	e.AllocationCount++
}

// Take removes and returns taskID's entry, used by Profile release to
// compose the output record. The second return is false if taskID is
// unknown (already taken, or never registered).
func (r *Registry) Take(taskID string) (Entry, bool) {
	s := r.shardFor(taskID)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[taskID]
	if !ok {
		return Entry{}, false
	}
	delete(s.entries, taskID)
	return *e, true
}

// Active reports whether taskID currently has a live entry. Used by tests
// and by spec.md §8 property 1 ("present during its active interval and
// absent before/after").
func (r *Registry) Active(taskID string) bool {
	s := r.shardFor(taskID)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[taskID]
	return ok
}

// ByGoroutine returns every currently active entry created on goroutineID,
// most-recently-created first. Used by the attribution engine's async
// fallback (spec.md §4.F step 3).
func (r *Registry) ByGoroutine(goroutineID int64) []Entry {
	var out []Entry
	for _, s := range r.shards {
		s.mu.Lock()
		for _, e := range s.entries {
			if e.GoroutineID == goroutineID {
				out = append(out, *e)
			}
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	return out
}

// ByLocation returns every currently active entry at loc, most-recently-
// created first, regardless of goroutine. Used as the final fallback when
// no active entry on the allocating goroutine matches (spec.md §4.F step
// 3: "credit the closest ancestor that does appear in the chain").
func (r *Registry) ByLocation(locationID string) []Entry {
	var out []Entry
	for _, s := range r.shards {
		s.mu.Lock()
		for _, e := range s.entries {
			if e.Location.ID == locationID {
				out = append(out, *e)
			}
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	return out
}
