// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package writer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proftrace/profrt/internal/attribution"
	"github.com/proftrace/profrt/internal/folded"
)

func TestFileNameFormat(t *testing.T) {
	ts := time.Date(2026, 7, 30, 9, 4, 5, 0, time.Local)
	assert.Equal(t, "myprog-20260730-090405.folded", FileName("myprog", ts, StreamTime))
	assert.Equal(t, "myprog-20260730-090405-memory.folded", FileName("myprog", ts, StreamMemory))
	assert.Equal(t, "myprog-20260730-090405-memory_detail.folded", FileName("myprog", ts, StreamMemoryDetailAlloc))
	assert.Equal(t, "myprog-20260730-090405-memory_detail_dealloc.folded", FileName("myprog", ts, StreamMemoryDetailDealloc))
}

func TestSetWritesAndFlushesOnlyTouchedStreams(t *testing.T) {
	dir := t.TempDir()
	s := NewSet(dir, CompressionNone)

	s.Write(StreamTime, folded.Record{Stack: []string{"main"}, Metric: 100})
	require.NoError(t, s.Flush())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the time stream was written to, so only one file should exist")

	require.NoError(t, s.Close())

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "main 100\n", string(data))
}

func TestSetWriteAllocDetailRoutesToDetailStream(t *testing.T) {
	dir := t.TempDir()
	var sink attribution.DetailSink = NewSet(dir, CompressionNone)
	sink.WriteAllocDetail(attribution.DetailRecord{Stack: []string{"main", "main.process"}, Size: 256, TaskID: "t1"})

	s := sink.(*Set)
	require.NoError(t, s.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "-memory_detail.folded")
}

func TestSetWriteDeallocDetailRoutesToDeallocStream(t *testing.T) {
	dir := t.TempDir()
	var sink attribution.DetailSink = NewSet(dir, CompressionNone)
	sink.WriteDeallocDetail(attribution.DetailRecord{Stack: []string{"main", "main.process"}, Size: 128})

	s := sink.(*Set)
	require.NoError(t, s.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "-memory_detail_dealloc.folded")
}

func TestSetCompressAppendsGzExtension(t *testing.T) {
	dir := t.TempDir()
	s := NewSet(dir, CompressionGzip)
	s.Write(StreamMemory, folded.Record{Stack: []string{"main"}, Metric: 10})
	require.NoError(t, s.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "-memory.folded.gz")
}

func TestSetZstdAppendsZstExtension(t *testing.T) {
	dir := t.TempDir()
	s := NewSet(dir, CompressionZstd)
	s.Write(StreamMemory, folded.Record{Stack: []string{"main"}, Metric: 10})
	require.NoError(t, s.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "-memory.folded.zst")
}

func TestSetCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := NewSet(dir, CompressionNone)
	s.Write(StreamTime, folded.Record{Stack: []string{"main"}, Metric: 1})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestSetWriteAfterCloseIsSilentlyDropped(t *testing.T) {
	dir := t.TempDir()
	s := NewSet(dir, CompressionNone)
	require.NoError(t, s.Close())
	s.Write(StreamTime, folded.Record{Stack: []string{"main"}, Metric: 1})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 0)
}
