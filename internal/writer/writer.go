// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

// Package writer implements the output writers of spec.md §4.G: up to four
// folded-stack streams per run (time, memory summary, memory detail
// allocations, memory detail deallocations), buffered internally and
// flushed on Profile root release and on process exit.
package writer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/proftrace/profrt/internal/attribution"
	"github.com/proftrace/profrt/internal/folded"
	"github.com/proftrace/profrt/internal/log"
)

// Stream identifies one of the four folded-stack output files.
type Stream int

const (
	StreamTime Stream = iota
	StreamMemory
	StreamMemoryDetailAlloc
	StreamMemoryDetailDealloc
)

func (s Stream) suffix() string {
	switch s {
	case StreamTime:
		return ""
	case StreamMemory:
		return "-memory"
	case StreamMemoryDetailAlloc:
		return "-memory_detail"
	case StreamMemoryDetailDealloc:
		return "-memory_detail_dealloc"
	default:
		return ""
	}
}

// timestampLayout renders yyyymmdd-HHmmss in local time, per spec.md §4.G.
const timestampLayout = "20060102-150405"

// Compression selects the codec applied to every output stream, trading
// write-time CPU for smaller folded files on long-running processes.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

func (c Compression) extension() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

// Stem derives the file name stem from the running executable's file name.
func Stem() string {
	exe, err := os.Executable()
	if err != nil {
		return "profrt"
	}
	base := filepath.Base(exe)
	return base[:len(base)-len(filepath.Ext(base))]
}

// FileName builds the output file name for stream s, rooted at stem and
// timestamp, per spec.md §4.G.
func FileName(stem string, timestamp time.Time, s Stream) string {
	return fmt.Sprintf("%s-%s%s.folded", stem, timestamp.Format(timestampLayout), s.suffix())
}

// sink is one buffered, optionally compressed output destination. Writers
// only ever touch it from inside the allocator bypass region (spec.md
// §4.G "Writers must operate under the System allocator bypass region").
type sink struct {
	mu   sync.Mutex
	file *os.File
	gz   *gzip.Writer
	zw   *zstd.Encoder
	buf  *bufio.Writer
}

func newSink(path string, c Compression) (*sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("writer: open %s: %w", path, err)
	}
	s := &sink{file: f}
	var dst io.Writer = f
	switch c {
	case CompressionGzip:
		s.gz = gzip.NewWriter(f)
		dst = s.gz
	case CompressionZstd:
		zw, zErr := zstd.NewWriter(f)
		if zErr != nil {
			f.Close()
			return nil, fmt.Errorf("writer: zstd encoder for %s: %w", path, zErr)
		}
		s.zw = zw
		dst = zw
	}
	s.buf = bufio.NewWriter(dst)
	return s, nil
}

func (s *sink) writeRecord(r folded.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := folded.Encode(s.buf, r); err != nil {
		log.Error("writer: encode record: %v", err)
	}
}

func (s *sink) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.buf.Flush(); err != nil {
		return err
	}
	if s.gz != nil {
		if err := s.gz.Flush(); err != nil {
			return err
		}
	}
	if s.zw != nil {
		if err := s.zw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (s *sink) close() error {
	if err := s.flush(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gz != nil {
		if err := s.gz.Close(); err != nil {
			return err
		}
	}
	if s.zw != nil {
		if err := s.zw.Close(); err != nil {
			return err
		}
	}
	return s.file.Close()
}

// Set is the collection of streams a single run may write to, sized
// according to the resolved RuntimeConfig (spec.md §4.H: Off writes
// nothing, Time writes only the time stream, Memory/Both add the memory
// streams, Detail adds the two detail streams).
type Set struct {
	OutputDir   string
	Compression Compression

	stem      string
	timestamp time.Time

	mu     sync.Mutex
	sinks  map[Stream]*sink
	closed bool
}

var _ attribution.DetailSink = (*Set)(nil)

// NewSet prepares a Set rooted at outputDir. No files are created until the
// first Write call for a given stream, so a run that never touches memory
// detail never creates that file.
func NewSet(outputDir string, compression Compression) *Set {
	return &Set{
		OutputDir:   outputDir,
		Compression: compression,
		stem:        Stem(),
		timestamp:   time.Now(),
		sinks:       make(map[Stream]*sink),
	}
}

func (s *Set) sinkFor(stream Stream) (*sink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("writer: set is closed")
	}
	if sk, ok := s.sinks[stream]; ok {
		return sk, nil
	}
	name := FileName(s.stem, s.timestamp, stream) + s.Compression.extension()
	path := filepath.Join(s.OutputDir, name)
	sk, err := newSink(path, s.Compression)
	if err != nil {
		return nil, err
	}
	s.sinks[stream] = sk
	return sk, nil
}

// Write appends a record to the named stream, opening its backing file on
// first use.
func (s *Set) Write(stream Stream, r folded.Record) {
	sk, err := s.sinkFor(stream)
	if err != nil {
		log.Error("writer: %v", err)
		return
	}
	sk.writeRecord(r)
}

// WriteAllocDetail implements attribution.DetailSink: every tracked
// allocation in detail mode lands in the memory-detail-allocations stream
// with the record's Stack as its labels (the attributed ancestor chain, or
// the engine's best-effort stack when unattributed, spec.md §4.F step 4)
// and its Size as the metric; TaskID is not written.
func (s *Set) WriteAllocDetail(r attribution.DetailRecord) {
	s.Write(StreamMemoryDetailAlloc, folded.Record{Stack: r.Stack, Metric: r.Size})
}

// WriteDeallocDetail mirrors WriteAllocDetail for the deallocation detail
// stream (spec.md §4.G, fourth stream), fed by internal/attribution's
// Engine.OnDealloc.
func (s *Set) WriteDeallocDetail(r attribution.DetailRecord) {
	s.Write(StreamMemoryDetailDealloc, folded.Record{Stack: r.Stack, Metric: r.Size})
}

// Flush flushes every open stream, per the "flush on Profile root release"
// requirement.
func (s *Set) Flush() error {
	s.mu.Lock()
	sinks := make([]*sink, 0, len(s.sinks))
	for _, sk := range s.sinks {
		sinks = append(sinks, sk)
	}
	s.mu.Unlock()

	var firstErr error
	for _, sk := range sinks {
		if err := sk.flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close flushes and closes every open stream. Safe to call once at process
// exit; safe to call more than once.
func (s *Set) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sinks := make([]*sink, 0, len(s.sinks))
	for _, sk := range s.sinks {
		sinks = append(sinks, sk)
	}
	s.mu.Unlock()

	var firstErr error
	for _, sk := range sinks {
		if err := sk.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
