// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package metrics

import "github.com/DataDog/datadog-go/v5/statsd"

// StatsdSink adapts a statsd client to the Sink interface, for operators
// who want these process health figures alongside their other metrics. Entirely optional: a profrt Option enables it, nothing
// here runs unless wired in explicitly.
type StatsdSink struct {
	Client *statsd.Client
	Tags   []string
}

// NewStatsdSink dials addr (e.g. "127.0.0.1:8125" or a unix socket path)
// and returns a ready Sink.
func NewStatsdSink(addr string, tags ...string) (*StatsdSink, error) {
	c, err := statsd.New(addr)
	if err != nil {
		return nil, err
	}
	return &StatsdSink{Client: c, Tags: tags}, nil
}

// Gauge implements Sink.
func (s *StatsdSink) Gauge(name string, value float64) error {
	return s.Client.Gauge(name, value, s.Tags, 1)
}

// Close releases the underlying statsd client's resources.
func (s *StatsdSink) Close() error {
	return s.Client.Close()
}
