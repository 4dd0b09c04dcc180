// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 proftrace authors.

package log

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func containsMessage(tag, msg string, logs []string) bool {
	for _, l := range logs {
		if strings.Contains(l, tag+": "+msg) {
			return true
		}
	}
	return false
}

func TestLog(t *testing.T) {
	defer func(old Logger) { UseLogger(old) }(logger)
	rl := &RecordLogger{}
	UseLogger(rl)

	oldLvl := levelThreshold
	SetLevel(LevelDebug)
	defer SetLevel(oldLvl)

	Info("info!")
	Warn("warn!")
	Debug("debug!")

	logs := rl.Logs()
	assert.True(t, containsMessage("INFO", "info!", logs))
	assert.True(t, containsMessage("WARN", "warn!", logs))
	assert.True(t, containsMessage("DEBUG", "debug!", logs))
}

func TestLogLevelFiltering(t *testing.T) {
	defer func(old Logger) { UseLogger(old) }(logger)
	rl := &RecordLogger{}
	UseLogger(rl)

	oldLvl := levelThreshold
	SetLevel(LevelWarn)
	defer SetLevel(oldLvl)

	Debug("should not appear")
	Info("should not appear either")
	Warn("should appear")

	logs := rl.Logs()
	assert.False(t, containsMessage("DEBUG", "should not appear", logs))
	assert.False(t, containsMessage("INFO", "should not appear either", logs))
	assert.True(t, containsMessage("WARN", "should appear", logs))
}

func TestErrorRateLimited(t *testing.T) {
	defer func(old Logger) { UseLogger(old) }(logger)
	rl := &RecordLogger{}
	UseLogger(rl)

	oldLvl := levelThreshold
	SetLevel(LevelError)
	defer SetLevel(oldLvl)

	oldRate := errrate
	errrate = time.Hour
	defer func() { errrate = oldRate }()

	lastError = time.Time{}
	Error("first")
	Error("second")

	logs := rl.Logs()
	assert.Equal(t, 1, len(logs))
	assert.True(t, containsMessage("ERROR", "first", logs))
}

func TestDiscardLogger(t *testing.T) {
	var d DiscardLogger
	d.Log("anything")
}
