// Package testutil provides shared helpers for tests: a logger bound to
// testing.TB and small burden extracts written to temporary files.
package testutil

import (
	"log/slog"
	"testing"
)

// NewTestLogger returns a debug-level logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return NewTestLoggerLevel(t, slog.LevelDebug)
}

// NewTestLoggerLevel is NewTestLogger with a minimum level.
func NewTestLoggerLevel(t testing.TB, level slog.Leveler) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: level,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
