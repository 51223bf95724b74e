package util

import (
	"fmt"
	"sync"
)

// Provides utility types for tests

// ------------------------------------

type MockLogger struct {
}

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) Debug(msg string, args ...any) {}

func (m *MockLogger) Info(msg string, args ...any) {}

func (m *MockLogger) Warn(msg string, args ...any) {}

func (m *MockLogger) Error(msg string, args ...any) {}

// ------------------------------------

// RecordingLogger keeps every message for later assertions.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (r *RecordingLogger) Debug(msg string, args ...any) { r.record("DEBUG", msg, args) }

func (r *RecordingLogger) Info(msg string, args ...any) { r.record("INFO", msg, args) }

func (r *RecordingLogger) Warn(msg string, args ...any) { r.record("WARN", msg, args) }

func (r *RecordingLogger) Error(msg string, args ...any) { r.record("ERROR", msg, args) }

// Entries returns "LEVEL msg args" lines in call order.
func (r *RecordingLogger) Entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

func (r *RecordingLogger) record(level string, msg string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, fmt.Sprintf("%s %s %v", level, msg, args))
}
