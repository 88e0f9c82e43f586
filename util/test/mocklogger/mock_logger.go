// Package mocklogger provides a ulogger.Logger that records what it is asked to log.
package mocklogger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/bsv-blockchain/outputcache/ulogger"
)

// MockLogger counts calls per method and keeps every formatted message.
type MockLogger struct {
	mu       sync.Mutex
	calls    map[string]int
	messages []string
}

func NewTestLogger() *MockLogger {
	return &MockLogger{
		calls: make(map[string]int),
	}
}

func (l *MockLogger) LogLevel() int {
	return 0
}

func (l *MockLogger) SetLogLevel(_ string) {}

// New returns the same logger so that calls made by children are recorded too.
func (l *MockLogger) New(_ string, _ ...ulogger.Option) ulogger.Logger {
	return l
}

func (l *MockLogger) Duplicate(_ ...ulogger.Option) ulogger.Logger {
	return l
}

func (l *MockLogger) Debugf(format string, args ...interface{}) {
	l.record("Debugf", format, args...)
}

func (l *MockLogger) Infof(format string, args ...interface{}) {
	l.record("Infof", format, args...)
}

func (l *MockLogger) Warnf(format string, args ...interface{}) {
	l.record("Warnf", format, args...)
}

func (l *MockLogger) Errorf(format string, args ...interface{}) {
	l.record("Errorf", format, args...)
}

func (l *MockLogger) Fatalf(format string, args ...interface{}) {
	l.record("Fatalf", format, args...)
}

func (l *MockLogger) record(methodName string, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls[methodName]++
	l.messages = append(l.messages, fmt.Sprintf(format, args...))
}

func (l *MockLogger) Calls(methodName string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.calls[methodName]
}

// Messages returns a copy of every message logged so far, oldest first.
func (l *MockLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.messages))
	copy(out, l.messages)

	return out
}

func (l *MockLogger) AssertNumberOfCalls(t *testing.T, methodName string, expectedCalls int) {
	t.Helper()

	if actual := l.Calls(methodName); actual != expectedCalls {
		t.Errorf("Expected %v calls to %s, got %v", expectedCalls, methodName, actual)
	}
}

func (l *MockLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = make(map[string]int)
	l.messages = nil
}
