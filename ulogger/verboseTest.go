package ulogger

import (
	"sync"
)

// TestingT is the subset of testing.TB the test loggers need.
type TestingT interface {
	Logf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// VerboseTestLogger routes every line through t.Logf so it shows up with -v and
// next to the failing assertion.
type VerboseTestLogger struct {
	t       TestingT
	service string
	mutex   sync.Mutex
}

func NewVerboseTestLogger(t TestingT) *VerboseTestLogger {
	return &VerboseTestLogger{t: t}
}

func (l *VerboseTestLogger) LogLevel() int {
	return 0
}

func (l *VerboseTestLogger) SetLogLevel(level string) {}

func (l *VerboseTestLogger) New(service string, options ...Option) Logger {
	return &VerboseTestLogger{t: l.t, service: service}
}

func (l *VerboseTestLogger) Duplicate(options ...Option) Logger {
	return &VerboseTestLogger{t: l.t, service: l.service}
}

func (l *VerboseTestLogger) Debugf(format string, args ...interface{}) {
	l.logf("DEBUG", format, args...)
}

func (l *VerboseTestLogger) Infof(format string, args ...interface{}) {
	l.logf("INFO", format, args...)
}

func (l *VerboseTestLogger) Warnf(format string, args ...interface{}) {
	l.logf("WARN", format, args...)
}

func (l *VerboseTestLogger) Errorf(format string, args ...interface{}) {
	l.logf("ERROR", format, args...)
}

func (l *VerboseTestLogger) Fatalf(format string, args ...interface{}) {
	if l.t == nil {
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.t.Fatalf(l.prefix("FATAL")+format, args...)
}

func (l *VerboseTestLogger) logf(level, format string, args ...interface{}) {
	if l.t == nil {
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.t.Logf(l.prefix(level)+format, args...)
}

func (l *VerboseTestLogger) prefix(level string) string {
	if l.service == "" {
		return "[" + level + "] "
	}

	return "[" + level + "] [" + l.service + "] "
}
