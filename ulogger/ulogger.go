// Package ulogger is the logging facade used throughout the output cache. Stores and
// commands depend on the Logger interface only; the concrete implementation (zerolog
// by default, gocore on request) is picked by New.
package ulogger

import "strings"

const (
	TypeZerolog = "zerolog"
	TypeGoCore  = "gocore"

	defaultService = "outputcache"
)

// ANSI colours used for the level column of pretty output
const (
	colorRed    = 31
	colorGreen  = 32
	colorYellow = 33
	colorBlue   = 34
	colorWhite  = 37
	colorBold   = 1
)

type Logger interface {
	LogLevel() int
	SetLogLevel(level string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	New(service string, options ...Option) Logger
	Duplicate(options ...Option) Logger
}

// New returns a logger of the type selected with WithLoggerType. Unknown types fall
// back to zerolog.
func New(service string, options ...Option) Logger {
	opts := applyOptions(options)

	if strings.EqualFold(opts.loggerType, TypeGoCore) {
		return NewGoCoreLogger(service, options...)
	}

	return NewZeroLogger(service, options...)
}

func applyOptions(options []Option) *Options {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	return opts
}

func serviceName(service string) string {
	if service == "" {
		return defaultService
	}

	return service
}
