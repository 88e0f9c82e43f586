package ulogger

import (
	"github.com/ordishs/gocore"
)

// GoCoreLogger writes through gocore's logger. Its level is fixed when it is created.
type GoCoreLogger struct {
	*gocore.Logger
	skipFrame int
}

func NewGoCoreLogger(service string, options ...Option) *GoCoreLogger {
	opts := applyOptions(options)

	return &GoCoreLogger{
		Logger:    gocore.Log(serviceName(service), gocore.NewLogLevelFromString(opts.logLevel)),
		skipFrame: opts.skip,
	}
}

// New keeps the parent's level unless one is passed in options.
func (g *GoCoreLogger) New(service string, options ...Option) Logger {
	opts := applyOptions(options)

	level := g.Logger.GetLogLevel()
	if hasLevel(options) {
		level = gocore.NewLogLevelFromString(opts.logLevel)
	}

	return &GoCoreLogger{
		Logger:    gocore.Log(serviceName(service), level),
		skipFrame: opts.skip,
	}
}

func (g *GoCoreLogger) Duplicate(options ...Option) Logger {
	opts := applyOptions(options)

	dup := &GoCoreLogger{Logger: g.Logger, skipFrame: g.skipFrame}
	if opts.skip != 0 {
		dup.skipFrame = opts.skip
	}

	return dup
}

// SetLogLevel is a no-op, gocore loggers take their level at creation.
func (g *GoCoreLogger) SetLogLevel(_ string) {}

func hasLevel(options []Option) bool {
	opts := &Options{}
	for _, o := range options {
		o(opts)
	}

	return opts.logLevel != ""
}
