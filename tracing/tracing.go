// Package tracing wraps a store call in an OpenTelemetry span and a gocore stat, and
// optionally feeds a prometheus histogram / counter and a log line when it finishes.
package tracing

import (
	"context"
	"fmt"
	"time"

	"github.com/bsv-blockchain/outputcache/ulogger"
	"github.com/ordishs/gocore"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/bsv-blockchain/outputcache"

type Options func(s *TraceOptions)

type TraceOptions struct {
	ParentStat *gocore.Stat
	Histogram  prometheus.Histogram
	Counter    prometheus.Counter
	Logger     ulogger.Logger
	LogMessage string
	LogArgs    []interface{}
	Attributes []attribute.KeyValue
}

func WithParentStat(stat *gocore.Stat) Options {
	return func(s *TraceOptions) {
		s.ParentStat = stat
	}
}

// WithHistogram sets the prometheus histogram to be observed when the span is finished.
func WithHistogram(histogram prometheus.Histogram) Options {
	return func(s *TraceOptions) {
		s.Histogram = histogram
	}
}

// WithCounter sets the prometheus counter to be incremented when the span is finished.
func WithCounter(counter prometheus.Counter) Options {
	return func(s *TraceOptions) {
		s.Counter = counter
	}
}

// WithLogMessage logs format at DEBUG level when the span starts and again, with the
// elapsed time appended, when it finishes.
func WithLogMessage(logger ulogger.Logger, format string, args ...interface{}) Options {
	return func(s *TraceOptions) {
		s.Logger = logger
		s.LogMessage = format
		s.LogArgs = args
	}
}

// WithAttributes adds attributes to the span.
func WithAttributes(attrs ...attribute.KeyValue) Options {
	return func(s *TraceOptions) {
		s.Attributes = append(s.Attributes, attrs...)
	}
}

// Span is a started trace span. End must be called exactly once.
type Span struct {
	span    trace.Span
	stat    *gocore.Stat
	start   time.Time
	options *TraceOptions
}

// StartTracing starts a new span with the given name and returns a context carrying
// the span and the stat, the span, and a function that ends both.
func StartTracing(ctx context.Context, name string, setOptions ...Options) (context.Context, *Span, func()) {
	options := &TraceOptions{}
	for _, opt := range setOptions {
		opt(options)
	}

	ctx, otSpan := otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(options.Attributes...))

	var (
		start time.Time
		stat  *gocore.Stat
	)

	if options.ParentStat != nil {
		start, stat, ctx = NewStatFromContext(ctx, name, options.ParentStat)
	} else {
		start, stat, ctx = StartStatFromContext(ctx, name)
	}

	if options.Logger != nil && options.LogMessage != "" {
		options.Logger.Debugf(options.LogMessage, options.LogArgs...)
	}

	s := &Span{
		span:    otSpan,
		stat:    stat,
		start:   start,
		options: options,
	}

	return ctx, s, s.End
}

// RecordError marks the span as failed. A nil err is ignored.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}

	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *Span) End() {
	s.stat.AddTime(s.start)
	s.span.End()

	elapsed := time.Since(s.start)

	if s.options.Histogram != nil {
		s.options.Histogram.Observe(elapsed.Seconds())
	}

	if s.options.Counter != nil {
		s.options.Counter.Inc()
	}

	if s.options.Logger != nil && s.options.LogMessage != "" {
		done := fmt.Sprintf(" DONE in %s", elapsed)
		s.options.Logger.Debugf(s.options.LogMessage+done, s.options.LogArgs...)
	}
}
