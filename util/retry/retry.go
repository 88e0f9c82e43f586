// Package retry repeats an operation that fails with a transient error, such as
// opening a store whose files are still locked by a process that is shutting down.
package retry

import (
	"context"
	"time"

	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/bsv-blockchain/outputcache/ulogger"
)

type Options struct {
	retryCount          int
	backoffMultiplier   int
	backoffDurationType time.Duration
	exponential         bool
	backoffFactor       float64
	maxBackoff          time.Duration
	message             string
	retryable           func(error) bool
}

type Option func(*Options)

// WithRetryCount sets the number of attempts, including the first one.
func WithRetryCount(n int) Option {
	return func(o *Options) {
		o.retryCount = n
	}
}

// WithBackoffMultiplier makes attempt i wait (multiplier*i + 1) backoff units.
func WithBackoffMultiplier(m int) Option {
	return func(o *Options) {
		o.backoffMultiplier = m
	}
}

// WithBackoffDurationType sets the backoff unit.
func WithBackoffDurationType(d time.Duration) Option {
	return func(o *Options) {
		o.backoffDurationType = d
	}
}

func WithExponentialBackoff() Option {
	return func(o *Options) {
		o.exponential = true
	}
}

func WithBackoffFactor(f float64) Option {
	return func(o *Options) {
		o.backoffFactor = f
	}
}

func WithMaxBackoff(d time.Duration) Option {
	return func(o *Options) {
		o.maxBackoff = d
	}
}

func WithMessage(msg string) Option {
	return func(o *Options) {
		o.message = msg
	}
}

// WithRetryable limits retries to the errors for which fn returns true.
func WithRetryable(fn func(error) bool) Option {
	return func(o *Options) {
		o.retryable = fn
	}
}

// sleepFunc is swapped out by the tests
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Retry calls f until it succeeds, returns a non retryable error or runs out of attempts.
// The last error is returned when every attempt fails.
func Retry[T any](ctx context.Context, logger ulogger.Logger, f func() (T, error), opts ...Option) (T, error) {
	options := &Options{
		retryCount:          3,
		backoffMultiplier:   2,
		backoffDurationType: time.Second,
		backoffFactor:       2.0,
		maxBackoff:          30 * time.Second,
		message:             "retrying",
		retryable:           errors.IsRetryableError,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.retryCount < 1 {
		options.retryCount = 1
	}

	var (
		result  T
		err     error
		backoff = options.backoffDurationType
	)

	for i := 0; i < options.retryCount; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		result, err = f()
		if err == nil {
			return result, nil
		}

		if !options.retryable(err) || i == options.retryCount-1 {
			return result, err
		}

		var wait time.Duration

		if options.exponential {
			wait = backoff
			backoff = CappedExponentialBackoff(backoff, options.backoffFactor, options.maxBackoff)
		} else {
			wait = time.Duration(options.backoffMultiplier*i+1) * options.backoffDurationType
		}

		logger.Warnf("%s (attempt %d of %d, next in %s): %v", options.message, i+1, options.retryCount, wait, err)

		if sleepErr := sleepFunc(ctx, wait); sleepErr != nil {
			return result, sleepErr
		}
	}

	return result, err
}

// CappedExponentialBackoff multiplies current by factor without going past maxBackoff.
func CappedExponentialBackoff(current time.Duration, factor float64, maxBackoff time.Duration) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next > maxBackoff {
		return maxBackoff
	}

	return next
}
