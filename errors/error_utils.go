// Package errors provides utilities for categorizing and handling errors in the output cache.
package errors

import (
	"context"
	"errors"
)

// IsRetryableError determines if an error is transient and the caller may retry the operation.
// The stores never retry internally; this is purely advisory for callers.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Check if context was cancelled - not retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_STORAGE_UNAVAILABLE:
			return true
		case ERR_ENCODING,
			ERR_INVALID_ARGUMENT:
			// the stored or supplied data is wrong, retrying will not change that
			return false
		}
	}

	return false
}

// IsEncodingError reports whether err, or anything it wraps, is an ERR_ENCODING error.
func IsEncodingError(err error) bool {
	return Is(err, ErrEncoding)
}
