package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrUpstreamBlocked is returned without any network I/O while the
	// shared failure budget has the upstream blocked.
	ErrUpstreamBlocked = errors.New("upstream blocked by failure budget")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassTimeout represents requests that hit the per-attempt timeout.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassNetwork represents non-timeout transport errors (refused, reset, DNS).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"
)

// UpstreamError is returned when the upstream answers with a non-2xx status.
type UpstreamError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a timeout-class failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ClassOf classifies an error for metrics and logging.
func ClassOf(err error) ErrorClass {
	var upstreamErr *UpstreamError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &upstreamErr):
		return upstreamErr.ErrorClass
	case IsTimeout(err):
		return ErrorClassTimeout
	default:
		return ErrorClassNetwork
	}
}

// classifyStatus maps an HTTP status code to an error class. 2xx and 3xx map to "".
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// newUpstreamError builds an UpstreamError from a non-2xx response.
func newUpstreamError(resp *http.Response) *UpstreamError {
	return &UpstreamError{
		StatusCode: resp.StatusCode,
		ErrorClass: classifyStatus(resp.StatusCode),
		Message:    resp.Status,
	}
}
