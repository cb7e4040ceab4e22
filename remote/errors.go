package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind is the scheduler's view of how an operation ended.
type ErrorKind int

const (
	KindSuccess ErrorKind = iota
	KindRetryable
	KindNonRetryable
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRetryable:
		return "retryable"
	case KindNonRetryable:
		return "non_retryable"
	case KindCancelled:
		return "cancelled"
	}
	return "unknown"
}

// ErrCancelled is reported for jobs that were cancelled before or while running.
var ErrCancelled = errors.New("operation cancelled")

// Error is a failed remote call carrying the backend status code.
type Error struct {
	Code    int
	Message string
}

func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error %d (%s)", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// Retryable reports whether the status code signals a transient condition.
func (e *Error) Retryable() bool {
	switch e.Code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Classify maps the result of a remote call to an ErrorKind. Errors that are
// neither *Error nor network errors are treated as non-retryable.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindSuccess
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return KindCancelled
	}

	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		if remoteErr.Retryable() {
			return KindRetryable
		}
		return KindNonRetryable
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindRetryable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindRetryable
	}
	return KindNonRetryable
}
