// Package resilience carries the failure-handling primitives shared by the
// source client and the attachment fetcher: transient-error classification,
// retry with backoff, and a circuit breaker for the detail endpoint.
package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// TransientError marks a failure worth retrying: rate limiting, a 5xx from
// the source, or the connection dying mid-transfer. StatusCode is zero for
// transport-level failures.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as retryable, keeping the HTTP status when
// there was one.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// Transport failures that surface as plain wrapped strings once they pass
// through the HTTP client. Municipal attachment hosts reset connections and
// lose DNS often enough that these are everyday noise, not defects.
var transientFragments = []string{
	"connection reset by peer",
	"connection refused",
	"broken pipe",
	"no such host",
	"temporary failure in name resolution",
	"i/o timeout",
	"tls handshake timeout",
	"server closed idle connection",
	"transport connection broken",
}

// IsTransient reports whether err should be retried: an explicit
// TransientError anywhere in the chain, a network timeout, a connection
// reset, or one of the known transport failure messages.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range transientFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status means "try again
// later", as opposed to a request the server will reject every time.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
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
