// Package domain holds the wire-agnostic data model shared by every
// httpcore component: URLs, header containers, timeouts, pool keys and
// the retry state machine's value type. Nothing in this package talks to
// a socket, a clock, or a file system — see internal/core/ports for the
// capabilities the rest of the engine is built against.
package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an Error the way §7 of the spec enumerates the error
// taxonomy. Callers match on Kind via errors.Is/As rather than string
// comparison.
type Kind int

const (
	KindInvalidURL Kind = iota
	KindConnectError
	KindConnectTimeout
	KindReadTimeout
	KindProtocolError
	KindSSLError
	KindProxyError
	KindEmptyPool
	KindDecodeError
	KindMaxRetry
	KindResponseError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "InvalidUrl"
	case KindConnectError:
		return "ConnectError"
	case KindConnectTimeout:
		return "ConnectTimeoutError"
	case KindReadTimeout:
		return "ReadTimeoutError"
	case KindProtocolError:
		return "ProtocolError"
	case KindSSLError:
		return "SSLError"
	case KindProxyError:
		return "ProxyError"
	case KindEmptyPool:
		return "EmptyPoolError"
	case KindDecodeError:
		return "DecodeError"
	case KindMaxRetry:
		return "MaxRetryError"
	case KindResponseError:
		return "ResponseError"
	default:
		return "UnknownError"
	}
}

// Error is the concrete error type carried across every package boundary
// in httpcore. It always knows its Kind and, where relevant, wraps the
// underlying cause so errors.Unwrap/errors.Is/errors.As keep working for
// embedders that also want to inspect net.Error etc.
type Error struct {
	Kind    Kind
	Op      string // component/operation that raised it, e.g. "conn.connect"
	URL     string
	Cause   error
	Message string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.URL != "" {
		return fmt.Sprintf("%s: %s: %s (%s)", e.Kind, e.Op, msg, e.URL)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrMaxRetry) etc. work against the sentinel
// values below without requiring callers to compare Kind directly.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func NewError(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

func NewErrorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Sentinels usable with errors.Is for callers that don't care about Op/URL.
var (
	ErrInvalidURL      = &Error{Kind: KindInvalidURL}
	ErrConnectError    = &Error{Kind: KindConnectError}
	ErrConnectTimeout  = &Error{Kind: KindConnectTimeout}
	ErrReadTimeout     = &Error{Kind: KindReadTimeout}
	ErrProtocolError   = &Error{Kind: KindProtocolError}
	ErrSSLError        = &Error{Kind: KindSSLError}
	ErrProxyError      = &Error{Kind: KindProxyError}
	ErrEmptyPool       = &Error{Kind: KindEmptyPool}
	ErrDecodeError     = &Error{Kind: KindDecodeError}
	ErrMaxRetry        = &Error{Kind: KindMaxRetry}
	ErrResponseError   = &Error{Kind: KindResponseError}
)

// MaxRetryError wraps the terminal failure of the retry controller (§7)
// together with the attempt history for diagnostics.
type MaxRetryError struct {
	URL     string
	Reason  error
	History []RetryEvent
}

func (e *MaxRetryError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("MaxRetryError: max retries exceeded for %s: %v", e.URL, e.Reason)
	}
	return fmt.Sprintf("MaxRetryError: max retries exceeded for %s", e.URL)
}

func (e *MaxRetryError) Unwrap() error { return e.Reason }

func (e *MaxRetryError) Is(target error) bool {
	return target == ErrMaxRetry || errors.Is(e.Reason, target)
}
