package httpcore

import "github.com/relaycore/httpcore/internal/core/domain"

// Kind classifies an Error per spec.md §7's taxonomy.
type Kind = domain.Kind

const (
	KindInvalidURL     = domain.KindInvalidURL
	KindConnectError   = domain.KindConnectError
	KindConnectTimeout = domain.KindConnectTimeout
	KindReadTimeout    = domain.KindReadTimeout
	KindProtocolError  = domain.KindProtocolError
	KindSSLError       = domain.KindSSLError
	KindProxyError     = domain.KindProxyError
	KindEmptyPool      = domain.KindEmptyPool
	KindDecodeError    = domain.KindDecodeError
	KindMaxRetry       = domain.KindMaxRetry
	KindResponseError  = domain.KindResponseError
)

// Error is the concrete error type every httpcore operation returns;
// match it with errors.As, or a specific Kind with errors.Is against
// the sentinels below.
type Error = domain.Error

// MaxRetryError wraps the terminal failure of the retry controller,
// carrying the attempt history for diagnostics (spec.md §7).
type MaxRetryError = domain.MaxRetryError

var (
	ErrInvalidURL     = domain.ErrInvalidURL
	ErrConnectError   = domain.ErrConnectError
	ErrConnectTimeout = domain.ErrConnectTimeout
	ErrReadTimeout    = domain.ErrReadTimeout
	ErrProtocolError  = domain.ErrProtocolError
	ErrSSLError       = domain.ErrSSLError
	ErrProxyError     = domain.ErrProxyError
	ErrEmptyPool      = domain.ErrEmptyPool
	ErrDecodeError    = domain.ErrDecodeError
	ErrMaxRetry       = domain.ErrMaxRetry
	ErrResponseError  = domain.ErrResponseError
)
