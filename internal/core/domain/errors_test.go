package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesOnKindOnly(t *testing.T) {
	err := NewError(KindConnectTimeout, "conn.dial", errors.New("boom"))
	assert.True(t, errors.Is(err, ErrConnectTimeout))
	assert.False(t, errors.Is(err, ErrReadTimeout))
}

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(KindConnectError, "conn.dial", cause)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestError_ErrorIncludesURLWhenSet(t *testing.T) {
	err := &Error{Kind: KindProtocolError, Op: "wire.read", Message: "bad status line", URL: "http://example.com"}
	msg := err.Error()
	assert.Contains(t, msg, "ProtocolError")
	assert.Contains(t, msg, "wire.read")
	assert.Contains(t, msg, "bad status line")
	assert.Contains(t, msg, "http://example.com")
}

func TestNewErrorf_FormatsMessage(t *testing.T) {
	err := NewErrorf(KindDecodeError, "wire.decode_chain", "unsupported content-encoding %q", "snappy")
	assert.Equal(t, `unsupported content-encoding "snappy"`, err.Message)
	assert.Equal(t, KindDecodeError, err.Kind)
}

func TestMaxRetryError_IsMatchesSentinelAndWrappedReason(t *testing.T) {
	inner := NewError(KindConnectTimeout, "conn.dial", nil)
	err := &MaxRetryError{URL: "http://example.com", Reason: inner}

	assert.True(t, errors.Is(err, ErrMaxRetry))
	assert.True(t, errors.Is(err, ErrConnectTimeout))
}

func TestMaxRetryError_ErrorMessageMentionsURL(t *testing.T) {
	err := &MaxRetryError{URL: "http://example.com", Reason: errors.New("boom")}
	assert.Contains(t, err.Error(), "http://example.com")
	assert.Contains(t, err.Error(), "boom")
}

func TestKind_StringNamesMatchTaxonomy(t *testing.T) {
	cases := map[Kind]string{
		KindInvalidURL:     "InvalidUrl",
		KindConnectError:   "ConnectError",
		KindConnectTimeout: "ConnectTimeoutError",
		KindReadTimeout:    "ReadTimeoutError",
		KindProtocolError:  "ProtocolError",
		KindSSLError:       "SSLError",
		KindProxyError:     "ProxyError",
		KindEmptyPool:      "EmptyPoolError",
		KindDecodeError:    "DecodeError",
		KindMaxRetry:       "MaxRetryError",
		KindResponseError:  "ResponseError",
	}
	for kind, want := range cases {
		require.Equal(t, want, kind.String())
	}
}
