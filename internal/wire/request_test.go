package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycore/httpcore/internal/core/domain"
)

func TestSerializeHead_RendersRequestLineAndHeaders(t *testing.T) {
	headers := domain.NewHeaderBag()
	headers.Add("Host", "example.com")
	headers.Add("Accept", "*/*")

	out, err := SerializeHead(RequestLine{Method: "GET", RequestTarget: "/path?q=1", Headers: headers})
	require.NoError(t, err)
	assert.Equal(t, "GET /path?q=1 HTTP/1.1\r\nHost: example.com\r\nAccept: */*\r\n\r\n", string(out))
}

func TestSerializeHead_RejectsInvalidHeaderName(t *testing.T) {
	headers := domain.NewHeaderBag()
	headers.Add("bad name", "value")

	_, err := SerializeHead(RequestLine{Method: "GET", RequestTarget: "/", Headers: headers})
	require.Error(t, err)
}

func TestChooseFraming_EmptyBodyMethodsOmitBoth(t *testing.T) {
	assert.Equal(t, domain.FramingEmpty, ChooseFraming("GET", false, -1))
	assert.Equal(t, domain.FramingEmpty, ChooseFraming("DELETE", false, -1))
}

func TestChooseFraming_NonBodylessMethodGetsContentLengthZero(t *testing.T) {
	assert.Equal(t, domain.FramingKnownLength, ChooseFraming("POST", false, -1))
}

func TestChooseFraming_KnownLengthBody(t *testing.T) {
	assert.Equal(t, domain.FramingKnownLength, ChooseFraming("POST", true, 128))
}

func TestChooseFraming_UnknownLengthBodyIsChunked(t *testing.T) {
	assert.Equal(t, domain.FramingChunked, ChooseFraming("POST", true, -1))
}

func TestApplyFramingHeaders_EmptyOmitsBothHeaders(t *testing.T) {
	headers := domain.NewHeaderBag()
	ApplyFramingHeaders(headers, domain.FramingEmpty, -1)
	assert.False(t, headers.Contains("Content-Length"))
	assert.False(t, headers.Contains("Transfer-Encoding"))
}

func TestApplyFramingHeaders_KnownLengthSetsContentLength(t *testing.T) {
	headers := domain.NewHeaderBag()
	ApplyFramingHeaders(headers, domain.FramingKnownLength, 42)
	assert.Equal(t, "42", headers.Get("Content-Length"))
}

func TestApplyFramingHeaders_ChunkedSetsTransferEncoding(t *testing.T) {
	headers := domain.NewHeaderBag()
	ApplyFramingHeaders(headers, domain.FramingChunked, -1)
	assert.Equal(t, "chunked", headers.Get("Transfer-Encoding"))
}
