package wire

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycore/httpcore/internal/core/domain"
)

func TestParseResponseHead_ParsesStatusLineAndHeaders(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\n"
	head, err := ParseResponseHead(bufio.NewReader(strings.NewReader(raw)), 0)
	require.NoError(t, err)
	assert.Equal(t, 200, head.StatusCode)
	assert.Equal(t, "OK", head.Reason)
	assert.Equal(t, "HTTP/1.1", head.Version)
	assert.Equal(t, "text/plain", head.Headers.Get("Content-Type"))
	assert.Equal(t, "5", head.Headers.Get("Content-Length"))
}

func TestParseResponseHead_HandlesObsoleteLineFolding(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nX-Folded: first\r\n second\r\n\r\n"
	head, err := ParseResponseHead(bufio.NewReader(strings.NewReader(raw)), 0)
	require.NoError(t, err)
	assert.Equal(t, "first second", head.Headers.Get("X-Folded"))
}

func TestParseResponseHead_RejectsMalformedStatusLine(t *testing.T) {
	raw := "not a status line\r\n\r\n"
	_, err := ParseResponseHead(bufio.NewReader(strings.NewReader(raw)), 0)
	require.Error(t, err)
}

func TestParseResponseHead_RejectsHeaderBlockOverBudget(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nX-Long: " + strings.Repeat("a", 100) + "\r\n\r\n"
	_, err := ParseResponseHead(bufio.NewReader(strings.NewReader(raw)), 16)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestDetermineBodyMode_HeadRequestIsAlwaysEmpty(t *testing.T) {
	headers := domain.NewHeaderBag()
	headers.Set("Content-Length", "100")
	mode, length := DetermineBodyMode("HEAD", 200, headers)
	assert.Equal(t, domain.BodyEmpty, mode)
	assert.Equal(t, int64(0), length)
}

func TestDetermineBodyMode_204And304AreEmpty(t *testing.T) {
	headers := domain.NewHeaderBag()
	mode, _ := DetermineBodyMode("GET", 204, headers)
	assert.Equal(t, domain.BodyEmpty, mode)

	mode, _ = DetermineBodyMode("GET", 304, headers)
	assert.Equal(t, domain.BodyEmpty, mode)
}

func TestDetermineBodyMode_ChunkedTakesPrecedenceOverContentLength(t *testing.T) {
	headers := domain.NewHeaderBag()
	headers.Set("Transfer-Encoding", "chunked")
	headers.Set("Content-Length", "10")
	mode, length := DetermineBodyMode("GET", 200, headers)
	assert.Equal(t, domain.BodyChunked, mode)
	assert.Equal(t, int64(-1), length)
}

func TestDetermineBodyMode_ContentLengthWhenPresent(t *testing.T) {
	headers := domain.NewHeaderBag()
	headers.Set("Content-Length", "42")
	mode, length := DetermineBodyMode("GET", 200, headers)
	assert.Equal(t, domain.BodyContentLength, mode)
	assert.Equal(t, int64(42), length)
}

func TestDetermineBodyMode_CloseDelimitedWhenNeitherPresent(t *testing.T) {
	headers := domain.NewHeaderBag()
	mode, length := DetermineBodyMode("GET", 200, headers)
	assert.Equal(t, domain.BodyCloseDelimited, mode)
	assert.Equal(t, int64(-1), length)
}
