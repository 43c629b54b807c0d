package wire

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkedReader_DecodesMultipleChunks(t *testing.T) {
	raw := "5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	r := NewChunkedReader(strings.NewReader(raw), 0)

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(body))
}

func TestChunkedReader_IgnoresChunkExtensions(t *testing.T) {
	raw := "5;ext=val\r\nhello\r\n0\r\n\r\n"
	r := NewChunkedReader(strings.NewReader(raw), 0)

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestChunkedReader_CapturesTrailers(t *testing.T) {
	raw := "5\r\nhello\r\n0\r\nX-Trailer: value\r\n\r\n"
	r := NewChunkedReader(strings.NewReader(raw), 0)

	_, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "value", r.Trailers().Get("X-Trailer"))
}

func TestChunkedReader_RejectsChunkExceedingMaxSize(t *testing.T) {
	raw := "10\r\n0123456789012345\r\n0\r\n\r\n"
	r := NewChunkedReader(strings.NewReader(raw), 4)

	_, err := io.ReadAll(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds max")
}

func TestChunkedReader_RejectsInvalidSizeLine(t *testing.T) {
	raw := "zz\r\nhello\r\n"
	r := NewChunkedReader(strings.NewReader(raw), 0)

	_, err := io.ReadAll(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid chunk size")
}

func TestChunkedReader_ToleratesBareLF(t *testing.T) {
	raw := "5\nhello\n0\n\n"
	r := NewChunkedReader(strings.NewReader(raw), 0)

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestWriteChunked_WritesHexSizePrefixAndFrame(t *testing.T) {
	var buf strings.Builder
	err := WriteChunked(&buf, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "5\r\nhello\r\n", buf.String())
}

func TestWriteChunked_SkipsEmptyData(t *testing.T) {
	var buf strings.Builder
	err := WriteChunked(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, "", buf.String())
}

func TestWriteChunkedTrailer_WritesTerminator(t *testing.T) {
	var buf strings.Builder
	err := WriteChunkedTrailer(&buf)
	require.NoError(t, err)
	assert.Equal(t, "0\r\n\r\n", buf.String())
}

func TestChunkedRoundTrip(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, WriteChunked(&buf, []byte("part-one")))
	require.NoError(t, WriteChunked(&buf, []byte("part-two")))
	require.NoError(t, WriteChunkedTrailer(&buf))

	r := NewChunkedReader(strings.NewReader(buf.String()), 0)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "part-onepart-two", string(body))
}
