package wire

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestNewDecoderChain_SingleGzipLayer(t *testing.T) {
	raw := gzipBytes(t, "hello world")
	rc, err := NewDecoderChain(bytes.NewReader(raw), "gzip", 0, 0)
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(body))
}

func TestNewDecoderChain_IdentityIsNoOp(t *testing.T) {
	rc, err := NewDecoderChain(strings.NewReader("plain"), "identity", 0, 0)
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "plain", string(body))
}

func TestNewDecoderChain_EmptyEncodingIsNoOp(t *testing.T) {
	rc, err := NewDecoderChain(strings.NewReader("plain"), "", 0, 0)
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "plain", string(body))
}

func TestNewDecoderChain_RejectsUnsupportedEncoding(t *testing.T) {
	_, err := NewDecoderChain(strings.NewReader("x"), "snappy", 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content-encoding")
}

func TestNewDecoderChain_RejectsChainLongerThanMaxDecoders(t *testing.T) {
	_, err := NewDecoderChain(strings.NewReader("x"), "gzip, gzip, gzip", 2, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds max")
}

func TestNewDecoderChain_BoundedReaderCapsDecodedBytes(t *testing.T) {
	raw := gzipBytes(t, "0123456789")
	rc, err := NewDecoderChain(bytes.NewReader(raw), "gzip", 0, 4)
	require.NoError(t, err)
	defer rc.Close()

	_, err = io.ReadAll(rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds configured limit")
}

func TestLooksLikeZlibHeader_DetectsValidHeader(t *testing.T) {
	assert.True(t, looksLikeZlibHeader([]byte{0x78, 0x9c}))
	assert.False(t, looksLikeZlibHeader([]byte{0x00, 0x00}))
	assert.False(t, looksLikeZlibHeader([]byte{0x78}))
}

func TestSupportedEncodings_ListsDefaultOrder(t *testing.T) {
	assert.Equal(t, []string{"gzip", "deflate", "br", "zstd"}, SupportedEncodings())
}
