package wire

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	units "github.com/docker/go-units"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/relaycore/httpcore/internal/core/domain"
)

// DefaultMaxDecoders caps the number of chained content-decoders per
// spec.md §4.1 ("The number of chained decoders is capped (default 5)").
const DefaultMaxDecoders = 5

// decoderFactory constructs one layer of the decode chain. Registered in
// a small table (decoderRegistry) rather than a type switch, matching
// the teacher's table-driven dispatch style for small rule sets (see
// internal/adapter/unifier/rules.go in the retained reference code).
type decoderFactory func(r io.Reader) (io.ReadCloser, error)

var decoderRegistry = map[string]decoderFactory{
	"identity": func(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(r), nil },
	"gzip": func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	"deflate": newDeflateReader,
	"br": func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(r)), nil
	},
	"zstd": func(r io.Reader) (io.ReadCloser, error) {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	},
}

// newDeflateReader checks for a zlib header first (spec.md §4.1): when
// the first two bytes form a valid zlib header the body is read as
// zlib, otherwise as raw DEFLATE. Once zlib is chosen there is no
// fallback to raw DEFLATE if decoding later fails.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	buf, err := io.ReadAll(io.LimitReader(r, 2))
	if err != nil && err != io.EOF {
		return nil, err
	}
	combined := io.MultiReader(bytes.NewReader(buf), r)

	if looksLikeZlibHeader(buf) {
		// Once the zlib decoder starts reading combined it may consume
		// bytes from r beyond the 2-byte prefix, so a failure here
		// can't cleanly fall back to raw deflate on the same stream —
		// treat a plausible-but-invalid zlib header as a hard error.
		return zlib.NewReader(combined)
	}
	return flate.NewReader(combined), nil
}

func looksLikeZlibHeader(head []byte) bool {
	if len(head) < 2 {
		return false
	}
	// RFC 1950: CMF/FLG, CM must be 8 (deflate) and the 16-bit value
	// must be a multiple of 31.
	cmf, flg := head[0], head[1]
	if cmf&0x0f != 8 {
		return false
	}
	return (int(cmf)*256+int(flg))%31 == 0
}

// SupportedEncodings is the default Accept-Encoding token list (§4.8),
// in the order the facade joins them.
func SupportedEncodings() []string {
	return []string{"gzip", "deflate", "br", "zstd"}
}

// NewDecoderChain builds a layered io.Reader that undoes contentEncoding
// (a comma-separated, case-insensitive Content-Encoding value) applied
// in reverse order, per spec.md §4.1. maxDecoders <= 0 uses
// DefaultMaxDecoders; maxBytes <= 0 means unbounded.
func NewDecoderChain(body io.Reader, contentEncoding string, maxDecoders int, maxBytes int64) (io.ReadCloser, error) {
	if maxDecoders <= 0 {
		maxDecoders = DefaultMaxDecoders
	}

	tokens := splitEncodingTokens(contentEncoding)
	if len(tokens) > maxDecoders {
		return nil, domain.NewErrorf(domain.KindDecodeError, "wire.decode_chain", "content-encoding chain length %d exceeds max %d", len(tokens), maxDecoders)
	}

	var closers []io.Closer
	reader := body
	// Reverse order: last-applied encoding is removed first.
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := strings.ToLower(strings.TrimSpace(tokens[i]))
		if tok == "" || tok == "identity" {
			continue
		}
		factory, ok := decoderRegistry[tok]
		if !ok {
			closeAll(closers)
			return nil, domain.NewErrorf(domain.KindDecodeError, "wire.decode_chain", "unsupported content-encoding %q", tok)
		}
		rc, err := factory(reader)
		if err != nil {
			closeAll(closers)
			return nil, domain.NewErrorf(domain.KindDecodeError, "wire.decode_chain", "%v", err)
		}
		closers = append(closers, rc)
		reader = rc
	}

	if maxBytes > 0 {
		reader = &boundedReader{r: reader, remaining: maxBytes, limit: maxBytes}
	}

	return &chainReadCloser{r: reader, closers: closers}, nil
}

func splitEncodingTokens(contentEncoding string) []string {
	if strings.TrimSpace(contentEncoding) == "" {
		return nil
	}
	return strings.Split(contentEncoding, ",")
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}

type chainReadCloser struct {
	r       io.Reader
	closers []io.Closer
}

func (c *chainReadCloser) Read(p []byte) (int, error) { return c.r.Read(p) }

func (c *chainReadCloser) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// boundedReader enforces decode_max_bytes (§4.1: "Total decompressed
// bytes are capped ... with DecodeError on overflow").
type boundedReader struct {
	r         io.Reader
	remaining int64
	limit     int64
}

func (b *boundedReader) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		// A body of exactly the limit is fine; only a further byte overflows.
		var probe [1]byte
		if n, err := b.r.Read(probe[:]); n == 0 {
			return 0, err
		}
		return 0, domain.NewErrorf(domain.KindDecodeError, "wire.bounded_reader", "decoded body exceeds configured limit of %s", units.BytesSize(float64(b.limit)))
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.r.Read(p)
	b.remaining -= int64(n)
	return n, err
}
