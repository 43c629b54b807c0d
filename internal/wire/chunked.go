package wire

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/relaycore/httpcore/internal/core/domain"
)

// DefaultMaxChunkSize bounds a single chunk's declared size so an
// adversarial server cannot force an unbounded allocation (spec.md §4.1
// "Max single-chunk size is bounded by configuration").
const DefaultMaxChunkSize = 16 << 20 // 16 MiB

// chunkedState names the states of the reader state machine in
// spec.md §4.1: SIZE_LINE -> DATA(n) -> CRLF -> (SIZE_LINE | TRAILERS -> DONE).
type chunkedState int

const (
	stateSizeLine chunkedState = iota
	stateData
	stateCRLF
	stateTrailers
	stateDone
)

// ChunkedReader lazily decodes a chunked-transfer body off r, exposing
// trailers only after the body has been fully read (spec.md §4.1/§8).
type ChunkedReader struct {
	r            *bufio.Reader
	state        chunkedState
	remaining    int64
	maxChunkSize int64
	trailers     *domain.HeaderBag
	err          error
}

// NewChunkedReader wraps r. maxChunkSize <= 0 uses DefaultMaxChunkSize.
func NewChunkedReader(r io.Reader, maxChunkSize int64) *ChunkedReader {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	return &ChunkedReader{
		r:            bufio.NewReader(r),
		state:        stateSizeLine,
		maxChunkSize: maxChunkSize,
		trailers:     domain.NewHeaderBag(),
	}
}

// Trailers returns the trailer headers. Only meaningful once Read has
// returned io.EOF.
func (c *ChunkedReader) Trailers() *domain.HeaderBag { return c.trailers }

func (c *ChunkedReader) Read(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	for {
		switch c.state {
		case stateSizeLine:
			if err := c.readSizeLine(); err != nil {
				c.err = err
				return 0, err
			}
			if c.remaining == 0 {
				c.state = stateTrailers
				continue
			}
			c.state = stateData
		case stateData:
			if len(p) == 0 {
				return 0, nil
			}
			toRead := int64(len(p))
			if toRead > c.remaining {
				toRead = c.remaining
			}
			n, err := c.r.Read(p[:toRead])
			c.remaining -= int64(n)
			if c.remaining == 0 {
				c.state = stateCRLF
			}
			if err != nil && err != io.EOF {
				c.err = domain.NewErrorf(domain.KindProtocolError, "wire.chunked.read", "%v", err)
				return n, c.err
			}
			if n > 0 {
				return n, nil
			}
			if err == io.EOF {
				c.err = domain.NewErrorf(domain.KindProtocolError, "wire.chunked.read", "unexpected EOF in chunk data")
				return 0, c.err
			}
		case stateCRLF:
			if err := c.consumeCRLF(); err != nil {
				c.err = err
				return 0, err
			}
			c.state = stateSizeLine
		case stateTrailers:
			if err := c.readTrailers(); err != nil {
				c.err = err
				return 0, err
			}
			c.state = stateDone
		case stateDone:
			c.err = io.EOF
			return 0, io.EOF
		}
	}
}

func (c *ChunkedReader) readSizeLine() error {
	line, err := c.readLine()
	if err != nil {
		return domain.NewErrorf(domain.KindProtocolError, "wire.chunked.size_line", "%v", err)
	}
	// Chunk extensions (";name=value") are ignored per spec.md §4.1.
	if idx := strings.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	size, err := strconv.ParseInt(line, 16, 64)
	if err != nil || size < 0 {
		return domain.NewErrorf(domain.KindProtocolError, "wire.chunked.size_line", "invalid chunk size %q", line)
	}
	if size > c.maxChunkSize {
		return domain.NewErrorf(domain.KindProtocolError, "wire.chunked.size_line", "chunk size %d exceeds max %d", size, c.maxChunkSize)
	}
	c.remaining = size
	return nil
}

func (c *ChunkedReader) consumeCRLF() error {
	line, err := c.readLine()
	if err != nil {
		return domain.NewErrorf(domain.KindProtocolError, "wire.chunked.crlf", "%v", err)
	}
	if line != "" {
		return domain.NewErrorf(domain.KindProtocolError, "wire.chunked.crlf", "expected CRLF, got %q", line)
	}
	return nil
}

func (c *ChunkedReader) readTrailers() error {
	for {
		line, err := c.readLine()
		if err != nil {
			return domain.NewErrorf(domain.KindProtocolError, "wire.chunked.trailers", "%v", err)
		}
		if line == "" {
			return nil
		}
		name, value, ok := splitHeaderLine(line)
		if !ok {
			return domain.NewErrorf(domain.KindProtocolError, "wire.chunked.trailers", "malformed trailer %q", line)
		}
		c.trailers.Add(name, value)
	}
}

// readLine reads one CRLF-terminated line, trimming the terminator, and
// treats a bare LF as the same terminator (tolerant per spec.md §4.1).
func (c *ChunkedReader) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func splitHeaderLine(line string) (name, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	return name, value, true
}

// WriteChunked writes data as a single chunked-transfer frame
// "<hex-size>\r\n<data>\r\n" to w — the unit the connection's send loop
// calls once per write() from the caller's body iterable/reader.
func WriteChunked(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, strconv.FormatInt(int64(len(data)), 16)+"\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// WriteChunkedTrailer writes the terminating "0\r\n\r\n" sequence that
// ends a chunked body (no trailers supported on the request side).
func WriteChunkedTrailer(w io.Writer) error {
	_, err := io.WriteString(w, "0\r\n\r\n")
	return err
}
