// Package stream implements C6, the lazily-read Response body from
// spec.md §4.6: read/read_chunked/stream/read1/line-iteration, with
// decompression layered via internal/wire's decoder chain and a
// release-on-EOF policy that never leaves a connection half-read in a
// pool.
package stream

import (
	"bufio"
	"io"
	"time"

	units "github.com/docker/go-units"

	"github.com/relaycore/httpcore/internal/core/domain"
	"github.com/relaycore/httpcore/internal/wire"
)

// BodySource is the minimal connection surface the Response needs: a
// raw body reader plus the ability to set read deadlines and to signal
// completion/failure back to the connection's state machine. Defined
// here (not imported from internal/conn) to keep the dependency graph
// acyclic — internal/conn.Connection satisfies it structurally via the
// adapter in internal/facade.
type BodySource interface {
	Read(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Releaser is called exactly once, either when the body is fully
// consumed (reusable=true) or when the Response is closed/discarded
// early (reusable=false) — spec.md §9's "weak back-reference to its
// pool... found via a registry on release" pattern, implemented here
// as a plain callback so internal/stream never imports internal/pool.
type Releaser func(reusable bool)

// Response is the C6 component. body_stream is whatever BodySource the
// facade constructed (chunked or length-delimited, then decoder-chain
// wrapped); connection is represented only by the release callback, so
// Response never holds a pointer back into internal/conn/internal/pool
// and cannot form the ownership cycle spec.md §9 calls out.
type Response struct {
	Status        int
	Reason        string
	Version       string
	Headers       *domain.HeaderBag
	RequestURL    string
	Retries       domain.Retry
	DecodeContent bool

	raw          BodySource
	decoded      io.ReadCloser
	released     bool
	closed       bool
	fullyRead    bool
	release      Releaser
	readDeadline func() *time.Time
	maxDecoders  int
	maxDecoded   int64
}

// Options bundles the construction-time knobs the facade derives from
// ClientConfig.
type Options struct {
	DecodeContent   bool
	MaxDecoders     int
	MaxDecodedBytes int64
	ReadDeadline    func() *time.Time // re-evaluated per read, tracks Deadline.ReadTimeout()
}

// New builds a Response around an already-parsed head and a raw body
// source positioned at the start of the body.
func New(head *wire.ResponseHead, requestURL string, retries domain.Retry, raw BodySource, release Releaser, opts Options) (*Response, error) {
	r := &Response{
		Status: head.StatusCode, Reason: head.Reason, Version: head.Version,
		Headers: head.Headers, RequestURL: requestURL, Retries: retries,
		DecodeContent: opts.DecodeContent, raw: raw, release: release,
		readDeadline: opts.ReadDeadline, maxDecoders: opts.MaxDecoders, maxDecoded: opts.MaxDecodedBytes,
	}

	var body io.ReadCloser = io.NopCloser(deadlineReader{r: raw, deadline: r.readDeadline})
	if opts.DecodeContent {
		if ce := head.Headers.CombinedValue("Content-Encoding"); ce != "" {
			decoded, err := wire.NewDecoderChain(body, ce, opts.MaxDecoders, opts.MaxDecodedBytes)
			if err != nil {
				_ = raw.Close()
				r.release(false)
				return nil, err
			}
			body = decoded
		}
	}
	r.decoded = body
	return r, nil
}

// deadlineReader applies readDeadline() before every Read, matching the
// per-read timeout re-evaluation spec.md §4.3 requires ("read applies
// to each individual socket read after connect").
type deadlineReader struct {
	r        BodySource
	deadline func() *time.Time
}

func (d deadlineReader) Read(p []byte) (int, error) {
	if d.deadline != nil {
		if dl := d.deadline(); dl != nil {
			if err := d.r.SetReadDeadline(*dl); err != nil {
				return 0, err
			}
		}
	}
	n, err := d.r.Read(p)
	if err != nil && err != io.EOF && isTimeoutErr(err) {
		return n, domain.NewError(domain.KindReadTimeout, "stream.read", err)
	}
	return n, err
}

func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

// Read implements io.Reader: one bounded read of decoded bytes,
// spec.md §4.6 `read(n)` when called with a len(p)-sized buffer.
func (r *Response) Read(p []byte) (int, error) {
	if r.closed {
		return 0, domain.NewErrorf(domain.KindResponseError, "stream.read", "read on closed response")
	}
	n, err := r.decoded.Read(p)
	if err == io.EOF {
		r.fullyRead = true
		r.autoRelease()
		return n, io.EOF
	}
	if err != nil {
		r.transitionToClosedOnError()
		return n, err
	}
	return n, nil
}

// ReadAll implements spec.md §4.6 `read()` (no size argument): drain
// the full decoded body, returning io.EOF as a nil error.
func (r *Response) ReadAll() ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil && err != io.EOF {
		return data, err
	}
	return data, nil
}

// Stream returns a channel-free pull iterator yielding chunks of at
// most chunkSize decoded bytes, spec.md §4.6 `stream(size)`.
func (r *Response) Stream(chunkSize int) func() ([]byte, error, bool) {
	if chunkSize <= 0 {
		chunkSize = 16 * units.KiB
	}
	buf := make([]byte, chunkSize)
	return func() ([]byte, error, bool) {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if err == io.EOF {
				return chunk, nil, true
			}
			return chunk, err, err != nil
		}
		if err == io.EOF {
			return nil, nil, true
		}
		return nil, err, err != nil
	}
}

// Read1 implements spec.md §4.6 `read1(n)`: at most one underlying Read
// call, returning whatever is immediately available (possibly fewer
// than n bytes, possibly zero without error).
func (r *Response) Read1(n int) ([]byte, error) {
	if n <= 0 {
		n = 16 * units.KiB
	}
	buf := make([]byte, n)
	read, err := r.Read(buf)
	return buf[:read], err
}

// Lines returns an iterator over body lines, split on '\n', trailing
// '\r' trimmed — spec.md §4.6 "iterator over lines".
func (r *Response) Lines() func() (string, error, bool) {
	br := bufio.NewReader(r)
	return func() (string, error, bool) {
		line, err := br.ReadString('\n')
		if err == io.EOF {
			if line == "" {
				return "", nil, true
			}
			return trimCRLF(line), nil, true
		}
		if err != nil {
			return "", err, true
		}
		return trimCRLF(line), nil, false
	}
}

func trimCRLF(s string) string {
	s = bytesTrimSuffix(s, "\n")
	s = bytesTrimSuffix(s, "\r")
	return s
}

func bytesTrimSuffix(s, suffix string) string {
	if len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)]
	}
	return s
}

// ReleaseConn implements spec.md §4.6 "otherwise the caller must invoke
// release_conn() or close()": explicitly return the connection without
// requiring the body to already be fully read. The remaining body
// bytes are drained first so the connection isn't left mid-message —
// the "drained-and-released (if small)" half of the redirect re-read
// rule in §4.6.
func (r *Response) ReleaseConn() {
	if r.released || r.closed {
		return
	}
	if !r.fullyRead {
		if _, err := io.Copy(io.Discard, r); err != nil {
			r.Close()
			return
		}
		// Draining to io.EOF runs Read's own autoRelease, which already
		// released the connection as reusable — don't release it twice.
		if r.released || r.closed {
			return
		}
	}
	r.release(true)
	r.released = true
}

// Close implements the "closed (if large)" half of the redirect
// re-read rule: discard the connection without attempting to drain it.
func (r *Response) Close() error {
	if r.released || r.closed {
		return nil
	}
	r.closed = true
	err := r.decoded.Close()
	_ = r.raw.Close()
	r.release(false)
	return err
}

func (r *Response) autoRelease() {
	if r.released || r.closed {
		return
	}
	r.release(true)
	r.released = true
}

// transitionToClosedOnError implements spec.md §4.6 "Idempotence under
// partial reads": a ProtocolError or timeout mid-body closes the
// Response and discards the connection, never returns it to the pool.
func (r *Response) transitionToClosedOnError() {
	if r.released || r.closed {
		return
	}
	r.closed = true
	_ = r.decoded.Close()
	r.release(false)
}
