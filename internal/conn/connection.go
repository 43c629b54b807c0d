// Package conn implements the per-socket state machine from spec.md
// §4.2: one Connection owns exactly one ports.ByteStream to one peer,
// tracks its verified/tunneled state, and exposes the connect/send/read
// lifecycle the per-origin pool leases out. The state-transition style
// (atomic state word + explicit transition methods) follows the
// teacher's circuit breaker in internal/adapter/unifier/circuit_breaker.go.
package conn

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/relaycore/httpcore/internal/core/domain"
	"github.com/relaycore/httpcore/internal/core/ports"
	"github.com/relaycore/httpcore/internal/wire"
)

// State names the nodes of the spec.md §4.2 state diagram.
type State int32

const (
	StateNew State = iota
	StateConnecting
	StateIdle
	StateRequestSent
	StateResponseHead
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnecting:
		return "connecting"
	case StateIdle:
		return "idle"
	case StateRequestSent:
		return "request_sent"
	case StateResponseHead:
		return "response_head"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Kind is the Direct | ForwardProxy | Tunneled variant from spec.md §3.
type Kind int

const (
	KindDirect Kind = iota
	KindForwardProxy
	KindTunneled
)

// Config bundles what a Connection needs from its pool to dial and
// verify a peer. TLS/Dialer are the ports.* seams; everything else is
// plain data carried from the PoolKey/options that created the pool.
type Config struct {
	Dialer      ports.Dialer
	TLS         ports.TLSProvider
	Clock       ports.Clock
	UseTLS      bool
	TLSParams   ports.TLSWrapParams
	MaxHeaderSz int
	MaxChunkSz  int64
}

// tunnelSpec captures set_tunnel's arguments, held until connect().
type tunnelSpec struct {
	targetHost string
	targetPort int
	scheme     string
	headers    *domain.HeaderBag
}

// Connection is a single leased socket. All exported methods are safe
// to call only from the single goroutine holding the lease — per
// spec.md §9 ("All Connection... values are owned by a single request
// at any time"), there is no internal mutex here.
type Connection struct {
	cfg Config

	peerHost string
	peerPort int
	kind     Kind

	state atomic.Int32

	stream   ports.ByteStream
	reader   *bufio.Reader
	createdAt time.Time
	lastUsed  time.Time

	isVerified      bool
	proxyIsVerified bool
	hasTunnel       bool

	tunnel *tunnelSpec

	pendingBody   bool // send_request wrote a framing that expects further body writes
	bodyUnread    bool // response body not yet fully drained
	bodyWriteFail bool // a body write hit EPIPE/BrokenPipe (§4.2 send_request note)
}

// New constructs a Connection in the NEW state, matching spec.md §4.2
// `new(peer_host, peer_port, config)`.
func New(peerHost string, peerPort int, cfg Config) *Connection {
	if cfg.Clock == nil {
		cfg.Clock = ports.RealClock
	}
	c := &Connection{cfg: cfg, peerHost: peerHost, peerPort: peerPort, kind: KindDirect}
	c.state.Store(int32(StateNew))
	return c
}

// SetTunnel marks the connection as CONNECT-tunneled to targetHost:port
// with inner scheme. Must be called before Connect.
func (c *Connection) SetTunnel(targetHost string, targetPort int, scheme string, headers *domain.HeaderBag) error {
	if State(c.state.Load()) != StateNew {
		return domain.NewErrorf(domain.KindProtocolError, "conn.set_tunnel", "set_tunnel must precede connect()")
	}
	c.kind = KindTunneled
	c.tunnel = &tunnelSpec{targetHost: targetHost, targetPort: targetPort, scheme: scheme, headers: headers}
	return nil
}

// MarkForwardProxy records that this connection speaks to its peer as a
// forward proxy (absolute-form requests, no CONNECT) rather than direct.
func (c *Connection) MarkForwardProxy() {
	if c.kind == KindDirect {
		c.kind = KindForwardProxy
	}
}

func (c *Connection) State() State { return State(c.state.Load()) }
func (c *Connection) Kind() Kind   { return c.kind }

func (c *Connection) IsVerified() bool      { return c.isVerified }
func (c *Connection) ProxyIsVerified() bool { return c.proxyIsVerified }
func (c *Connection) HasTunnel() bool       { return c.hasTunnel }
func (c *Connection) CreatedAt() time.Time  { return c.createdAt }
func (c *Connection) LastUsedAt() time.Time { return c.lastUsed }

func (c *Connection) PeerAddr() net.Addr {
	if c.stream == nil {
		return nil
	}
	return c.stream.PeerAddr()
}

// Connect performs DNS+TCP (via cfg.Dialer), the optional CONNECT
// tunnel negotiation, and the optional TLS handshake(s), per spec.md
// §4.2's "connect()" contract and "Tunnel handling" paragraph.
func (c *Connection) Connect(ctx context.Context, connectDeadline *time.Time) error {
	if State(c.state.Load()) != StateNew {
		return domain.NewErrorf(domain.KindProtocolError, "conn.connect", "connect() called in state %s", c.State())
	}
	c.state.Store(int32(StateConnecting))

	dialCtx := ctx
	if connectDeadline != nil {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithDeadline(ctx, *connectDeadline)
		defer cancel()
	}

	raw, err := c.cfg.Dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(c.peerHost, portString(c.peerPort)))
	if err != nil {
		c.state.Store(int32(StateClosed))
		return domain.NewError(domain.KindConnectError, "conn.connect", err)
	}
	c.stream = &netStreamAdapter{Conn: raw}

	if c.tunnel != nil {
		if c.cfg.UseTLS {
			result, err := c.handshake(ctx, c.peerHost)
			if err != nil {
				c.forceClose()
				return err
			}
			c.proxyIsVerified = result.Verified
		}
		if err := c.negotiateTunnel(ctx); err != nil {
			c.forceClose()
			return err
		}
	} else if c.cfg.UseTLS {
		if err := c.handshakeTarget(ctx, c.peerHost); err != nil {
			c.forceClose()
			return err
		}
	}

	c.createdAt = c.cfg.Clock.Now()
	c.lastUsed = c.createdAt
	c.reader = bufio.NewReader(c.stream)
	c.state.Store(int32(StateIdle))
	return nil
}

// negotiateTunnel implements spec.md §4.2 "Tunnel handling": CONNECT to
// the proxy, require 2xx, then TLS to the inner target if its scheme is
// https. By the time this runs, Connect has already TLS-wrapped the
// proxy hop (when cfg.UseTLS is set) and recorded the result in
// proxyIsVerified, so the CONNECT request itself travels over the
// correct transport — plaintext TCP to an HTTP proxy, or inside the
// just-established TLS session to an HTTPS proxy.
func (c *Connection) negotiateTunnel(ctx context.Context) error {
	t := c.tunnel
	target := net.JoinHostPort(t.targetHost, portString(t.targetPort))

	headers := domain.NewHeaderBag()
	headers.Set("Host", target)
	if t.headers != nil {
		t.headers.Range(func(name, value string) { headers.Add(name, value) })
	}

	head, err := wire.SerializeHead(wire.RequestLine{Method: "CONNECT", RequestTarget: target, Headers: headers})
	if err != nil {
		return domain.NewError(domain.KindProxyError, "conn.connect_tunnel", err)
	}
	if _, err := c.stream.Write(head); err != nil {
		return domain.NewError(domain.KindProxyError, "conn.connect_tunnel", err)
	}

	reader := bufio.NewReader(c.stream)
	resp, err := wire.ParseResponseHead(reader, c.cfg.MaxHeaderSz)
	if err != nil {
		return domain.NewError(domain.KindProxyError, "conn.connect_tunnel", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewErrorf(domain.KindProxyError, "conn.connect_tunnel", "CONNECT failed: %d %s", resp.StatusCode, resp.Reason)
	}
	c.hasTunnel = true

	if t.scheme == "https" {
		if err := c.handshakeTarget(ctx, t.targetHost); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connection) handshakeTarget(ctx context.Context, serverName string) error {
	result, err := c.handshake(ctx, serverName)
	if err != nil {
		return err
	}
	c.isVerified = result.Verified
	return nil
}

// handshake TLS-wraps c.stream for serverName and returns the raw
// ports.TLSWrapResult so callers can attribute Verified to whichever
// hop (target or proxy) it actually covers — isVerified for the target
// origin, proxyIsVerified for the proxy hop of a tunneled connection
// (spec.md §3 Connection, §4.2 "Verification outcome").
func (c *Connection) handshake(ctx context.Context, serverName string) (ports.TLSWrapResult, error) {
	if c.cfg.TLS == nil {
		return ports.TLSWrapResult{}, domain.NewErrorf(domain.KindSSLError, "conn.handshake", "https target but no TLSProvider configured")
	}
	params := c.cfg.TLSParams
	if params.ServerName == "" {
		params.ServerName = serverName
	}
	result, err := c.cfg.TLS.Wrap(ctx, c.stream, params)
	if err != nil {
		return ports.TLSWrapResult{}, domain.NewError(domain.KindSSLError, "conn.handshake", err)
	}
	c.stream = result.Stream
	return result, nil
}

// SendRequest writes the request head (via wire.SerializeHead) and, if
// bodyWriter is non-nil, the framed body. Per spec.md §4.2, a body write
// failure (broken pipe) does not raise — the server may still answer.
func (c *Connection) SendRequest(rl wire.RequestLine, framing domain.BodyFraming, body func(w func([]byte) error) error) error {
	if State(c.state.Load()) != StateIdle {
		return domain.NewErrorf(domain.KindProtocolError, "conn.send_request", "send_request() called in state %s", c.State())
	}
	head, err := wire.SerializeHead(rl)
	if err != nil {
		return err
	}
	if _, err := c.stream.Write(head); err != nil {
		return domain.NewError(domain.KindConnectError, "conn.send_request", err)
	}

	if body != nil {
		writeOne := func(chunk []byte) error {
			var werr error
			if framing == domain.FramingChunked {
				werr = wire.WriteChunked(c.stream, chunk)
			} else {
				_, werr = c.stream.Write(chunk)
			}
			return werr
		}
		if err := body(writeOne); err != nil && !isBrokenPipe(err) {
			c.state.Store(int32(StateClosed))
			return domain.NewError(domain.KindConnectError, "conn.send_request", err)
		} else if err != nil {
			c.bodyWriteFail = true
		}
		if framing == domain.FramingChunked && !c.bodyWriteFail {
			_ = wire.WriteChunkedTrailer(c.stream)
		}
	}

	c.state.Store(int32(StateRequestSent))
	return nil
}

// ReadResponseHead reads the status line and headers, transitioning to
// RESPONSE_HEAD. readDeadline, if set, bounds this read.
func (c *Connection) ReadResponseHead(readDeadline *time.Time) (*wire.ResponseHead, error) {
	if State(c.state.Load()) != StateRequestSent {
		return nil, domain.NewErrorf(domain.KindProtocolError, "conn.read_response_head", "called in state %s", c.State())
	}
	if readDeadline != nil {
		_ = c.stream.SetReadDeadline(*readDeadline)
	}
	head, err := wire.ParseResponseHead(c.reader, c.cfg.MaxHeaderSz)
	if err != nil {
		c.state.Store(int32(StateClosed))
		// wire.ParseResponseHead wraps read failures in its own error, so
		// a read that failed once readDeadline had passed is a timeout too.
		if isTimeout(err) || (readDeadline != nil && !time.Now().Before(*readDeadline)) {
			return nil, domain.NewError(domain.KindReadTimeout, "conn.read_response_head", err)
		}
		return nil, err
	}
	c.bodyUnread = true
	c.state.Store(int32(StateResponseHead))
	return head, nil
}

// BodyReader exposes the buffered reader positioned right after the
// response head, for the stream package to layer chunked/length framing
// and decompression on top of.
func (c *Connection) BodyReader() *bufio.Reader { return c.reader }

func (c *Connection) SetReadDeadline(t time.Time) error  { return c.stream.SetReadDeadline(t) }
func (c *Connection) SetWriteDeadline(t time.Time) error { return c.stream.SetWriteDeadline(t) }

// MarkBodyComplete transitions RESPONSE_HEAD -> IDLE once the response
// body (and trailers, if chunked) have been fully consumed.
func (c *Connection) MarkBodyComplete() {
	if State(c.state.Load()) != StateResponseHead {
		return
	}
	c.bodyUnread = false
	c.lastUsed = c.cfg.Clock.Now()
	c.state.Store(int32(StateIdle))
}

// Close is idempotent; a closed connection is never reusable again.
func (c *Connection) Close() error {
	prev := State(c.state.Swap(int32(StateClosed)))
	if prev == StateClosed || c.stream == nil {
		return nil
	}
	return c.stream.Close()
}

func (c *Connection) forceClose() {
	c.state.Store(int32(StateClosed))
	if c.stream != nil {
		_ = c.stream.Close()
	}
}

// IsReusable implements spec.md §4.2: open, no unread bytes, not mid
// body-write-failure, and currently IDLE.
func (c *Connection) IsReusable() bool {
	if State(c.state.Load()) != StateIdle {
		return false
	}
	if c.bodyUnread || c.bodyWriteFail {
		return false
	}
	return true
}

// HealthCheck performs the non-blocking peek spec.md §4.4 "lease"
// describes: a zero-byte-deadline read that should return
// (0, os.ErrDeadlineExceeded) on a healthy idle socket, or (0, io.EOF)
// on one the peer has half-closed.
func (c *Connection) HealthCheck() bool {
	if State(c.state.Load()) != StateIdle || c.stream == nil {
		return false
	}
	if err := c.stream.SetReadDeadline(time.Unix(0, 1)); err != nil {
		return false
	}
	buf := make([]byte, 1)
	n, err := c.stream.Read(buf)
	_ = c.stream.SetReadDeadline(time.Time{})
	if n > 0 {
		// Unexpected leftover bytes: treat the socket as unsafe to reuse.
		return false
	}
	return isTimeout(err)
}

func portString(port int) string { return fmt.Sprintf("%d", port) }

// isBrokenPipe reports whether err is EPIPE/ECONNRESET or a plain EOF
// from writing to a peer that already closed its read side — spec.md
// §4.2's "on body BrokenPipeError/EPIPE does NOT raise" case. Any other
// write failure (e.g. a timeout) still raises; only these specific
// "peer hung up" errors are swallowed so the caller can still read
// back a full response.
func isBrokenPipe(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// netStreamAdapter adapts a plain net.Conn to ports.ByteStream.
type netStreamAdapter struct {
	net.Conn
}

func (a *netStreamAdapter) PeerAddr() net.Addr { return a.Conn.RemoteAddr() }
