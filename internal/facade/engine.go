// Package facade's engine.go wires C1 (wire), C2 (conn), C4/C5 (pool,
// manager), C6 (stream) and C7 (retry) into the single request/retry
// loop spec.md §4.5 calls "urlopen" and §4.8 calls the request facade.
// Everything upstream of this file only prepares data; this is where a
// Request actually crosses the network.
package facade

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/relaycore/httpcore/internal/conn"
	"github.com/relaycore/httpcore/internal/core/domain"
	"github.com/relaycore/httpcore/internal/logger"
	"github.com/relaycore/httpcore/internal/manager"
	"github.com/relaycore/httpcore/internal/retry"
	"github.com/relaycore/httpcore/internal/stream"
	"github.com/relaycore/httpcore/internal/wire"
	bufpool "github.com/relaycore/httpcore/pkg/pool"
)

// sendBufPool reuses the 32KB scratch buffer every request body copy
// needs, avoiding a heap allocation per attempt on the hot path.
var sendBufPool = bufpool.NewLitePool(func() *[]byte {
	b := make([]byte, 32*1024)
	return &b
})

// Engine is the C8 request facade: it owns the manager, knows the
// caller's defaults, and drives a Request across as many attempts as
// its Retry budget allows, per spec.md §4.5 "Request entry point" and
// §4.7's decision matrix.
type Engine struct {
	Manager   *manager.Manager
	Log       logger.StyledLogger
	UserAgent string

	MaxHeaderBytes int
	MaxChunkBytes  int64

	// ProxyAuthName/Value, when set, are added to forward-proxied
	// requests only (never end-to-end through a tunnel), per spec.md
	// §4.8; a tunnel's CONNECT request carries the same header through
	// the connection factory's proxy headers.
	ProxyAuthName  string
	ProxyAuthValue string

	// SSL carries the options spec.md §6 groups under `ssl_*` that
	// change bytes on the wire, so they must feed PoolKey derivation
	// (§4.5) alongside scheme/host/port — two requests to the same
	// origin under different TLS policy must not share a pool.
	SSL SSLKeyFields
}

// SSLKeyFields is the subset of §6's ssl_* options that distinguish one
// pooled origin from another, mirrored onto every PoolKey this Engine
// derives.
type SSLKeyFields struct {
	TLSFingerprint         string
	CABundleID             string
	ClientCertID           string
	SSLMinimumVersion      string
	SSLMaximumVersion      string
	SSLCiphers             string
	VerifyMode             string
	ServerHostnameOverride string
}

// Do implements spec.md §4.5 urlopen, looping attempts under req.Retry
// until a non-retried Response is produced or the budget is exhausted.
func (e *Engine) Do(ctx context.Context, req *Request) (*stream.Response, error) {
	currentURL := req.URL
	method := req.Method
	body := req.Body
	bodyLength := req.BodyLength
	headers := req.Headers.Clone()
	if req.DecodeContent && !headers.Contains("Accept-Encoding") {
		headers.Set("Accept-Encoding", strings.Join(wire.SupportedEncodings(), ", "))
	}
	retryState := req.Retry
	attempt := 0

	for {
		deadline := req.Timeout.Start()

		resp, outcome, err := e.attempt(ctx, method, currentURL, headers, body, bodyLength, deadline, retryState, req)
		if err != nil {
			return nil, err
		}

		decision, derr := retry.Decide(retryState, outcome.toRetryOutcome(req.Redirect), method, currentURL.String(), attempt+1)
		if derr != nil {
			if resp != nil {
				resp.Close()
			}
			return nil, derr
		}

		if !decision.Retry {
			return resp, nil
		}
		attempt++

		if resp != nil {
			resp.ReleaseConn()
		}

		if decision.Event.Category == domain.CategoryRedirect {
			nextURL, nextMethod, dropBody, stripped, rerr := applyRedirect(currentURL, method, outcome.location, decision)
			if rerr != nil {
				return nil, rerr
			}
			currentURL, method = nextURL, nextMethod
			if dropBody {
				body, bodyLength = nil, 0
			}
			for name := range stripped {
				headers.Pop(name)
			}
			if e.Log != nil {
				e.Log.InfoWithRetry("following redirect", "redirect", attempt, "status", outcome.status, "location", currentURL.String())
			}
		} else if e.Log != nil {
			e.Log.InfoWithRetry("retrying request", decision.Event.Category.String(), attempt, "url", currentURL.String())
		}

		retryState = decision.Next
		if decision.SleepFor > 0 {
			if !sleepCtx(ctx, decision.SleepFor) {
				return nil, ctx.Err()
			}
		}
	}
}

// attemptOutcome bridges one attempt's result to the retry controller's
// Outcome shape, keeping the redirect Location header handy without
// re-parsing it from the Response later.
type attemptOutcome struct {
	err      error
	errPhase retry.Phase
	status   int
	headers  *domain.HeaderBag
	location string
	redirect bool
}

func (o attemptOutcome) toRetryOutcome(redirectsOn bool) retry.Outcome {
	return retry.Outcome{
		Err: o.err, ErrPhase: o.errPhase,
		StatusCode: o.status, Headers: o.headers,
		RedirectsOn: redirectsOn,
	}
}

// attempt performs exactly one connection lease + request/response
// cycle. The returned *stream.Response is non-nil only when a response
// head was successfully read; callers must Close/ReleaseConn it once
// its fate (return or retry) is decided.
func (e *Engine) attempt(
	ctx context.Context,
	method string,
	target *domain.Url,
	headers *domain.HeaderBag,
	body io.Reader,
	bodyLength int64,
	deadline *domain.Deadline,
	retryState domain.Retry,
	req *Request,
) (*stream.Response, attemptOutcome, error) {
	scheme, host, port := target.Origin()
	route := manager.DecideRoute(scheme, host, port, e.Manager.Proxy())
	key := e.poolKey(target)

	p, err := e.Manager.PoolFor(key, route)
	if err != nil {
		return nil, attemptOutcome{}, err
	}

	connectTimeout, _ := deadline.ConnectTimeout()
	var connectDeadline *time.Time
	leaseTimeout := time.Duration(0)
	if connectTimeout != nil {
		d := domain.NowFunc().Add(*connectTimeout)
		connectDeadline = &d
		leaseTimeout = *connectTimeout
	}

	c, err := p.Lease(ctx, connectDeadline, leaseTimeout)
	if err != nil {
		return nil, attemptOutcome{err: err, errPhase: retry.PhaseConnect}, nil
	}
	connection := c.(*conn.Connection)

	if !connection.IsVerified() && scheme == "https" && e.Log != nil {
		e.Log.WarnWithOrigin("TLS verification disabled for HTTPS request", target.String())
	}

	rl, framing, buildErr := e.buildRequestLine(method, target, route, headers, body != nil, bodyLength)
	if buildErr != nil {
		p.Release(c)
		return nil, attemptOutcome{}, buildErr
	}

	var bodyFn func(func([]byte) error) error
	if body != nil {
		bodyFn = func(write func([]byte) error) error {
			bufPtr := sendBufPool.Get()
			defer sendBufPool.Put(bufPtr)
			buf := *bufPtr
			for {
				n, rerr := body.Read(buf)
				if n > 0 {
					if werr := write(buf[:n]); werr != nil {
						return werr
					}
				}
				if rerr == io.EOF {
					return nil
				}
				if rerr != nil {
					return rerr
				}
			}
		}
	}

	if err := connection.SendRequest(rl, framing, bodyFn); err != nil {
		connection.Close()
		p.Release(c)
		return nil, attemptOutcome{err: err, errPhase: retry.PhaseOther}, nil
	}

	readTimeout, rterr := deadline.ReadTimeout()
	if rterr != nil {
		connection.Close()
		p.Release(c)
		return nil, attemptOutcome{err: rterr, errPhase: retry.PhaseRead}, nil
	}
	var readDeadline *time.Time
	if readTimeout != nil {
		d := domain.NowFunc().Add(*readTimeout)
		readDeadline = &d
	}

	head, err := connection.ReadResponseHead(readDeadline)
	if err != nil {
		connection.Close()
		p.Release(c)
		return nil, attemptOutcome{err: err, errPhase: retry.PhaseRead}, nil
	}

	release := func(reusable bool) {
		if reusable {
			connection.MarkBodyComplete()
		} else {
			connection.Close()
		}
		p.Release(c)
	}

	bodyMode, contentLength := wire.DetermineBodyMode(method, head.StatusCode, head.Headers)
	raw := wireUpBody(connection, bodyMode, contentLength, e.MaxChunkBytes)

	resp, err := stream.New(head, target.String(), retryState, raw, release, stream.Options{
		DecodeContent:   req.DecodeContent,
		MaxDecoders:     req.MaxDecoders,
		MaxDecodedBytes: req.MaxDecodedBytes,
		ReadDeadline: func() *time.Time {
			rt, _ := deadline.ReadTimeout()
			if rt == nil {
				return nil
			}
			d := domain.NowFunc().Add(*rt)
			return &d
		},
	})
	if err != nil {
		return nil, attemptOutcome{}, err
	}

	if req.PreloadContent {
		if _, rerr := resp.ReadAll(); rerr != nil {
			return nil, attemptOutcome{}, rerr
		}
		resp.ReleaseConn()
	}

	outcome := attemptOutcome{status: head.StatusCode, headers: head.Headers}
	if req.Redirect && isRedirectStatus(head.StatusCode) {
		outcome.redirect = true
		outcome.location = head.Headers.Get("Location")
	}
	return resp, outcome, nil
}

func isRedirectStatus(status int) bool {
	switch status {
	case 301, 302, 303, 307, 308:
		return true
	default:
		return false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// applyRedirect resolves location against current (relative or
// absolute) and applies the method rewrite already decided by the
// retry controller, plus host-change header stripping from spec.md
// §4.7 "Host-change headers".
func applyRedirect(current *domain.Url, method, location string, decision retry.Decision) (*domain.Url, string, bool, map[string]bool, error) {
	if location == "" {
		return nil, "", false, nil, domain.NewErrorf(domain.KindProtocolError, "facade.redirect", "redirect response missing Location header")
	}
	base, err := url.Parse(current.String())
	if err != nil {
		return nil, "", false, nil, domain.NewErrorf(domain.KindProtocolError, "facade.redirect", "unparsable current url: %v", err)
	}
	ref, err := url.Parse(location)
	if err != nil {
		return nil, "", false, nil, domain.NewErrorf(domain.KindProtocolError, "facade.redirect", "unparsable Location %q: %v", location, err)
	}
	resolved := base.ResolveReference(ref)

	nextURL, err := domain.ParseURL(resolved.String())
	if err != nil {
		return nil, "", false, nil, err
	}

	nextMethod := method
	if decision.RewriteMethod != "" {
		nextMethod = decision.RewriteMethod
	}

	strip := map[string]bool{}
	if nextURL.ASCIIHost() != current.ASCIIHost() || decision.DropBody {
		for name := range decision.StripHeaders {
			strip[name] = true
		}
	}
	return nextURL, nextMethod, decision.DropBody, strip, nil
}

func (e *Engine) poolKey(target *domain.Url) domain.PoolKey {
	scheme, host, port := target.Origin()
	key := domain.PoolKey{
		Scheme: scheme, Host: host, Port: port,
		TLSFingerprint:         e.SSL.TLSFingerprint,
		CABundleID:             e.SSL.CABundleID,
		ClientCertID:           e.SSL.ClientCertID,
		SSLMinimumVersion:      e.SSL.SSLMinimumVersion,
		SSLMaximumVersion:      e.SSL.SSLMaximumVersion,
		SSLCiphers:             e.SSL.SSLCiphers,
		VerifyMode:             e.SSL.VerifyMode,
		ServerHostnameOverride: e.SSL.ServerHostnameOverride,
	}
	if proxy := e.Manager.Proxy(); proxy != nil && proxy.URL != nil {
		key.ProxyURL = proxy.URL.String()
	}
	return key
}

func (e *Engine) buildRequestLine(method string, target *domain.Url, route manager.Route, headers *domain.HeaderBag, hasBody bool, bodyLength int64) (wire.RequestLine, domain.BodyFraming, error) {
	requestTarget := target.RequestTarget()
	if route.ForwardProxy && target.Scheme == "http" {
		requestTarget = target.AbsoluteTarget()
	}

	h := headers.Clone()
	if !h.Contains("Host") {
		h.Set("Host", target.HostHeader())
	}
	if !h.Contains("User-Agent") && e.UserAgent != "" {
		h.Set("User-Agent", e.UserAgent)
	}

	framing := wire.ChooseFraming(method, hasBody, bodyLength)
	wire.ApplyFramingHeaders(h, framing, bodyLength)

	if route.ForwardProxy {
		if px := e.Manager.Proxy(); px != nil && px.Headers != nil {
			px.Headers.Range(func(name, value string) { h.Add(name, value) })
		}
		if e.ProxyAuthName != "" {
			h.Set(e.ProxyAuthName, e.ProxyAuthValue)
		}
	}

	return wire.RequestLine{Method: method, RequestTarget: requestTarget, Headers: h}, framing, nil
}

// wireUpBody wraps a connection's raw body reader in the framing the
// response head implied, per spec.md §4.1 "Response parsing" body-mode
// determination.
func wireUpBody(c *conn.Connection, mode domain.BodyLengthMode, length int64, maxChunkBytes int64) stream.BodySource {
	raw := newConnBodySource(c)
	switch mode {
	case domain.BodyEmpty:
		return &limitedBodySource{BodySource: raw, remaining: 0}
	case domain.BodyContentLength:
		return &limitedBodySource{BodySource: raw, remaining: length}
	case domain.BodyChunked:
		return &chunkedBodySource{raw: raw, cr: wire.NewChunkedReader(raw, maxChunkBytes)}
	default: // BodyCloseDelimited
		return raw
	}
}

// limitedBodySource caps Read at a declared Content-Length, returning
// io.EOF once remaining reaches zero without requiring the underlying
// connection to close.
type limitedBodySource struct {
	stream.BodySource
	remaining int64
}

func (l *limitedBodySource) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.BodySource.Read(p)
	l.remaining -= int64(n)
	return n, err
}

// chunkedBodySource layers wire.ChunkedReader over the raw connection
// reader while still forwarding SetReadDeadline/Close to the connection.
type chunkedBodySource struct {
	raw stream.BodySource
	cr  *wire.ChunkedReader
}

func (c *chunkedBodySource) Read(p []byte) (int, error)        { return c.cr.Read(p) }
func (c *chunkedBodySource) SetReadDeadline(t time.Time) error { return c.raw.SetReadDeadline(t) }
func (c *chunkedBodySource) Close() error                      { return c.raw.Close() }
