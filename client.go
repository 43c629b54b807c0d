package httpcore

import (
	"context"
	"log/slog"
	"sync"

	"github.com/relaycore/httpcore/internal/adapter"
	"github.com/relaycore/httpcore/internal/config"
	"github.com/relaycore/httpcore/internal/core/domain"
	"github.com/relaycore/httpcore/internal/core/ports"
	"github.com/relaycore/httpcore/internal/facade"
	"github.com/relaycore/httpcore/internal/logger"
	"github.com/relaycore/httpcore/internal/manager"
)

// Client is the C8 request facade surfaced to embedders: one Client
// owns one Manager (the LRU of per-origin pools) and one Engine (the
// urlopen/retry loop), matching the "global mutable state" design note
// in spec.md §9 — everything reusable across requests lives here, not
// in a package-level var, except for the process-wide Default below.
type Client struct {
	engine  *facade.Engine
	manager *manager.Manager
	logger  *slog.Logger
	cleanup func()

	defaults facade.RequestDefaults

	mu     sync.RWMutex
	closed bool
}

// New builds a Client from cfg (nil selects config.DefaultConfig()).
// The Client's logger is built from cfg.Logging the same way the
// teacher's binary builds its own — a styled slog.Logger driven by
// internal/logger.NewWithTheme.
func New(cfg *config.ClientConfig) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	rawLog, styled, cleanup, err := logger.NewWithTheme(&logger.Config{
		Level:      cfg.Logging.Level,
		Theme:      cfg.Logging.Theme,
		PrettyLogs: cfg.Logging.PrettyLogs,
		FileOutput: cfg.Logging.FileOutput,
		LogDir:     cfg.Logging.LogDir,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})
	if err != nil {
		return nil, err
	}

	proxyHeaders := domain.NewHeaderBag()
	for name, value := range cfg.Proxy.Headers {
		proxyHeaders.Set(name, value)
	}
	if name, value, ok := manager.ProxyAuthHeader(cfg.Proxy.URL); ok {
		proxyHeaders.Set(name, value)
	}

	builder := facade.NewConnFactoryBuilder(
		adapter.NewTCPDialer(),
		adapter.NewSelectingTLSProvider(),
		ports.RealClock,
		64<<10,
		16<<20,
		proxyHeaders,
	)

	var proxyCfg *manager.ProxyConfig
	if cfg.Proxy.URL != "" {
		proxyHdrBag := domain.NewHeaderBag()
		for name, value := range cfg.Proxy.Headers {
			proxyHdrBag.Set(name, value)
		}
		proxyCfg, err = manager.BuildProxyConfig(cfg.Proxy.URL, proxyHdrBag, cfg.Proxy.UseForwardingForHTTPS)
		if err != nil {
			cleanup()
			return nil, err
		}
	}

	mgr, err := manager.New(cfg.Pool.NumPools, builder, manager.PoolDefaults{
		Maxsize: cfg.Pool.Maxsize,
		Block:   cfg.Pool.Block,
	}, proxyCfg)
	if err != nil {
		cleanup()
		return nil, err
	}

	engine := &facade.Engine{
		Manager:        mgr,
		Log:            styled,
		UserAgent:      "httpcore/1",
		MaxHeaderBytes: 64 << 10,
		MaxChunkBytes:  16 << 20,
		SSL: facade.SSLKeyFields{
			SSLMinimumVersion: cfg.SSL.MinVersion,
			VerifyMode:        verifyModeFrom(cfg.SSL.InsecureSkipVerify),
		},
	}
	if proxyCfg != nil {
		if name, value, ok := manager.ProxyAuthHeader(cfg.Proxy.URL); ok {
			engine.ProxyAuthName, engine.ProxyAuthValue = name, value
		}
	}

	requestHeaders := domain.NewHeaderBag()
	for name, value := range cfg.Request.Headers {
		requestHeaders.Set(name, value)
	}

	return &Client{
		engine:  engine,
		manager: mgr,
		logger:  rawLog,
		cleanup: cleanup,
		defaults: facade.RequestDefaults{
			Headers:         requestHeaders,
			Timeout:         domain.Seconds(cfg.Timeout.Connect.Seconds(), cfg.Timeout.Read.Seconds(), 0),
			Retry:           retryFromConfig(cfg.Retry),
			DecodeContent:   cfg.Request.DecodeContent,
			Redirect:        cfg.Request.Redirect,
			MaxDecoders:     cfg.Request.MaxDecoders,
			MaxDecodedBytes: cfg.Request.MaxDecodedBytes,
		},
	}, nil
}

func verifyModeFrom(skip bool) string {
	if skip {
		return "none"
	}
	return "verify"
}

func retryFromConfig(rc config.RetryConfig) domain.Retry {
	r := domain.DefaultRetry()
	r.Total, r.Connect, r.Read, r.Status, r.Redirect, r.Other =
		rc.Total, rc.Connect, rc.Read, rc.Status, rc.Redirect, rc.Other
	r.BackoffFactor = rc.BackoffFactor.Seconds()
	r.BackoffMax = rc.BackoffMax
	r.BackoffJitter = rc.BackoffJitter
	r.RespectRetryAfterHeader = rc.RespectRetryAfterHeader
	if len(rc.AllowedMethods) > 0 {
		r.AllowedMethods = map[string]bool{}
		for _, m := range rc.AllowedMethods {
			r.AllowedMethods[domain.NormalizeMethod(m)] = true
		}
	}
	if len(rc.StatusForcelist) > 0 {
		r.StatusForcelist = map[int]bool{}
		for _, s := range rc.StatusForcelist {
			r.StatusForcelist[s] = true
		}
	}
	return r
}

// NewRequest builds a Request against url with the Client's configured
// defaults (headers/timeout/retry/decode/redirect) merged in.
func (c *Client) NewRequest(method string, url *Url) *Request {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return facade.NewRequest(method, url, c.defaults)
}

// Do drives req across as many attempts as its Retry budget allows
// (spec.md §4.5 urlopen), returning a streaming Response on success.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, domain.NewErrorf(domain.KindProtocolError, "httpcore.do", "client is shut down")
	}
	return c.engine.Do(ctx, req)
}

// Stats returns a point-in-time snapshot of every pooled origin's
// lease/release/health-check counters.
func (c *Client) Stats() map[string]PoolStats {
	return c.manager.Stats()
}

// Logger exposes the Client's underlying slog.Logger so an embedder can
// attach its own handlers/attributes.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Close shuts down every pooled connection and releases the log
// sink, per spec.md §9's teardown semantics. Safe to call more than
// once; calls after the first return nil and do nothing.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.manager.Shutdown()
	if c.cleanup != nil {
		c.cleanup()
	}
	return nil
}
