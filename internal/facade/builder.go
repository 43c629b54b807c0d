package facade

import (
	"context"
	"time"

	"github.com/relaycore/httpcore/internal/conn"
	"github.com/relaycore/httpcore/internal/core/domain"
	"github.com/relaycore/httpcore/internal/core/ports"
	"github.com/relaycore/httpcore/internal/manager"
	"github.com/relaycore/httpcore/internal/pool"
)

// connFactoryBuilder implements manager.ConnFactoryBuilder, the one seam
// where internal/manager's Route becomes a real conn.Config — kept out
// of internal/manager itself so that package never imports internal/conn.
type connFactoryBuilder struct {
	dialer ports.Dialer
	tls    ports.TLSProvider
	clock  ports.Clock

	maxHeaderBytes int
	maxChunkBytes  int64

	// proxyHeaders are added only to a tunnel's CONNECT request, never
	// to the end-to-end request (spec.md §6 `proxy_headers`); the engine
	// adds the proxy's headers to forward-proxied requests itself.
	proxyHeaders *domain.HeaderBag
}

// NewConnFactoryBuilder is the constructor the root httpcore package
// uses to give a Manager its ConnFactoryBuilder without internal/manager
// ever importing internal/conn directly.
func NewConnFactoryBuilder(dialer ports.Dialer, tls ports.TLSProvider, clock ports.Clock, maxHeaderBytes int, maxChunkBytes int64, proxyHeaders *domain.HeaderBag) manager.ConnFactoryBuilder {
	return &connFactoryBuilder{
		dialer:         dialer,
		tls:            tls,
		clock:          clock,
		maxHeaderBytes: maxHeaderBytes,
		maxChunkBytes:  maxChunkBytes,
		proxyHeaders:   proxyHeaders,
	}
}

// Build returns a pool.Factory that dials route.DialHost:DialPort,
// performs the CONNECT/tunnel dance when route.Tunnel is set, and hands
// back a *conn.Connection satisfying pool.Conn.
func (b *connFactoryBuilder) Build(key domain.PoolKey, route manager.Route, _ manager.PoolDefaults) pool.Factory {
	return func(ctx context.Context, connectDeadline *time.Time) (pool.Conn, error) {
		cfg := conn.Config{
			Dialer:      b.dialer,
			TLS:         b.tls,
			Clock:       b.clock,
			UseTLS:      route.UseTLS,
			MaxHeaderSz: b.maxHeaderBytes,
			MaxChunkSz:  b.maxChunkBytes,
			TLSParams: ports.TLSWrapParams{
				ServerName:  key.ServerHostnameOverride,
				Fingerprint: key.TLSFingerprint,
				CABundleID:  key.CABundleID,
				ClientCert:  key.ClientCertID,
				MinVersion:  key.SSLMinimumVersion,
				MaxVersion:  key.SSLMaximumVersion,
				Ciphers:     key.SSLCiphers,
				SkipVerify:  key.VerifyMode == "none",
			},
		}
		if cfg.TLSParams.ServerName == "" {
			cfg.TLSParams.ServerName = route.DialHost
		}

		c := conn.New(route.DialHost, route.DialPort, cfg)

		if route.Tunnel {
			if err := c.SetTunnel(key.Host, key.Port, key.Scheme, b.proxyHeaders); err != nil {
				return nil, err
			}
		} else if route.ForwardProxy {
			c.MarkForwardProxy()
		}

		if err := c.Connect(ctx, connectDeadline); err != nil {
			return nil, err
		}
		return c, nil
	}
}
