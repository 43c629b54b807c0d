// Package adapter holds the default ports.Dialer/ports.TLSProvider
// implementations — the "configured TLS context" and "DNS... external
// collaborator" spec.md §1 places out of scope for the core engine, but
// which a usable client still needs a production default for.
package adapter

import (
	"context"
	"net"
	"time"

	"github.com/relaycore/httpcore/internal/core/domain"
)

const (
	DefaultDialTimeout = 10 * time.Second
	DefaultKeepAlive   = 30 * time.Second
)

// TCPDialer wraps net.Dialer with the TCP tuning the teacher's proxy
// transports apply per connection (internal/adapter/proxy/proxy_olla.go's
// DialContext): Nagle's algorithm disabled so small frames — request
// lines, chunk boundaries — go out immediately instead of being
// coalesced, and keepalive enabled so idle pooled connections are
// noticed by the OS before a lease hands back a half-dead socket.
type TCPDialer struct {
	Timeout   time.Duration
	KeepAlive time.Duration
	NoDelay   bool
}

// NewTCPDialer returns a TCPDialer with spec.md §6 defaults.
func NewTCPDialer() *TCPDialer {
	return &TCPDialer{
		Timeout:   DefaultDialTimeout,
		KeepAlive: DefaultKeepAlive,
		NoDelay:   true,
	}
}

func (d *TCPDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   d.Timeout,
		KeepAlive: d.KeepAlive,
	}
	c, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, domain.NewError(domain.KindConnectError, "adapter.dial", err)
	}
	if tcpConn, ok := c.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(d.NoDelay)
		_ = tcpConn.SetKeepAlive(d.KeepAlive > 0)
		if d.KeepAlive > 0 {
			_ = tcpConn.SetKeepAlivePeriod(d.KeepAlive)
		}
	}
	return c, nil
}
