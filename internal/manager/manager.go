// Package manager implements C5, the LRU pool manager from spec.md
// §4.5: one PerOriginPool per distinct PoolKey, evicted least-recently
// used once the manager is over num_pools, with concurrent
// first-lookups for the same key collapsed by singleflight.
package manager

import (
	"encoding/base64"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/relaycore/httpcore/internal/core/domain"
	"github.com/relaycore/httpcore/internal/core/ports"
	"github.com/relaycore/httpcore/internal/pool"
)

// ProxyConfig carries the optional forward-proxy settings from spec.md
// §6 (`proxy`, `proxy_headers`) that the routing decision below reads.
type ProxyConfig struct {
	URL                   *domain.Url
	Headers               *domain.HeaderBag
	UseForwardingForHTTPS bool
}

// Route describes the outcome of spec.md §4.5's routing decision for a
// single target URL: what the Connection should dial and whether it
// needs a CONNECT tunnel or absolute-form requests.
type Route struct {
	DialHost     string
	DialPort     int
	UseTLS       bool // TLS to DialHost:DialPort (direct, or proxy-hop TLS)
	Tunnel       bool // CONNECT tunnel to the target through DialHost:DialPort
	ForwardProxy bool // absolute-form requests, no tunnel
}

// DecideRoute implements the table in spec.md §4.5 "Routing decision".
func DecideRoute(targetScheme, targetHost string, targetPort int, proxy *ProxyConfig) Route {
	if proxy == nil || proxy.URL == nil {
		return Route{DialHost: targetHost, DialPort: targetPort, UseTLS: targetScheme == "https"}
	}

	proxyScheme, proxyHost, proxyPort := proxy.URL.Origin()

	switch {
	case proxyScheme == "http" && targetScheme == "http":
		return Route{DialHost: proxyHost, DialPort: proxyPort, ForwardProxy: true}
	case (proxyScheme == "http" || proxyScheme == "https") && targetScheme == "https":
		return Route{DialHost: proxyHost, DialPort: proxyPort, UseTLS: proxyScheme == "https", Tunnel: true}
	case proxyScheme == "https" && targetScheme == "http" && proxy.UseForwardingForHTTPS:
		return Route{DialHost: proxyHost, DialPort: proxyPort, UseTLS: true, ForwardProxy: true}
	default:
		return Route{DialHost: targetHost, DialPort: targetPort, UseTLS: targetScheme == "https"}
	}
}

// ConnFactoryBuilder builds a pool.Factory for a given PoolKey+Route —
// implemented in the facade, which knows how to wire a conn.Config
// (Dialer/TLSProvider) and perform the set_tunnel dance. Kept as an
// interface here so internal/manager never imports internal/conn,
// preserving the dependency direction domain -> ports -> wire -> conn
// -> pool -> manager.
type ConnFactoryBuilder interface {
	Build(key domain.PoolKey, route Route, cfg PoolDefaults) pool.Factory
}

// PoolDefaults are the per-pool-construction settings from spec.md §6
// (num_pools lives on the manager itself; these apply per origin).
type PoolDefaults struct {
	Maxsize int
	Block   bool
}

// Manager is the C5 component.
type Manager struct {
	cache    *lru.Cache[string, *pool.PerOriginPool]
	sf       singleflight.Group
	builder  ConnFactoryBuilder
	defaults PoolDefaults
	proxy    *ProxyConfig
	clock    ports.Clock
	registry *pool.Registry
}

// New builds a Manager capped at numPools origins.
func New(numPools int, builder ConnFactoryBuilder, defaults PoolDefaults, proxy *ProxyConfig) (*Manager, error) {
	m := &Manager{builder: builder, defaults: defaults, proxy: proxy, clock: ports.RealClock, registry: pool.NewRegistry()}
	cache, err := lru.NewWithEvict[string, *pool.PerOriginPool](numPools, func(key string, evicted *pool.PerOriginPool) {
		m.registry.Unregister(key)
		evicted.Shutdown()
	})
	if err != nil {
		return nil, domain.NewError(domain.KindResponseError, "manager.new", err)
	}
	m.cache = cache
	return m, nil
}

// PoolFor returns the pool for key, creating it (via the builder) if
// absent. Concurrent first-lookups for the same key are collapsed into
// a single construction by singleflight, per spec.md §4.5 "LRU".
func (m *Manager) PoolFor(key domain.PoolKey, route Route) (*pool.PerOriginPool, error) {
	k := key.String()

	if p, ok := m.cache.Get(k); ok {
		return p, nil
	}

	v, err, _ := m.sf.Do(k, func() (any, error) {
		if p, ok := m.cache.Get(k); ok {
			return p, nil
		}
		factory := m.builder.Build(key, route, m.defaults)
		p := pool.New(key, m.defaults.Maxsize, m.defaults.Block, factory)
		m.cache.Add(k, p)
		m.registry.Register(k, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pool.PerOriginPool), nil
}

// Proxy exposes the configured forward-proxy (if any) to callers
// deriving PoolKey.ProxyURL/ProxyHeadersDigest before calling PoolFor.
func (m *Manager) Proxy() *ProxyConfig { return m.proxy }

// Stats returns a point-in-time snapshot of every pooled origin's
// counters, read from the xsync.Map registry rather than under the LRU
// cache's own lock.
func (m *Manager) Stats() map[string]pool.Stats { return m.registry.Snapshot() }

// Shutdown closes every pool currently held by the LRU, per the same
// teardown semantics as an individual eviction.
func (m *Manager) Shutdown() {
	for _, k := range m.cache.Keys() {
		if p, ok := m.cache.Peek(k); ok {
			p.Shutdown()
		}
		m.registry.Unregister(k)
	}
	m.cache.Purge()
}

// Len reports the number of distinct origins currently pooled.
func (m *Manager) Len() int { return m.cache.Len() }

// BuildProxyConfig turns a raw proxy URL string + optional extra
// headers into a ProxyConfig, used by the facade at client-construction
// time (spec.md §6 `proxy`/`proxy_headers`).
func BuildProxyConfig(rawProxyURL string, headers *domain.HeaderBag, useForwardingForHTTPS bool) (*ProxyConfig, error) {
	if rawProxyURL == "" {
		return nil, nil
	}
	u, err := domain.ParseURL(rawProxyURL)
	if err != nil {
		return nil, err
	}
	return &ProxyConfig{URL: u, Headers: headers, UseForwardingForHTTPS: useForwardingForHTTPS}, nil
}

// ProxyAuthHeader derives "Proxy-Authorization: Basic ..." from the
// proxy URL's userinfo, per spec.md §4.8.
func ProxyAuthHeader(rawProxyURL string) (name, value string, ok bool) {
	u, err := url.Parse(rawProxyURL)
	if err != nil || u.User == nil {
		return "", "", false
	}
	return "Proxy-Authorization", "Basic " + basicAuthToken(u.User), true
}

func basicAuthToken(u *url.Userinfo) string {
	password, _ := u.Password()
	return base64.StdEncoding.EncodeToString([]byte(u.Username() + ":" + password))
}
