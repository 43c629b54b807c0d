// Package httpcore is the public embedding surface of the module: a
// thread-safe, pooled, retry-aware HTTP/1.1 client engine. Client wraps
// internal/facade.Engine; Request/Response/Retry/Timeout/HeaderBag are
// aliases onto the internal value types so callers never import
// internal/... themselves.
package httpcore

import (
	"github.com/relaycore/httpcore/internal/core/domain"
	"github.com/relaycore/httpcore/internal/facade"
	"github.com/relaycore/httpcore/internal/pool"
	"github.com/relaycore/httpcore/internal/stream"
)

type (
	Request   = facade.Request
	Response  = stream.Response
	Retry     = domain.Retry
	Timeout   = domain.Timeout
	HeaderBag = domain.HeaderBag
	Url       = domain.Url
	// PoolStats is one origin's point-in-time lease/release/health-check
	// counters, as returned by Client.Stats.
	PoolStats = pool.Stats
)

// NewHeaderBag returns an empty, insertion-order-preserving header
// container, per spec.md §3.
func NewHeaderBag() *HeaderBag { return domain.NewHeaderBag() }

// ParseURL parses raw into a Url, normalizing its host through IDNA
// and rejecting unsupported schemes, per spec.md §3's Url invariants.
func ParseURL(raw string) (*Url, error) { return domain.ParseURL(raw) }

// DefaultRetry is the conservative retry budget spec.md §3 implies when
// a caller builds a Request without its own policy.
func DefaultRetry() Retry { return domain.DefaultRetry() }

// Seconds builds a Timeout from plain float64 seconds; <= 0 means "no
// limit" for that leg, matching spec.md §6's `timeout` option.
func Seconds(connect, read, total float64) Timeout { return domain.Seconds(connect, read, total) }
