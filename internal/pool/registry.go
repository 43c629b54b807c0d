package pool

import (
	"github.com/puzpuzpuz/xsync/v4"
)

// Registry is a cross-origin view of every pool the manager currently
// holds, independent of the manager's own LRU lock — the same split the
// teacher keeps between endpointPools (xsync.Map) and the per-request
// critical section, so a metrics scrape or the CLI's status output
// never takes the manager's LRU lock.
type Registry struct {
	pools *xsync.Map[string, *PerOriginPool]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{pools: xsync.NewMap[string, *PerOriginPool]()}
}

// Register makes p observable under key. Called by internal/manager
// right after it creates a pool.
func (r *Registry) Register(key string, p *PerOriginPool) {
	r.pools.Store(key, p)
}

// Unregister removes key, called on eviction/shutdown.
func (r *Registry) Unregister(key string) {
	r.pools.Delete(key)
}

// Snapshot returns a point-in-time Stats map across every registered
// pool, each Stats value read by that pool's GetStats: the lease/release
// totals come from atomic counters, the idle and outstanding counts are
// read under the pool's own mutex.
func (r *Registry) Snapshot() map[string]Stats {
	out := make(map[string]Stats, r.pools.Size())
	r.pools.Range(func(key string, p *PerOriginPool) bool {
		out[key] = p.GetStats()
		return true
	})
	return out
}
