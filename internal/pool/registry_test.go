package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycore/httpcore/internal/core/domain"
)

func TestRegistry_SnapshotReflectsLiveCounters(t *testing.T) {
	var created atomicCounter
	p := New(domain.PoolKey{Host: "a"}, 2, false, func(ctx context.Context, deadline *time.Time) (Conn, error) {
		created.add(1)
		return &fakeConn{reusable: true, healthy: true}, nil
	})

	reg := NewRegistry()
	reg.Register("a:80", p)

	c, err := p.Lease(context.Background(), nil, 0)
	require.NoError(t, err)
	p.Release(c)

	snap := reg.Snapshot()
	stats, ok := snap["a:80"]
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.TotalLeased)
	assert.Equal(t, int64(1), stats.TotalReleased)
	assert.Equal(t, 1, stats.Idle)
}

func TestRegistry_UnregisterRemovesEntry(t *testing.T) {
	p := New(domain.PoolKey{Host: "a"}, 1, false, func(ctx context.Context, deadline *time.Time) (Conn, error) {
		return &fakeConn{reusable: true, healthy: true}, nil
	})
	reg := NewRegistry()
	reg.Register("a:80", p)
	reg.Unregister("a:80")

	_, ok := reg.Snapshot()["a:80"]
	assert.False(t, ok)
}

// atomicCounter is a tiny test-local counter avoiding an extra import.
type atomicCounter struct{ n int64 }

func (c *atomicCounter) add(d int64) { c.n += d }
