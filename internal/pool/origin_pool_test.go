package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycore/httpcore/internal/core/domain"
)

type fakeConn struct {
	reusable bool
	healthy  bool
	closed   atomic.Bool
}

func (f *fakeConn) IsReusable() bool  { return f.reusable && !f.closed.Load() }
func (f *fakeConn) HealthCheck() bool { return f.healthy && !f.closed.Load() }
func (f *fakeConn) Close() error      { f.closed.Store(true); return nil }

func newFakeFactory(created *atomic.Int64) Factory {
	return func(ctx context.Context, deadline *time.Time) (Conn, error) {
		created.Add(1)
		return &fakeConn{reusable: true, healthy: true}, nil
	}
}

func TestPerOriginPool_LeaseCreatesUpToMaxsize(t *testing.T) {
	var created atomic.Int64
	p := New(domain.PoolKey{Host: "a"}, 2, true, newFakeFactory(&created))

	c1, err := p.Lease(context.Background(), nil, 0)
	require.NoError(t, err)
	c2, err := p.Lease(context.Background(), nil, 0)
	require.NoError(t, err)

	assert.NotSame(t, c1, c2)
	assert.Equal(t, int64(2), created.Load())
	assert.Equal(t, 2, p.OutstandingCount())
}

func TestPerOriginPool_ReleaseThenLeaseReusesConnection(t *testing.T) {
	var created atomic.Int64
	p := New(domain.PoolKey{Host: "a"}, 2, true, newFakeFactory(&created))

	c1, err := p.Lease(context.Background(), nil, 0)
	require.NoError(t, err)
	p.Release(c1)
	assert.Equal(t, 1, p.IdleCount())

	c2, err := p.Lease(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, int64(1), created.Load())
}

func TestPerOriginPool_UnhealthyIdleConnectionIsDiscarded(t *testing.T) {
	var created atomic.Int64
	p := New(domain.PoolKey{Host: "a"}, 2, true, newFakeFactory(&created))

	stale := &fakeConn{reusable: true, healthy: false}
	p.idle = append(p.idle, stale)

	c, err := p.Lease(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.NotSame(t, stale, c)
	assert.True(t, stale.closed.Load())
	assert.Equal(t, int64(1), created.Load())
}

func TestPerOriginPool_NonBlockingOverflowCreatesBeyondMaxsize(t *testing.T) {
	var created atomic.Int64
	p := New(domain.PoolKey{Host: "a"}, 1, false, newFakeFactory(&created))

	c1, err := p.Lease(context.Background(), nil, 0)
	require.NoError(t, err)
	c2, err := p.Lease(context.Background(), nil, 0)
	require.NoError(t, err)

	assert.NotSame(t, c1, c2)
	assert.Equal(t, int64(2), created.Load())
}

func TestPerOriginPool_BlockingLeaseTimesOutWithEmptyPoolError(t *testing.T) {
	var created atomic.Int64
	p := New(domain.PoolKey{Host: "a"}, 1, true, newFakeFactory(&created))

	_, err := p.Lease(context.Background(), nil, 0)
	require.NoError(t, err)

	_, err = p.Lease(context.Background(), nil, 20*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyPool)
}

func TestPerOriginPool_BlockingLeaseWakesOnRelease(t *testing.T) {
	var created atomic.Int64
	p := New(domain.PoolKey{Host: "a"}, 1, true, newFakeFactory(&created))

	c1, err := p.Lease(context.Background(), nil, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var leased Conn
	var leaseErr error
	go func() {
		defer wg.Done()
		leased, leaseErr = p.Lease(context.Background(), nil, time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	p.Release(c1)
	wg.Wait()

	require.NoError(t, leaseErr)
	assert.Same(t, c1, leased)
}

func TestPerOriginPool_ReleaseOverCapacityDiscardsConnection(t *testing.T) {
	var created atomic.Int64
	p := New(domain.PoolKey{Host: "a"}, 1, true, newFakeFactory(&created))

	c1, _ := p.Lease(context.Background(), nil, 0)
	c2, _ := New(domain.PoolKey{Host: "a"}, 1, false, newFakeFactory(&created)).Lease(context.Background(), nil, 0)

	p.Release(c1)
	p.Release(c2)

	assert.Equal(t, 1, p.IdleCount())
	fc2 := c2.(*fakeConn)
	assert.True(t, fc2.closed.Load())
}

func TestPerOriginPool_ShutdownClosesIdleAndWakesWaiters(t *testing.T) {
	var created atomic.Int64
	p := New(domain.PoolKey{Host: "a"}, 1, true, newFakeFactory(&created))

	c1, _ := p.Lease(context.Background(), nil, 0)
	p.Release(c1)
	require.Equal(t, 1, p.IdleCount())

	p.Shutdown()
	assert.Equal(t, 0, p.IdleCount())
	assert.True(t, c1.(*fakeConn).closed.Load())

	_, err := p.Lease(context.Background(), nil, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyPool)
}
