package httpstat

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	im "github.com/statsprof/statsprof/internal/metrics"
)

func TestCachingResolverLookupHost(t *testing.T) {
	rec := im.NewRecordingClient()
	cr := NewCachingResolver(rec, 16, time.Minute)

	lookups := 0
	cr.lookup = func(ctx context.Context, host string) ([]string, error) {
		lookups++
		return []string{"127.0.0.1"}, nil
	}

	ctx := context.Background()

	addrs, err := cr.LookupHost(ctx, "example.test")
	require.NoError(t, err)
	require.Equal(t, []string{"127.0.0.1"}, addrs)

	addrs, err = cr.LookupHost(ctx, "example.test")
	require.NoError(t, err)
	require.Equal(t, []string{"127.0.0.1"}, addrs)

	t.Run("second lookup served from the cache", func(t *testing.T) {
		require.Equal(t, 1, lookups)
		require.Len(t, rec.ByName(DNSCacheMiss), 1)
		require.Len(t, rec.ByName(DNSCacheHit), 1)
	})

	t.Run("cache size gauge reported", func(t *testing.T) {
		sizes := rec.ByName(DNSCacheSize)
		require.NotEmpty(t, sizes)
		require.Equal(t, float64(1), sizes[len(sizes)-1].Value)
	})

	t.Run("hit and miss tagged with the domain", func(t *testing.T) {
		require.Equal(t, "example.test", rec.ByName(DNSCacheHit)[0].Tags[TagDomain])
		require.Equal(t, "example.test", rec.ByName(DNSCacheMiss)[0].Tags[TagDomain])
	})
}

func TestCachingResolverDialContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	t.Run("resolves through the cache", func(t *testing.T) {
		cr := NewCachingResolver(im.NewRecordingClient(), 16, time.Minute)
		cr.lookup = func(ctx context.Context, host string) ([]string, error) {
			return []string{"127.0.0.1"}, nil
		}

		conn, err := cr.DialContext(context.Background(), "tcp", net.JoinHostPort("example.test", port))
		require.NoError(t, err)
		conn.Close()
	})

	t.Run("literal addresses bypass the cache", func(t *testing.T) {
		cr := NewCachingResolver(im.NewRecordingClient(), 16, time.Minute)
		cr.lookup = func(ctx context.Context, host string) ([]string, error) {
			t.Fatal("lookup must not be called for literal addresses")
			return nil, nil
		}

		conn, err := cr.DialContext(context.Background(), "tcp", ln.Addr().String())
		require.NoError(t, err)
		conn.Close()
	})
}

func TestCachingResolverEviction(t *testing.T) {
	rec := im.NewRecordingClient()
	cr := NewCachingResolver(rec, 1, time.Minute)
	cr.lookup = func(ctx context.Context, host string) ([]string, error) {
		return []string{"127.0.0.1"}, nil
	}

	ctx := context.Background()

	_, err := cr.LookupHost(ctx, "a.test")
	require.NoError(t, err)
	_, err = cr.LookupHost(ctx, "b.test")
	require.NoError(t, err)

	evictions := rec.ByName(DNSCacheEviction)
	require.Len(t, evictions, 1)
	require.Equal(t, "capacity", evictions[0].Tags[TagEvictionReason])
}

func TestCachingResolverStartEviction(t *testing.T) {
	defer goleak.VerifyNone(t)

	cr := NewCachingResolver(im.NewRecordingClient(), 16, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		cr.StartEviction(ctx)
		close(done)
	}()

	cancel()
	<-done
}
